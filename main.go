package main

import "TitanMusic/cmd"

func main() {
	cmd.Execute()
}

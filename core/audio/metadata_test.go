package audio

import (
	"bytes"
	"testing"
)

func TestTagReaderRejectsUntaggedInput(t *testing.T) {
	_, err := TagReader{}.Read(bytes.NewReader([]byte("definitely not an audio file")))
	if err == nil {
		t.Fatal("expected an error for input without tags")
	}
}

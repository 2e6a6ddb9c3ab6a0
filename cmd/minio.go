package cmd

import (
	"fmt"
	"time"

	"TitanMusic/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the object storage bucket",
	Long:  `List the objects of the configured bucket, optionally filtered by prefix, or print bucket totals.`,
	Example: `  # list every object
  titan minio -r

  # audio of one uploader
  titan minio -r -p "tracks/<user-id>/"

  # totals only
  titan minio -s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewObjectStore(cfg)
		if err != nil {
			return err
		}
		if err := store.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("cannot reach bucket: %w", err)
		}

		objects, stats, err := store.List(cmd.Context(), minioPrefix, minioRecursive || minioStats)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Bucket:   %s\n", store.Bucket())
		fmt.Fprintf(out, "Prefix:   %q\n", minioPrefix)
		fmt.Fprintf(out, "Objects:  %d\n", stats.TotalObjects)
		fmt.Fprintf(out, "Size:     %s\n", storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Fprintf(out, "Modified: %s\n", stats.LastModified.Format(time.RFC3339))
		}
		if minioStats {
			return nil
		}

		fmt.Fprintln(out)
		for _, obj := range objects {
			fmt.Fprintf(out, "%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size),
				obj.LastModified.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only objects whose key starts with prefix")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print bucket totals only")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "descend into every prefix")
}

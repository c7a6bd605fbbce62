package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pdfqa/src/core/pdfqa"
	"pdfqa/src/log"
)

var ingestUploader string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>...",
	Short: "Ingest PDF files from disk",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestUploader, "uploader", "", "uploader recorded with each file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	bar := progressbar.Default(int64(len(args)), "ingesting")
	results := make([]*pdfqa.IngestResult, len(args))
	var failed int

	for i, path := range args {
		results[i], err = ingestPath(ctx, a, path)
		if err != nil {
			failed++
			log.Error(err, "failed to ingest file", "path", path)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	out := cmd.OutOrStdout()
	for i, res := range results {
		if res == nil {
			fmt.Fprintf(out, "%s\tFAILED\n", args[i])
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%d chunks\n", args[i], res.DocumentID, res.State, res.ChunkCount)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func ingestPath(ctx context.Context, a *app, path string) (*pdfqa.IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return a.ingestor.Ingest(ctx, pdfqa.IngestRequest{
		Filename: filepath.Base(path),
		Uploader: ingestUploader,
		Content:  f,
	})
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askDocument string
	askQuestion string
	askTopK     int
	askSources  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about an ingested document",
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "document id returned by ingest")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of chunks to retrieve (0 uses rag.top_k)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the retrieved chunks")
	_ = askCmd.MarkFlagRequired("document")
	_ = askCmd.MarkFlagRequired("question")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{withAnswerer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.answerer.Ask(ctx, askDocument, askQuestion, askTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !ans.Found {
		fmt.Fprintln(out, "No relevant passages found in the document.")
		return nil
	}
	fmt.Fprintln(out, ans.Text)

	if askSources {
		for _, src := range ans.Sources {
			fmt.Fprintf(out, "\n[chunk %d, score %.3f]\n%s\n", src.Order, src.Score, src.Text)
		}
	}
	return nil
}

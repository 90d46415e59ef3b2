package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"insightflow/internal/config"
	"insightflow/internal/rag"
	"insightflow/internal/service"
)

func askCMD(cfg *config.Config) *cobra.Command {
	var (
		k    int
		file string
	)

	cmd := &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Answer a question from the stored chunks",
		Long: `Answer a question from the stored chunks. With --file, every
non-blank line of the file is asked in turn.

Example:
  insightflow ask -k 5 "What did the central bank decide?"
  insightflow ask --file questions.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			questions := strings.Join(args, " ")
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read questions: %w", err)
				}
				questions = string(data)
			}
			if strings.TrimSpace(questions) == "" {
				return &service.InvalidInputError{Field: "question", Message: "provide a question or --file"}
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.answers.Enabled() {
				return fmt.Errorf("%w: answering needs LLM_API_KEY or GOOGLE_API_KEY", service.ErrDisabled)
			}

			responses := a.engine().AskAll(cmd.Context(), questions, k)
			failed := 0
			for i, resp := range responses {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				printAskResponse(cmd.OutOrStdout(), resp)
				if resp.AnswerError != "" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d answers failed", failed, len(responses))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", rag.DefaultK, "number of chunks to retrieve (1-10)")
	cmd.Flags().StringVar(&file, "file", "", "read newline-separated questions from a file")
	return cmd
}

func printAskResponse(w io.Writer, resp rag.AskResponse) {
	fmt.Fprintf(w, "Q: %s\n", resp.Question)
	for _, warning := range resp.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for _, r := range resp.Results {
		fmt.Fprintf(w, "[%d] %s (%s)\n    %s\n", r.Rank, r.Title, r.Source, strings.ReplaceAll(r.Snippet, "\n", "\n    "))
	}
	fmt.Fprintf(w, "A: %s\n", resp.Answer)
}

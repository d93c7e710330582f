package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codeagent/internal/adapter/retriever"
	"codeagent/internal/usecase"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the indexed code",
	Long: `Retrieve the fragments most relevant to the question and have the
language model answer from them. Every answer cites the files it drew
from.

Examples:
  codeagent ask "where are JWT tokens validated?"
  codeagent ask "how does retry backoff work" --top-k 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of fragments to retrieve (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	question := strings.Join(args, " ")

	if err := requireIndex(cfg, GetRootDir()); err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := openStore(ctx, cfg, GetRootDir(), embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	chat, err := newChatModel(cfg)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	query := newQueryService(retriever.NewSemanticRetriever(st, embedder), cfg)
	ask := usecase.NewAskService(query, chat, cfg.Retrieve.TopK)

	answer, err := ask.AskK(ctx, question, askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Printf("\nSources:\n")
		for i, c := range answer.Citations {
			fmt.Printf("  [%d] %s:L%d-%d (score: %.2f)\n", i+1, c.Path, c.StartLine, c.EndLine, c.Score)
		}
	}
	return nil
}

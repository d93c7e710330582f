package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeagent/internal/security"
	"codeagent/internal/usecase"
)

var reviewFocus string

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Ask the language model to review one file",
	Long: `Send a single file to the language model for review. The focus
narrows what the reviewer looks for.

Examples:
  codeagent review internal/api/handlers.go
  codeagent review auth/login.py --focus security`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.Flags().StringVar(&reviewFocus, "focus", "general", "review focus: general, security, performance or style")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ws, err := security.NewWorkspace(GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}
	path, err := ws.Resolve(args[0])
	if err != nil {
		return fmt.Errorf("invalid file path: %w", err)
	}

	chat, err := newChatModel(cfg)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	fmt.Printf("Reviewing %s (focus: %s, model: %s)...\n\n", args[0], reviewFocus, chat.ModelName())

	review, err := usecase.NewReviewService(chat).Review(cmd.Context(), path, reviewFocus)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	fmt.Println(review)
	return nil
}

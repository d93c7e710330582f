package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"codeagent/internal/security"
	"codeagent/internal/tool"
)

var (
	searchPath  string
	searchRegex bool
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Exact text search across the workspace",
	Long: `Search file contents for a literal string or, with --regex, a Go
regular expression. Only files the indexer would consider are searched,
unless the target is a single file.

Examples:
  codeagent search "connectDatabase"
  codeagent search "func \w+Handler" --regex
  codeagent search "TODO" --path internal/api`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchPath, "path", "", "restrict the search to a directory or file")
	searchCmd.Flags().BoolVar(&searchRegex, "regex", false, "treat the pattern as a regular expression")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ws, err := security.NewWorkspace(GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	res, err := runWorkspaceTool(cmd.Context(), tool.NewExactSearch(ws, newScanner(cfg)), tool.GrepArgs{
		Pattern: args[0],
		Path:    searchPath,
		Regex:   searchRegex,
	})
	if err != nil {
		return err
	}
	data := res.Data.(tool.GrepData)

	if searchJSON {
		output, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(data.Matches) == 0 {
		fmt.Println("No matches found.")
		return nil
	}

	fmt.Printf("Found %d matches for: %s\n\n", len(data.Matches), args[0])
	for _, m := range data.Matches {
		fmt.Printf("%s:%d: %s\n", m.Path, m.Line, m.Text)
	}
	if data.Truncated {
		fmt.Println("\n(more matches omitted; narrow the search with --path)")
	}
	return nil
}

// runWorkspaceTool drives a tool the way the agent would and turns a
// structured tool failure into a plain CLI error.
func runWorkspaceTool(ctx context.Context, t tool.Tool, args any) (tool.Result, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return tool.Result{}, fmt.Errorf("failed to encode arguments: %w", err)
	}
	res, err := t.Handler(ctx, raw)
	if err != nil {
		return tool.Result{}, err
	}
	if res.Error != nil {
		return tool.Result{}, errors.New(res.Error.Message)
	}
	return res, nil
}

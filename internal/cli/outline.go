package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeagent/internal/security"
	"codeagent/internal/tool"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "List the top-level declarations of a file",
	Long: `Show the functions, types and classes a file declares, with line
numbers. Languages without outline support yield an empty list.

Examples:
  codeagent outline internal/api/server.go
  codeagent outline scripts/deploy.sh`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

func init() {
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	ws, err := security.NewWorkspace(GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	res, err := runWorkspaceTool(cmd.Context(), tool.NewFileOutline(ws), tool.OutlineArgs{Path: args[0]})
	if err != nil {
		return err
	}

	data := res.Data.(tool.OutlineData)
	if len(data.Outline) == 0 {
		fmt.Printf("No declarations found in %s (language: %s)\n", data.Path, data.Lang)
		return nil
	}

	fmt.Printf("%s (%s)\n", data.Path, data.Lang)
	for _, entry := range data.Outline {
		fmt.Printf("%5d  %s\n", entry.Line, entry.Text)
	}
	return nil
}

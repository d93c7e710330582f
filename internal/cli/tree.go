package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeagent/internal/security"
	"codeagent/internal/tool"
)

var treeMaxDepth int

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Show the workspace directory tree",
	Long: `Print the directory layout, skipping hidden files and common build
artifacts such as node_modules and vendor.

Examples:
  codeagent tree
  codeagent tree internal --max-depth 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().IntVar(&treeMaxDepth, "max-depth", 0, "directory depth to descend (default 2)")
}

func runTree(cmd *cobra.Command, args []string) error {
	ws, err := security.NewWorkspace(GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	}

	res, err := runWorkspaceTool(cmd.Context(), tool.NewDirectoryTree(ws), tool.TreeArgs{
		Path:     path,
		MaxDepth: treeMaxDepth,
	})
	if err != nil {
		return err
	}

	data := res.Data.(tool.TreeData)
	fmt.Printf("%s\n%s", data.Path, data.Tree)
	return nil
}

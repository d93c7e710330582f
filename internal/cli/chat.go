package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codeagent/internal/adapter/retriever"
	"codeagent/internal/agent"
	"codeagent/internal/security"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive agent session over the workspace",
	Long: `Start a conversation with an agent that can search the index, grep,
read files and navigate the tree to answer questions. Write access and
command execution are extra tools gated by the agent config section.

Examples:
  codeagent chat
  codeagent chat -d /path/to/project`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

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

	ws, err := security.NewWorkspace(GetRootDir())
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	query := newQueryService(retriever.NewSemanticRetriever(st, embedder), cfg)
	reg, err := newToolRegistry(ws, cfg, query)
	if err != nil {
		return fmt.Errorf("failed to build tools: %w", err)
	}
	if err := registerAgentTools(reg, ws, cfg); err != nil {
		return fmt.Errorf("failed to build tools: %w", err)
	}

	chatModel, err := newChatModel(cfg)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	ag := agent.New(chatModel, reg, agent.Options{MaxSteps: cfg.Agent.MaxSteps})

	fmt.Printf("Chatting with %s over %s\n", chatModel.ModelName(), GetRootDir())
	fmt.Printf("Tools: %s\n", strings.Join(reg.Names(), ", "))
	if !cfg.Agent.EnableExec {
		fmt.Println("Command execution is disabled; set agent.enable_exec to allow it.")
	}
	fmt.Println(`Type "exit" to quit, "/reset" to start over.`)
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			ag.Reset()
			fmt.Println("Conversation cleared.")
			continue
		}

		reply, err := ag.Send(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", reply)
	}
	return scanner.Err()
}

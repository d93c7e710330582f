package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"codeagent/internal/domain"
)

//go:embed templates/*.txt
var templates embed.FS

// RenderAskSystem builds the system prompt for question answering,
// with the retrieved fragments formatted as a numbered context block.
func RenderAskSystem(fragments []domain.ScoredFragment) (string, error) {
	return render("templates/ask_system.txt", struct {
		Fragments []domain.ScoredFragment
	}{fragments})
}

// RenderReviewSystem builds the system prompt for a code review of the
// given kind (general, security, performance, style).
func RenderReviewSystem(kind string) (string, error) {
	if kind == "" {
		kind = "general"
	}
	return render("templates/review_system.txt", struct{ Kind string }{kind})
}

// RenderReviewUser formats the file under review.
func RenderReviewUser(path, lang, content string) (string, error) {
	return render("templates/review_user.txt", struct {
		Path    string
		Lang    string
		Content string
	}{path, lang, content})
}

// AgentSystem returns the system prompt for the conversational agent.
func AgentSystem() string {
	data, err := templates.ReadFile("templates/agent_system.txt")
	if err != nil {
		// The template is embedded at build time; missing means a
		// packaging bug, not a runtime condition.
		panic(fmt.Sprintf("agent system prompt missing: %v", err))
	}
	return strings.TrimSpace(string(data))
}

func render(name string, data any) (string, error) {
	content, err := templates.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("template not found: %w", err)
	}

	tmpl, err := template.New("prompt").Funcs(templateFuncs()).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatFragments": func(fragments []domain.ScoredFragment) string {
			if len(fragments) == 0 {
				return "(no matching code was found in the index)\n"
			}
			var sb strings.Builder
			for i, f := range fragments {
				sb.WriteString(fmt.Sprintf("### [%d] %s (L%d-%d)\n", i+1, f.Fragment.Path, f.Fragment.StartLine, f.Fragment.EndLine))
				sb.WriteString(fmt.Sprintf("Relevance: %.2f\n\n", f.Score))
				sb.WriteString("```\n")
				sb.WriteString(f.Fragment.Text)
				sb.WriteString("\n```\n\n")
			}
			return sb.String()
		},
	}
}

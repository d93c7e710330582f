package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrExecDisabled is returned while command execution is switched
	// off, which is the default.
	ErrExecDisabled = errors.New("command execution is disabled")

	// ErrCommandDenied marks a command whose program is on the deny
	// list.
	ErrCommandDenied = errors.New("command denied by policy")
)

const maxCommandLength = 10000

// DefaultDeniedCommands lists programs blocked even when execution is
// enabled.
func DefaultDeniedCommands() []string {
	return []string{"rm", "sudo", "su", "shutdown", "reboot", "halt", "mkfs", "dd", "chown", "chmod", "kill", "pkill"}
}

// CommandPolicy gates the run_command tool. Execution is an explicit
// opt-in; the deny list is a guardrail on top of that, not a sandbox.
type CommandPolicy struct {
	Enabled bool
	Denied  []string
	Timeout time.Duration
}

// DefaultCommandPolicy returns the locked-down default: execution off,
// standard deny list, 30 second timeout.
func DefaultCommandPolicy() CommandPolicy {
	return CommandPolicy{
		Enabled: false,
		Denied:  DefaultDeniedCommands(),
		Timeout: 30 * time.Second,
	}
}

// Validate decides whether a shell command may run. The command string
// is split at shell separators and the leading word of every segment is
// matched against the deny list by program basename, so chaining or
// substitution cannot smuggle a denied program past the gate.
func (p CommandPolicy) Validate(command string) error {
	if !p.Enabled {
		return ErrExecDisabled
	}
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return errors.New("empty command")
	}
	if strings.ContainsRune(trimmed, 0) {
		return errors.New("command contains a null byte")
	}
	if len(trimmed) > maxCommandLength {
		return fmt.Errorf("command too long (%d bytes, max %d)", len(trimmed), maxCommandLength)
	}

	for _, segment := range splitSegments(trimmed) {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		program := strings.ToLower(filepath.Base(strings.Trim(fields[0], `"'`)))
		for _, denied := range p.Denied {
			if program == strings.ToLower(denied) {
				return fmt.Errorf("%q: %w", program, ErrCommandDenied)
			}
		}
	}
	return nil
}

// splitSegments cuts a shell command at the operators that start a new
// simple command: ; | & newline, plus subshell and substitution
// delimiters.
func splitSegments(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ';', '|', '&', '\n', '(', ')', '`':
			return true
		}
		return false
	})
}

// Package plan provides the typed remote command plan. Commands are built as
// explicit {program, args, workingDir} records and rendered with full shell
// quoting, so no user-supplied value is ever substituted into a script body.
package plan

import (
	"strings"
)

// =============================================================================
// Command
// =============================================================================

// Command is one remote operation. Rendered commands are executed one per
// SSH session by the transport.
type Command struct {
	Program string
	Args    []string
	Dir     string // optional working directory
	Sudo    bool   // run under sudo when the remote user is not root

	// Stdin pipes a literal string into the remote process, used for
	// vendor bootstrap scripts ("curl | sh" equivalents) and file writes.
	Stdin string
}

// Cmd builds a command.
func Cmd(program string, args ...string) Command {
	return Command{Program: program, Args: args}
}

// InDir returns a copy of the command with the working directory set.
func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

// AsRoot returns a copy of the command marked for sudo execution.
func (c Command) AsRoot() Command {
	c.Sudo = true
	return c
}

// Render produces the single shell line sent over the remote-execution
// channel. Every token is quoted; the working directory is applied with an
// explicit cd so relative build contexts resolve against the project dir.
func (c Command) Render() string {
	var parts []string
	if c.Sudo {
		parts = append(parts, "sudo")
	}
	parts = append(parts, Quote(c.Program))
	for _, a := range c.Args {
		parts = append(parts, Quote(a))
	}
	line := strings.Join(parts, " ")
	if c.Dir != "" {
		line = "cd " + Quote(c.Dir) + " && " + line
	}
	return line
}

// String implements fmt.Stringer for log output.
func (c Command) String() string {
	return c.Render()
}

// =============================================================================
// Shell Quoting
// =============================================================================

// safeToken matches tokens that need no quoting. Kept conservative.
func safeToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '/' || r == ':' || r == '=' || r == ',' || r == '@':
		default:
			return false
		}
	}
	return true
}

// Quote renders s as a single shell word using POSIX single-quote escaping.
func Quote(s string) string {
	if safeToken(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

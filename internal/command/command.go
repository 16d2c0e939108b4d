// Package command turns raw text lines into typed chat commands.
package command

import (
	"errors"
	"strings"
)

// Prefix marks a line as an administrative command.
const Prefix = "#"

// Kind describes how a line should be handled.
type Kind int

const (
	// KindChat is a plain payload relayed as-is.
	KindChat Kind = iota
	// KindAdmin is a recognized administrative command with the expected arity.
	KindAdmin
	// KindInvalid is a '#' line that does not match the vocabulary.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindAdmin:
		return "admin"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyLine is returned for a line with no characters.
	ErrEmptyLine = errors.New("empty line")
	// ErrUnknownCommand marks an Invalid command whose name is not in the vocabulary.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrArity marks an Invalid command with the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")
)

// Command is one parsed line.
type Command struct {
	Kind Kind
	// Name is the command name without the prefix. Empty for chat.
	Name string
	Args []string
	// Text holds the original line.
	Text string
	// Reason is set for KindInvalid: ErrUnknownCommand or ErrArity.
	Reason error
}

// Is reports whether c is the admin command name.
func (c Command) Is(name string) bool {
	return c.Kind == KindAdmin && c.Name == name
}

// Arg returns the i-th argument or an empty string.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse maps a line to a Command using the given vocabulary.
// Admin lines are split on single spaces and matched case-sensitively.
func Parse(line string, vocab Vocabulary) (Command, error) {
	if line == "" {
		return Command{}, ErrEmptyLine
	}
	if !strings.HasPrefix(line, Prefix) {
		return Command{Kind: KindChat, Text: line}, nil
	}

	tokens := strings.Split(line, " ")
	cmd := Command{
		Name: strings.TrimPrefix(tokens[0], Prefix),
		Args: tokens[1:],
		Text: line,
	}

	arity, ok := vocab[cmd.Name]
	switch {
	case !ok:
		cmd.Kind = KindInvalid
		cmd.Reason = ErrUnknownCommand
	case arity != len(cmd.Args):
		cmd.Kind = KindInvalid
		cmd.Reason = ErrArity
	default:
		cmd.Kind = KindAdmin
	}
	return cmd, nil
}

// Format builds an admin line from a name and arguments.
func Format(name string, args ...string) string {
	return Prefix + strings.Join(append([]string{name}, args...), " ")
}

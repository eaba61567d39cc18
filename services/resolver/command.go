package resolver

import (
	"fmt"
	"strings"
)

// Command is the first positional argument handed to the resolver tool.
type Command string

const (
	CommandRecent  Command = "recent"
	CommandSearch  Command = "search"
	CommandDetails Command = "details"
	CommandStream  Command = "stream"
)

// Commands lists every command the resolver understands.
var Commands = []Command{CommandRecent, CommandSearch, CommandDetails, CommandStream}

func (c Command) String() string { return string(c) }

// Valid reports whether c is a known resolver command.
func (c Command) Valid() bool {
	switch c {
	case CommandRecent, CommandSearch, CommandDetails, CommandStream:
		return true
	}
	return false
}

// arity is the exact number of arguments the command takes.
func (c Command) arity() int {
	if c == CommandRecent {
		return 0
	}
	return 1
}

// ValidateArgs checks the command against its argument contract: recent takes
// nothing, every other command takes exactly one non-blank argument.
func ValidateArgs(c Command, args []string) error {
	if !c.Valid() {
		return &ValidationError{Field: "command", Reason: fmt.Sprintf("unknown command %q", string(c))}
	}
	if len(args) != c.arity() {
		return &ValidationError{
			Field:  "arguments",
			Reason: fmt.Sprintf("%s expects %d argument(s), got %d", c, c.arity(), len(args)),
		}
	}
	for _, arg := range args {
		if strings.TrimSpace(arg) == "" {
			return &ValidationError{Field: "arguments", Reason: fmt.Sprintf("%s argument must not be empty", c)}
		}
	}
	return nil
}

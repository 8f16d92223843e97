package control

import (
	"strings"
)

// DefaultPrefix starts every typed command.
const DefaultPrefix = "S"

// CommandKind identifies a typed command.
type CommandKind string

const (
	CmdHelp   CommandKind = "help"
	CmdStatus CommandKind = "status"
	CmdPlay   CommandKind = "play"
	CmdNoises CommandKind = "noises"
	CmdStop   CommandKind = "stop"
	CmdLeave  CommandKind = "leave"
	CmdRemote CommandKind = "remote"
)

// commandWords maps every accepted spelling to its command.
var commandWords = map[string]CommandKind{
	"help":      CmdHelp,
	"shelp":     CmdHelp,
	"status":    CmdStatus,
	"play":      CmdPlay,
	"noises":    CmdNoises,
	"noisemenu": CmdNoises,
	"stop":      CmdStop,
	"leave":     CmdLeave,
	"remote":    CmdRemote,
}

// Command is a parsed typed command.
type Command struct {
	Kind CommandKind
	// Arg is everything after the command word, whitespace-normalised.
	Arg string
}

// ParseCommand recognises content as a command when it starts with prefix
// (case-sensitive) followed by a known command word (case-insensitive).
func ParseCommand(prefix, content string) (Command, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}
	words := strings.Fields(content[len(prefix):])
	if len(words) == 0 {
		return Command{}, false
	}
	kind, ok := commandWords[strings.ToLower(words[0])]
	if !ok {
		return Command{}, false
	}
	return Command{Kind: kind, Arg: strings.Join(words[1:], " ")}, true
}

package app

import (
	"errors"
	"fmt"
	"strings"
)

type CommandKind string

const (
	CmdRefresh CommandKind = "refresh"
	CmdReport  CommandKind = "report"
	CmdAsk     CommandKind = "ask"
	CmdPause   CommandKind = "pause"
	CmdResume  CommandKind = "resume"
	CmdHelp    CommandKind = "help"
	CmdQuit    CommandKind = "quit"
)

// Command is one operator command, typed on the console or received on the
// mirror command topic.
type Command struct {
	Kind CommandKind
	Arg  string
}

var ErrUnknownCommand = errors.New("unknown command")

// Help is the text printed by the help command.
const Help = `commands:
  refresh          fetch the latest reading now
  report <text>    save a note in the greenhouse log
  ask [question]   ask the advisor (empty: general status)
  pause | resume   stop / restart background polling
  help | quit`

var commandAliases = map[string]CommandKind{
	"refresh":    CmdRefresh,
	"r":          CmdRefresh,
	"actualizar": CmdRefresh,
	"report":     CmdReport,
	"nota":       CmdReport,
	"ask":        CmdAsk,
	"ia":         CmdAsk,
	"pause":      CmdPause,
	"resume":     CmdResume,
	"help":       CmdHelp,
	"?":          CmdHelp,
	"quit":       CmdQuit,
	"exit":       CmdQuit,
}

// ParseCommand splits the first word (the verb) from the rest of the line.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrUnknownCommand
	}
	verb, arg, _ := strings.Cut(line, " ")
	kind, ok := commandAliases[strings.ToLower(verb)]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
	}
	return Command{Kind: kind, Arg: strings.TrimSpace(arg)}, nil
}

// Executor runs a parsed command on the dispatcher goroutine; *Screen
// implements it.
type Executor interface {
	Exec(c Command)
}

// Exec runs c against the screen. Must be called on the dispatcher goroutine.
// help and quit are left to the caller.
func (s *Screen) Exec(c Command) {
	switch c.Kind {
	case CmdRefresh:
		s.Refresh()
	case CmdReport:
		s.SubmitReport(c.Arg)
	case CmdAsk:
		s.AskAdvisor(c.Arg)
	case CmdPause:
		s.Pause()
	case CmdResume:
		s.Resume()
	}
}

package app

import (
	"errors"
	"testing"
)

var _ Executor = (*Screen)(nil)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want Command
		err  bool
	}{
		{"refresh", Command{Kind: CmdRefresh}, false},
		{"  R  ", Command{Kind: CmdRefresh}, false},
		{"report Plaga en tomates", Command{Kind: CmdReport, Arg: "Plaga en tomates"}, false},
		{"report", Command{Kind: CmdReport}, false},
		{"ask", Command{Kind: CmdAsk}, false},
		{"ia ¿necesita riego?", Command{Kind: CmdAsk, Arg: "¿necesita riego?"}, false},
		{"pause", Command{Kind: CmdPause}, false},
		{"resume", Command{Kind: CmdResume}, false},
		{"exit", Command{Kind: CmdQuit}, false},
		{"", Command{}, true},
		{"borra todo", Command{}, true},
	}
	for _, tc := range cases {
		got, err := ParseCommand(tc.line)
		if tc.err {
			if !errors.Is(err, ErrUnknownCommand) {
				t.Errorf("%q: expected ErrUnknownCommand, got %v", tc.line, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q: got %+v %v, want %+v", tc.line, got, err, tc.want)
		}
	}
}

func TestExecReportWithoutTextIsEmptyInput(t *testing.T) {
	f := newScreenFixture(t, Config{})
	c, err := ParseCommand("report")
	if err != nil {
		t.Fatal(err)
	}
	f.on(t, func() { f.screen.Exec(c) })
	n, _ := f.sink.lastNotice()
	if n.Kind != NoticeEmptyInput || f.be.reports.Load() != 0 {
		t.Fatalf("notice %+v reports %d", n, f.be.reports.Load())
	}
}

func TestExecPauseResume(t *testing.T) {
	f := newScreenFixture(t, Config{})
	f.on(t, func() { f.screen.Exec(Command{Kind: CmdResume}) })
	if f.screen.poller.State() != Polling {
		t.Fatal("resume must start polling")
	}
	f.on(t, func() { f.screen.Exec(Command{Kind: CmdPause}) })
	if f.screen.poller.State() != Idle {
		t.Fatal("pause must stop polling")
	}
}

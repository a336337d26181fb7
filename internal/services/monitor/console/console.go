// Package console is the terminal rendition of the monitor screen.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/LeonardoBeccarini/invernadero/internal/model"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/app"
)

// Console implements app.Sink on an io.Writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func New(out io.Writer) *Console { return &Console{out: out} }

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) Render(d model.Display) {
	if d.NoData {
		c.printf("[%s] sin datos\n", d.Time)
		return
	}
	c.printf("[%s] T %s °C | H %s %% | L %s\n", d.Time, d.Temperature, d.Humidity, d.Light)
}

func (c *Console) Notify(n app.Notice) {
	mark := "*"
	if n.IsError() {
		mark = "!"
	}
	c.printf("%s %s\n", mark, n.Text)
}

func (c *Console) ShowAdvice(text string) { c.printf("IA> %s\n", text) }

func (c *Console) HideAdvice() {}

func (c *Console) ClearReportInput() {}

func (c *Console) SetEnabled(ctl app.Control, enabled bool) {
	if !enabled {
		c.printf("... %s\n", ctl)
	}
}

var ErrQuit = errors.New("quit")

// ReadCommands reads one command per line from in and posts it to ui. It
// returns ErrQuit on the quit command, nil on EOF, ctx.Err() on cancellation.
func (c *Console) ReadCommands(ctx context.Context, in io.Reader, ui *app.Dispatcher, exec app.Executor) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return err
		case line := <-lines:
			if strings.TrimSpace(line) == "" {
				continue
			}
			cmd, err := app.ParseCommand(line)
			if err != nil {
				c.printf("! %v (help para la lista)\n", err)
				continue
			}
			switch cmd.Kind {
			case app.CmdQuit:
				return ErrQuit
			case app.CmdHelp:
				c.printf("%s\n", app.Help)
				continue
			}
			if !ui.Post(ctx, func() { exec.Exec(cmd) }) {
				return errors.New("dispatcher stopped")
			}
		}
	}
}

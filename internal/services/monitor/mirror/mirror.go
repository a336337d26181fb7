// Package mirror republishes what the monitor screen shows on MQTT and
// accepts operator commands from a command topic.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/invernadero/internal/model"
	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/app"
	"github.com/LeonardoBeccarini/invernadero/pkg/dedup"
	"github.com/LeonardoBeccarini/invernadero/pkg/mqtt"
)

const (
	TopicDisplay = "display"
	TopicAdvice  = "advice"
	TopicCommand = "command"
)

// Topic joins prefix and leaf ("invernadero" + "display").
func Topic(prefix, leaf string) string {
	if prefix == "" {
		return leaf
	}
	return prefix + "/" + leaf
}

type DisplayMessage struct {
	model.Display
	PublishedAt time.Time `json:"published_at"`
}

type AdviceMessage struct {
	Consejo     string    `json:"consejo"`
	PublishedAt time.Time `json:"published_at"`
}

type outgoing struct {
	pub     mqtt.IPublisher
	key     string
	payload []byte
}

// Sink is an app.Sink that forwards rendered readings and advice to MQTT.
// Publishing happens on Run's goroutine so the dispatcher never waits on the broker.
type Sink struct {
	display mqtt.IPublisher
	advice  mqtt.IPublisher
	seen    *dedup.Deduper
	queue   chan outgoing
	log     *log.Logger

	mu   sync.Mutex
	last map[string]string // topic -> chiave dell'ultimo payload accodato
	now     func() time.Time
}

func NewSink(display, advice mqtt.IPublisher, ttl time.Duration, logger *log.Logger) *Sink {
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{
		display: display,
		advice:  advice,
		seen:    dedup.New(ttl, 256),
		queue:   make(chan outgoing, 32),
		last:    make(map[string]string, 2),
		log:     logger,
		now:     time.Now,
	}
}

// Run publishes queued messages until ctx is cancelled.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.queue:
			if err := m.pub.Publish(m.payload); err != nil {
				// ripubblicabile al prossimo giro
				s.seen.Forget(m.key)
				s.log.Printf("mirror: %v", err)
			}
		}
	}
}

func (s *Sink) enqueue(pub mqtt.IPublisher, content any, msg any) {
	// la chiave ignora il timestamp: stesso contenuto, stesso hash
	raw, err := json.Marshal(content)
	if err != nil {
		s.log.Printf("mirror: encode for %s: %v", pub.Topic(), err)
		return
	}
	key := dedup.Key([]byte(pub.Topic()), raw)
	if !s.consecutive(pub.Topic(), key) {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.seen.Forget(key)
		s.log.Printf("mirror: encode for %s: %v", pub.Topic(), err)
		return
	}
	select {
	case s.queue <- outgoing{pub: pub, key: key, payload: payload}:
	default:
		s.seen.Forget(key)
		s.log.Printf("mirror: queue full, dropping %s", pub.Topic())
	}
}

// consecutive reports whether key should be published: only a repeat of the
// last payload on the same topic is suppressed, so A B A publishes three times.
func (s *Sink) consecutive(topic, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[topic]; ok && prev != key {
		s.seen.Forget(prev)
	}
	s.last[topic] = key
	return s.seen.ShouldProcess(key)
}

func (s *Sink) Render(d model.Display) {
	s.enqueue(s.display, d, DisplayMessage{Display: d, PublishedAt: s.now().UTC()})
}

func (s *Sink) ShowAdvice(text string) {
	s.enqueue(s.advice, text, AdviceMessage{Consejo: text, PublishedAt: s.now().UTC()})
}

// Notices and control state are local to the operator's terminal.
func (s *Sink) Notify(app.Notice) {}

func (s *Sink) HideAdvice() {}

func (s *Sink) ClearReportInput() {}

func (s *Sink) SetEnabled(app.Control, bool) {}

// CommandSource is the subscribing side (mqtt.Consumer).
type CommandSource interface {
	SetHandler(h mqtt.Handler)
	Consume(ctx context.Context) error
}

var ErrRemoteNotAllowed = errors.New("command not allowed remotely")

// ServeCommands consumes the command topic and runs each command on the
// dispatcher. It blocks until ctx is cancelled.
func ServeCommands(ctx context.Context, src CommandSource, ui *app.Dispatcher, exec app.Executor, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	src.SetHandler(func(topic string, payload []byte) error {
		c, err := app.ParseCommand(string(payload))
		if err != nil {
			return err
		}
		switch c.Kind {
		case app.CmdQuit, app.CmdHelp:
			return fmt.Errorf("%w: %s", ErrRemoteNotAllowed, c.Kind)
		}
		logger.Printf("mirror: remote command %s from %s", c.Kind, topic)
		if !ui.Post(ctx, func() { exec.Exec(c) }) {
			return errors.New("dispatcher stopped")
		}
		return nil
	})
	return src.Consume(ctx)
}

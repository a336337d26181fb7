package app

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/LeonardoBeccarini/invernadero/internal/metrics"
	"github.com/LeonardoBeccarini/invernadero/internal/model"
)

// Reporter sends operator notes.
type Reporter interface {
	SubmitReport(ctx context.Context, report model.OperatorReport) (model.Ack, error)
}

// Advisor answers free-text questions. An empty question asks for a general
// status summary.
type Advisor interface {
	QueryAdvisor(ctx context.Context, query model.AdvisorQuery) (model.AdvisorAnswer, error)
}

// Screen is the monitor screen: displayed reading, lifecycle and one-shot
// user actions. Its exported methods (except Run helpers) must be called on the
// dispatcher goroutine; network work runs on worker goroutines and posts back.
type Screen struct {
	ctx      context.Context
	ui       *Dispatcher
	sink     Sink
	poller   *Poller
	reporter Reporter
	advisor  Advisor
	metrics  *metrics.Metrics
	log      *log.Logger

	placeholder string
	operator    string
	terse       bool

	// stato UI: toccato solo dalla goroutine del dispatcher
	busy      map[Control]bool
	displayed *model.Display
}

// NewScreen wires the poller handler to the sink. ctx bounds every request
// started by the screen.
func NewScreen(ctx context.Context, cfg Config, ui *Dispatcher, sink Sink, poller *Poller,
	reporter Reporter, advisor Advisor, m *metrics.Metrics) *Screen {
	cfg = cfg.withDefaults()
	s := &Screen{
		ctx:         ctx,
		ui:          ui,
		sink:        sink,
		poller:      poller,
		reporter:    reporter,
		advisor:     advisor,
		metrics:     m,
		log:         cfg.Logger,
		placeholder: cfg.Placeholder,
		operator:    cfg.OperatorName,
		terse:       cfg.AdvisorTerse,
		busy:        make(map[Control]bool, 3),
	}
	if s.placeholder == "" {
		s.placeholder = model.DefaultPlaceholder
	}
	poller.SetHandler(s.showReading)
	return s
}

// Resume: la schermata torna visibile, riparte il polling.
func (s *Screen) Resume() { s.poller.Start() }

// Pause: la schermata non è più visibile, il polling si ferma.
func (s *Screen) Pause() { s.poller.Stop() }

// Displayed returns the last rendered display, if any.
func (s *Screen) Displayed() (model.Display, bool) {
	if s.displayed == nil {
		return model.Display{}, false
	}
	return *s.displayed, true
}

// Busy reports whether c has a request in flight.
func (s *Screen) Busy(c Control) bool { return s.busy[c] }

func (s *Screen) showReading(r model.SensorReading, ok bool) {
	d := model.NoDataDisplay(s.placeholder)
	if ok {
		d = r.Display(s.placeholder)
	}
	s.displayed = &d
	s.sink.Render(d)
}

// Refresh fetches once outside the polling cadence and reports the outcome.
func (s *Screen) Refresh() bool {
	if !s.acquire(ControlRefresh) {
		return false
	}
	s.spawn(ControlRefresh, func(ctx context.Context) func() {
		r, ok, err := s.poller.FetchOnce(ctx)
		return func() {
			if err != nil {
				s.log.Printf("screen: refresh failed: %v", err)
				s.metrics.Submission("refresh", "error")
				s.sink.Notify(newNotice(NoticeConnectionError))
				return
			}
			s.metrics.Submission("refresh", "ok")
			s.showReading(r, ok)
			s.sink.Notify(newNotice(NoticeRefreshed))
		}
	})
	return true
}

// SubmitReport validates the note locally, then sends it once. On failure the
// input is left untouched so the operator can retry.
func (s *Screen) SubmitReport(note string) bool {
	report, err := model.NewOperatorReport(note, s.operator)
	if err != nil {
		s.metrics.Submission("report", "empty")
		s.sink.Notify(newNotice(NoticeEmptyInput))
		return false
	}
	if !s.acquire(ControlReport) {
		return false
	}
	s.spawn(ControlReport, func(ctx context.Context) func() {
		_, err := s.reporter.SubmitReport(ctx, report)
		return func() {
			if err != nil {
				s.log.Printf("screen: report failed: %v", err)
				s.metrics.Submission("report", "error")
				s.sink.Notify(newNotice(NoticeReportFailed))
				return
			}
			s.metrics.Submission("report", "ok")
			s.sink.ClearReportInput()
			s.sink.Notify(newNotice(NoticeReportSaved))
		}
	})
	return true
}

// AskAdvisor forwards the question; an empty one asks for the general status.
func (s *Screen) AskAdvisor(question string) bool {
	if !s.acquire(ControlAdvisor) {
		return false
	}
	s.sink.HideAdvice()
	query := model.AdvisorQuery{Question: strings.TrimSpace(question), Terse: s.terse}
	s.spawn(ControlAdvisor, func(ctx context.Context) func() {
		ans, err := s.advisor.QueryAdvisor(ctx, query)
		return func() {
			if err != nil {
				s.log.Printf("screen: advisor failed: %v", err)
				s.metrics.Submission("advisor", "error")
				s.sink.Notify(newNotice(NoticeAdvisorFailed))
				return
			}
			text, err := ans.Advice()
			if errors.Is(err, model.ErrMissingField) {
				s.metrics.Submission("advisor", "no_answer")
				s.sink.Notify(newNotice(NoticeNoAnswer))
				return
			}
			s.metrics.Submission("advisor", "ok")
			s.sink.ShowAdvice(text)
		}
	})
	return true
}

func (s *Screen) acquire(c Control) bool {
	if s.busy[c] {
		return false
	}
	s.busy[c] = true
	s.sink.SetEnabled(c, false)
	return true
}

func (s *Screen) release(c Control) {
	s.busy[c] = false
	s.sink.SetEnabled(c, true)
}

// spawn runs work on a worker goroutine; the returned closure runs on the
// dispatcher, followed by the release of c whatever happened.
func (s *Screen) spawn(c Control, work func(ctx context.Context) func()) {
	go func() {
		apply := work(s.ctx)
		if !s.ui.Post(context.Background(), func() {
			defer s.release(c)
			apply()
		}) {
			s.log.Printf("screen: dispatcher gone, dropping %s result", c)
		}
	}()
}

package app

import "github.com/LeonardoBeccarini/invernadero/internal/model"

// Control identifies an input that is disabled while its request is in flight.
type Control string

const (
	ControlRefresh Control = "refresh"
	ControlReport  Control = "report"
	ControlAdvisor Control = "advisor"
)

type NoticeKind int

const (
	NoticeRefreshed NoticeKind = iota
	NoticeConnectionError
	NoticeReportSaved
	NoticeReportFailed
	NoticeEmptyInput
	NoticeNoAnswer
	NoticeAdvisorFailed
)

// Notice is a transient message (the "toast" of the screen).
type Notice struct {
	Kind NoticeKind
	Text string
}

// testi di default, come nell'app mobile
var noticeText = map[NoticeKind]string{
	NoticeRefreshed:       "Datos actualizados",
	NoticeConnectionError: "Error conexión",
	NoticeReportSaved:     "Bitácora guardada",
	NoticeReportFailed:    "Fallo envío",
	NoticeEmptyInput:      "Escribe una observación",
	NoticeNoAnswer:        "Sin respuesta",
	NoticeAdvisorFailed:   "Error IA",
}

func newNotice(k NoticeKind) Notice { return Notice{Kind: k, Text: noticeText[k]} }

// IsError reports whether the notice signals a failure.
func (n Notice) IsError() bool {
	switch n.Kind {
	case NoticeConnectionError, NoticeReportFailed, NoticeAdvisorFailed, NoticeEmptyInput:
		return true
	}
	return false
}

// Sink is the presentation side. Every method is called on the dispatcher
// goroutine.
type Sink interface {
	Render(d model.Display)
	Notify(n Notice)
	ShowAdvice(text string)
	HideAdvice()
	ClearReportInput()
	SetEnabled(c Control, enabled bool)
}

// MultiSink fans out to several sinks (console + mirror).
type MultiSink []Sink

func (m MultiSink) Render(d model.Display) {
	for _, s := range m {
		s.Render(d)
	}
}

func (m MultiSink) Notify(n Notice) {
	for _, s := range m {
		s.Notify(n)
	}
}

func (m MultiSink) ShowAdvice(text string) {
	for _, s := range m {
		s.ShowAdvice(text)
	}
}

func (m MultiSink) HideAdvice() {
	for _, s := range m {
		s.HideAdvice()
	}
}

func (m MultiSink) ClearReportInput() {
	for _, s := range m {
		s.ClearReportInput()
	}
}

func (m MultiSink) SetEnabled(c Control, enabled bool) {
	for _, s := range m {
		s.SetEnabled(c, enabled)
	}
}

package model

import (
	"encoding/json"
	"strings"
)

// OriginMobile asks the advisor for a short answer.
const OriginMobile = "movil"

// AdvisorQuery is one question for the advisor. An empty Question asks for a
// general status summary.
type AdvisorQuery struct {
	Question string
	Terse    bool
}

// MarshalJSON produces the /api/ia/consultar body.
func (q AdvisorQuery) MarshalJSON() ([]byte, error) {
	body := struct {
		Pregunta string `json:"pregunta"`
		Origen   string `json:"origen,omitempty"`
	}{Pregunta: q.Question}
	if q.Terse {
		body.Origen = OriginMobile
	}
	return json.Marshal(body)
}

// AdvisorAnswer carries the optional advice text.
type AdvisorAnswer struct {
	advice Field
}

// NewAdvisorAnswer wraps a known advice text.
func NewAdvisorAnswer(text string) AdvisorAnswer {
	return AdvisorAnswer{advice: Value(text)}
}

// Advice returns the text, or ErrMissingField when the advisor gave none.
func (a AdvisorAnswer) Advice() (string, error) {
	v, ok := a.advice.Get()
	if !ok || strings.TrimSpace(v) == "" {
		return "", ErrMissingField
	}
	return v, nil
}

func (a *AdvisorAnswer) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if s, ok := m["consejo"].(string); ok {
		a.advice = Value(s)
	}
	return nil
}

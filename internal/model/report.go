package model

import (
	"encoding/json"
	"strings"
)

// KindManualReport is the only report kind the screen sends.
const KindManualReport = "manual_report"

// wireKindManualReport is how the backend names KindManualReport.
const wireKindManualReport = "reporte_manual"

// OperatorReport is a free-text note for the greenhouse log.
type OperatorReport struct {
	Note   string
	Author string
	Kind   string
}

// NewOperatorReport validates the note locally.
func NewOperatorReport(note, author string) (OperatorReport, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return OperatorReport{}, ErrEmptyInput
	}
	return OperatorReport{Note: note, Author: author, Kind: KindManualReport}, nil
}

// MarshalJSON produces the /api/movil/data body.
func (r OperatorReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tipo        string `json:"tipo"`
		Observacion string `json:"observacion"`
		Usuario     string `json:"usuario"`
	}{
		Tipo:        wireKindManualReport,
		Observacion: r.Note,
		Usuario:     r.Author,
	})
}

// Ack is the backend acknowledgement of a report.
type Ack struct {
	Status Field
}

func (a *Ack) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if s, ok := m["status"].(string); ok {
		a.Status = Value(s)
	}
	return nil
}

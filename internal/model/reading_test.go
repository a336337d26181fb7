package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeHistory(t *testing.T, body string) []SensorReading {
	t.Helper()
	var out []SensorReading
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	return out
}

func TestDisplayStringReading(t *testing.T) {
	hist := decodeHistory(t, `[{"t":"24.5","h":"60","l":"300"}]`)
	r, ok := Latest(hist)
	if !ok {
		t.Fatal("expected a reading")
	}
	d := r.Display(DefaultPlaceholder)
	if d.Temperature != "24.5" || d.Humidity != "60" || d.Light != "300 Lx" {
		t.Fatalf("unexpected display: %+v", d)
	}
	if d.NoData {
		t.Fatal("NoData set on a real reading")
	}
	if d.Time != DefaultPlaceholder {
		t.Fatalf("expected placeholder time, got %q", d.Time)
	}
}

func TestDisplayNumericReadingKeepsLiteral(t *testing.T) {
	hist := decodeHistory(t, `[{"t":24.50,"h":61.2,"l":512,"device_id":"rak_simulado_01"}]`)
	d := hist[0].Display("")
	if d.Temperature != "24.50" || d.Humidity != "61.2" || d.Light != "512 Lx" {
		t.Fatalf("unexpected display: %+v", d)
	}
}

func TestDisplayPlaceholders(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Display
	}{
		{"all missing", `[{}]`, Display{"n/a", "n/a", "n/a Lx", "n/a", false}},
		{"null values", `[{"t":null,"h":"55","l":null}]`, Display{"n/a", "55", "n/a Lx", "n/a", false}},
		{"wrong types", `[{"t":true,"h":{"x":1},"l":[1]}]`, Display{"n/a", "n/a", "n/a Lx", "n/a", false}},
		{"timestamp", `[{"t":"20","h":"40","l":"200","timestamp":"2025-03-02 14:05:09.123456"}]`, Display{"20", "40", "200 Lx", "14:05:09", false}},
		{"iso timestamp", `[{"timestamp":"2025-03-02T08:00:01Z"}]`, Display{"n/a", "n/a", "n/a Lx", "08:00:01", false}},
		{"garbage timestamp", `[{"timestamp":"ieri"}]`, Display{"n/a", "n/a", "n/a Lx", "n/a", false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hist := decodeHistory(t, tc.body)
			got := hist[0].Display("n/a")
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestEmptyHistory(t *testing.T) {
	hist := decodeHistory(t, `[]`)
	if _, ok := Latest(hist); ok {
		t.Fatal("expected no reading")
	}
	d := NoDataDisplay("")
	if !d.NoData || d.Temperature != DefaultPlaceholder {
		t.Fatalf("unexpected no-data display: %+v", d)
	}
}

func TestReadingMarshalOmitsAbsent(t *testing.T) {
	r := SensorReading{Temperature: Value("21"), Light: Value("90")}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"l":"90","t":"21"}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestOperatorReport(t *testing.T) {
	if _, err := NewOperatorReport("   ", "op"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	r, err := NewOperatorReport(" riego manual zona B ", "Android Operario")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(r)
	var m map[string]string
	_ = json.Unmarshal(b, &m)
	if m["tipo"] != "reporte_manual" || m["observacion"] != "riego manual zona B" || m["usuario"] != "Android Operario" {
		t.Fatalf("unexpected body %s", b)
	}
	if r.Kind != KindManualReport {
		t.Fatalf("unexpected kind %q", r.Kind)
	}
}

func TestAdvisorWire(t *testing.T) {
	b, _ := json.Marshal(AdvisorQuery{Question: "", Terse: true})
	if string(b) != `{"pregunta":"","origen":"movil"}` {
		t.Fatalf("unexpected body %s", b)
	}
	b, _ = json.Marshal(AdvisorQuery{Question: "riego?"})
	if string(b) != `{"pregunta":"riego?"}` {
		t.Fatalf("unexpected body %s", b)
	}

	var empty AdvisorAnswer
	if err := json.Unmarshal([]byte(`{}`), &empty); err != nil {
		t.Fatal(err)
	}
	if _, err := empty.Advice(); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}

	var full AdvisorAnswer
	_ = json.Unmarshal([]byte(`{"consejo":"Abrir ventilación"}`), &full)
	if txt, err := full.Advice(); err != nil || txt != "Abrir ventilación" {
		t.Fatalf("unexpected advice %q %v", txt, err)
	}
}

package model

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultPlaceholder is shown in place of a missing value.
const DefaultPlaceholder = "--"

// LightUnit is appended to the light value on display.
const LightUnit = "Lx"

// Field is an optional scalar coming from a loosely-typed payload:
// it may arrive as a JSON string, a JSON number or not at all.
type Field struct {
	value string
	ok    bool
}

// Value builds a present Field.
func Value(s string) Field { return Field{value: s, ok: true} }

// Get returns the raw text and whether the field was present.
func (f Field) Get() (string, bool) { return f.value, f.ok }

// Or returns the value, or def when the field is absent.
func (f Field) Or(def string) string {
	if !f.ok {
		return def
	}
	return f.value
}

// SensorReading is one snapshot as returned by /api/historial.
type SensorReading struct {
	Temperature Field
	Humidity    Field
	Light       Field
	Timestamp   Field
}

// UnmarshalJSON accepts t/h/l as string or number; anything else counts as absent.
func (r *SensorReading) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber() // keep the literal text of numbers ("24.50" stays "24.50")
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*r = SensorReading{
		Temperature: scalar(m, "t"),
		Humidity:    scalar(m, "h"),
		Light:       scalar(m, "l"),
		Timestamp:   scalar(m, "timestamp"),
	}
	return nil
}

// MarshalJSON writes back only the fields that were present.
func (r SensorReading) MarshalJSON() ([]byte, error) {
	out := map[string]string{}
	put := func(k string, f Field) {
		if v, ok := f.Get(); ok {
			out[k] = v
		}
	}
	put("t", r.Temperature)
	put("h", r.Humidity)
	put("l", r.Light)
	put("timestamp", r.Timestamp)
	return json.Marshal(out)
}

func scalar(m map[string]any, key string) Field {
	raw, ok := m[key]
	if !ok || raw == nil {
		return Field{}
	}
	switch x := raw.(type) {
	case string:
		return Value(x)
	case json.Number:
		return Value(x.String())
	default:
		// bool, oggetti, array: non sono letture valide
		return Field{}
	}
}

// Display is what the screen shows for a reading.
type Display struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	Light       string `json:"light"`
	Time        string `json:"time"`
	NoData      bool   `json:"no_data"`
}

var clockRe = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)

// Display renders the reading, substituting placeholder for every absent field.
func (r SensorReading) Display(placeholder string) Display {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return Display{
		Temperature: r.Temperature.Or(placeholder),
		Humidity:    r.Humidity.Or(placeholder),
		Light:       r.Light.Or(placeholder) + " " + LightUnit,
		Time:        clockOf(r.Timestamp, placeholder),
	}
}

// NoDataDisplay is the state shown when the history is empty.
func NoDataDisplay(placeholder string) Display {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return Display{
		Temperature: placeholder,
		Humidity:    placeholder,
		Light:       placeholder + " " + LightUnit,
		Time:        placeholder,
		NoData:      true,
	}
}

// clockOf extracts HH:MM:SS from an ISO-like timestamp ("2024-05-01 13:45:07.123456").
func clockOf(ts Field, placeholder string) string {
	v, ok := ts.Get()
	if !ok {
		return placeholder
	}
	if c := clockRe.FindString(strings.TrimSpace(v)); c != "" {
		return c
	}
	return placeholder
}

// Latest returns the first element of a newest-first history.
func Latest(history []SensorReading) (SensorReading, bool) {
	if len(history) == 0 {
		return SensorReading{}, false
	}
	return history[0], true
}

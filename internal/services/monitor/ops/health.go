package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/invernadero/internal/services/monitor/app"
)

// PollerStatus is the read side of *app.Poller.
type PollerStatus interface {
	State() app.State
	LastSuccess() time.Time
}

// BreakerStatus is the read side of *app.Upstream.
type BreakerStatus interface {
	BreakerState(endpoint string) gobreaker.State
}

// Broker is satisfied by paho's mqtt.Client; nil when the mirror is disabled.
type Broker interface {
	IsConnectionOpen() bool
}

type Deps struct {
	Poller   PollerStatus
	Breakers BreakerStatus
	Broker   Broker
	// MaxAge: oltre questa età dell'ultimo poll riuscito il servizio non è pronto.
	MaxAge time.Duration
}

type healthHandler struct {
	deps Deps
	now  func() time.Time
}

func NewHealthHandler(d Deps) http.Handler { return &healthHandler{deps: d, now: time.Now} }

func lastPollAge(p PollerStatus, now time.Time) (time.Duration, bool) {
	last := p.LastSuccess()
	if last.IsZero() {
		return 0, false
	}
	return now.Sub(last), true
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type status struct {
		Status        string            `json:"status"`
		Poller        string            `json:"poller"`
		LastPollAgeS  *float64          `json:"last_poll_age_sec,omitempty"`
		MQTTEnabled   bool              `json:"mqtt_enabled"`
		MQTTConnected bool              `json:"mqtt_connected"`
		Breakers      map[string]string `json:"breakers"`
	}
	st := status{
		Poller:      h.deps.Poller.State().String(),
		MQTTEnabled: h.deps.Broker != nil,
		Breakers:    map[string]string{},
	}
	st.MQTTConnected = st.MQTTEnabled && h.deps.Broker.IsConnectionOpen()

	age, seen := lastPollAge(h.deps.Poller, h.now())
	if seen {
		s := age.Seconds()
		st.LastPollAgeS = &s
	}
	healthy := seen && age <= h.deps.MaxAge
	if h.deps.Breakers != nil {
		for _, ep := range []string{app.EndpointHistory, app.EndpointReport, app.EndpointAdvisor} {
			bs := h.deps.Breakers.BreakerState(ep)
			st.Breakers[ep] = bs.String()
			if bs == gobreaker.StateOpen {
				healthy = false
			}
		}
	}
	if st.MQTTEnabled && !st.MQTTConnected {
		healthy = false
	}

	if healthy {
		st.Status = "ok"
	} else {
		st.Status = "degraded"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// readyHandler /readyz: 200 solo se l'ultimo poll riuscito è abbastanza recente.
type readyHandler struct {
	deps Deps
	now  func() time.Time
}

func NewReadyHandler(d Deps) http.Handler { return &readyHandler{deps: d, now: time.Now} }

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	age, seen := lastPollAge(h.deps.Poller, h.now())
	ready := seen && age <= h.deps.MaxAge
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/invernadero/internal/metrics"
	"github.com/LeonardoBeccarini/invernadero/internal/model"
)

// Endpoint names, used as breaker names and metric labels.
const (
	EndpointHistory = "historial"
	EndpointReport  = "movil_data"
	EndpointAdvisor = "ia_consultar"
)

const (
	pathHistory = "/api/historial"
	pathReport  = "/api/movil/data"
	pathAdvisor = "/api/ia/consultar"

	maxBodyBytes = 1 << 20
)

// Upstream incapsula le chiamate HTTP al backend, una breaker per endpoint.
// Non fa retry: ogni errore diventa model.ErrRequestFailed.
type Upstream struct {
	base      string
	client    *http.Client
	userAgent string
	breakers  map[string]*gobreaker.CircuitBreaker
	metrics   *metrics.Metrics
	log       *log.Logger
}

// NewUpstream costruisce il client verso il backend configurato.
func NewUpstream(cfg Config, m *metrics.Metrics) (*Upstream, error) {
	cfg = cfg.withDefaults()
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("base url required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", base, err)
	}
	u := &Upstream{
		base:      base,
		client:    &http.Client{Timeout: cfg.HTTPTimeout},
		userAgent: cfg.UserAgent,
		breakers:  make(map[string]*gobreaker.CircuitBreaker, 3),
		metrics:   m,
		log:       cfg.Logger,
	}
	for _, name := range []string{EndpointHistory, EndpointReport, EndpointAdvisor} {
		u.breakers[name] = u.mkCB(name, cfg)
		m.BreakerState(name, gobreaker.StateClosed)
	}
	return u, nil
}

func (u *Upstream) mkCB(name string, cfg Config) *gobreaker.CircuitBreaker {
	fails := uint32(cfg.BreakerFailures)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		// una richiesta annullata (schermata in pausa) non è colpa del backend;
		// conta come successo, quindi azzera la serie di fallimenti consecutivi
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			u.log.Printf("upstream: breaker %s %s -> %s", name, from, to)
			u.metrics.BreakerState(name, to)
		},
	})
}

// BreakerState is exposed for health reporting.
func (u *Upstream) BreakerState(endpoint string) gobreaker.State {
	if cb, ok := u.breakers[endpoint]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

// FetchLatestReading GET /api/historial?z=<cacheBust>; newest first.
func (u *Upstream) FetchLatestReading(ctx context.Context, cacheBust int64) ([]model.SensorReading, error) {
	q := url.Values{}
	q.Set("z", strconv.FormatInt(cacheBust, 10))
	var out []model.SensorReading
	if err := u.call(ctx, EndpointHistory, http.MethodGet, pathHistory, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitReport POST /api/movil/data.
func (u *Upstream) SubmitReport(ctx context.Context, report model.OperatorReport) (model.Ack, error) {
	var ack model.Ack
	if err := u.call(ctx, EndpointReport, http.MethodPost, pathReport, nil, report, &ack); err != nil {
		return model.Ack{}, err
	}
	return ack, nil
}

// QueryAdvisor POST /api/ia/consultar. A missing "consejo" is not an error.
func (u *Upstream) QueryAdvisor(ctx context.Context, query model.AdvisorQuery) (model.AdvisorAnswer, error) {
	var ans model.AdvisorAnswer
	if err := u.call(ctx, EndpointAdvisor, http.MethodPost, pathAdvisor, nil, query, &ans); err != nil {
		return model.AdvisorAnswer{}, err
	}
	return ans, nil
}

func (u *Upstream) call(ctx context.Context, endpoint, method, path string, q url.Values, in, out any) error {
	start := time.Now()
	_, err := u.breakers[endpoint].Execute(func() (interface{}, error) {
		return nil, u.roundTrip(ctx, method, path, q, in, out)
	})
	u.metrics.ObserveUpstream(endpoint, time.Since(start), err)
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrRequestFailed) {
		return err
	}
	// breaker open / half-open saturo
	return fmt.Errorf("%w: %s: %w", model.ErrRequestFailed, endpoint, err)
}

func (u *Upstream) roundTrip(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode %s body: %w", model.ErrRequestFailed, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: build %s %s: %w", model.ErrRequestFailed, method, path, err)
	}
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", model.ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s %s -> %s: %s", model.ErrRequestFailed, method, path, resp.Status, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", model.ErrRequestFailed, path, err)
	}
	return nil
}

// CacheBuster genera il parametro z: millisecondi Unix, strettamente crescente.
type CacheBuster struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewCacheBuster() *CacheBuster { return &CacheBuster{now: time.Now} }

func (c *CacheBuster) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.now().UnixMilli()
	if v <= c.last {
		v = c.last + 1
	}
	c.last = v
	return v
}

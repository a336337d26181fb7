package app

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LeonardoBeccarini/invernadero/internal/metrics"
	"github.com/LeonardoBeccarini/invernadero/internal/model"
)

// ReadingSource is the part of the transport client the poller needs.
type ReadingSource interface {
	FetchLatestReading(ctx context.Context, cacheBust int64) ([]model.SensorReading, error)
}

// ReadingHandler riceve la lettura più recente (ok=false: storico vuoto).
// Runs on the dispatcher goroutine.
type ReadingHandler func(r model.SensorReading, ok bool)

type State int32

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// Poller owns the repeating fetch loop. Start/Stop follow the visibility of the
// screen; there is never more than one loop running.
type Poller struct {
	src      ReadingSource
	ui       *Dispatcher
	interval time.Duration
	bust     *CacheBuster
	metrics  *metrics.Metrics
	log      *log.Logger
	handler  ReadingHandler

	mu     sync.Mutex // serializza Start/Stop
	cancel context.CancelFunc
	done   chan struct{}

	gen    atomic.Uint64 // generazione corrente, 0 = Idle
	seq    uint64
	loops  atomic.Int32
	lastOK atomic.Int64 // unix nano dell'ultimo fetch riuscito
}

func NewPoller(src ReadingSource, ui *Dispatcher, cfg Config, m *metrics.Metrics) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		src:      src,
		ui:       ui,
		interval: cfg.PollInterval,
		bust:     NewCacheBuster(),
		metrics:  m,
		log:      cfg.Logger,
	}
}

// SetHandler must be called before Start.
func (p *Poller) SetHandler(h ReadingHandler) { p.handler = h }

// Start passes to Polling. If a loop is already running it is cancelled and
// awaited before the new one is scheduled.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	p.seq++
	gen := p.seq
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	p.gen.Store(gen)
	p.metrics.Polling(true)

	p.loops.Add(1)
	go p.loop(ctx, gen, done)
	p.log.Printf("poller: started gen=%d interval=%s", gen, p.interval)
}

// Stop passes to Idle. When it returns no further tick will run; results of
// requests still in flight are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopLocked() {
		p.metrics.Polling(false)
		p.log.Printf("poller: stopped")
	}
}

func (p *Poller) stopLocked() bool {
	if p.cancel == nil {
		return false
	}
	p.gen.Store(0)
	p.cancel()
	<-p.done
	p.cancel, p.done = nil, nil
	return true
}

func (p *Poller) State() State {
	if p.gen.Load() == 0 {
		return Idle
	}
	return Polling
}

// LastSuccess is the time of the last successful fetch (zero if none).
func (p *Poller) LastSuccess() time.Time {
	n := p.lastOK.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (p *Poller) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer p.loops.Add(-1)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx, gen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, gen)
		}
	}
}

func (p *Poller) tick(ctx context.Context, gen uint64) {
	if ctx.Err() != nil {
		return
	}
	hist, err := p.src.FetchLatestReading(ctx, p.bust.Next())
	if err != nil {
		if ctx.Err() != nil {
			return // fermato durante la richiesta
		}
		// fallimento silenzioso in background: il prossimo tick parte comunque
		p.metrics.PollTick("error")
		p.log.Printf("poller: tick failed (ignored): %v", err)
		return
	}
	p.lastOK.Store(time.Now().UnixNano())

	r, ok := model.Latest(hist)
	if ok {
		p.metrics.PollTick("ok")
	} else {
		p.metrics.PollTick("empty")
	}
	p.ui.Post(ctx, func() {
		if p.gen.Load() != gen {
			return
		}
		if p.handler != nil {
			p.handler(r, ok)
		}
	})
}

// FetchOnce is the "refresh now" path: one request outside the timer cadence,
// regardless of state. Errors are returned, not swallowed.
func (p *Poller) FetchOnce(ctx context.Context) (model.SensorReading, bool, error) {
	hist, err := p.src.FetchLatestReading(ctx, p.bust.Next())
	if err != nil {
		return model.SensorReading{}, false, err
	}
	p.lastOK.Store(time.Now().UnixNano())
	r, ok := model.Latest(hist)
	return r, ok, nil
}

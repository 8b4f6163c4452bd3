package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"gpsbeacon/internal/sim"
)

// Config controls the GPS driver.
//
// Most u-blox style receivers appear as /dev/ttyACM* or /dev/ttyUSB* and talk
// NMEA at 9600 baud with GP or GN talker IDs. Device may be empty to
// auto-detect.
//
// All fields are optional unless noted.
type Config struct {
	Enable bool

	// Source selects where bytes come from: "serial", "gpsd", "file" or "sim".
	// When empty, defaults to "serial".
	Source string

	Device  string
	Baud    int
	Backend string // "termios" (linux) or "goserial"

	GPSDAddr string

	File     string
	FileRate float64 // lines per second
	FileLoop bool

	// Tick is the driver period for draining bytes and checking freshness.
	Tick time.Duration

	Sim sim.OwnshipSim
}

func (c Config) normalizedSource() string {
	src := strings.ToLower(strings.TrimSpace(c.Source))
	if src == "" {
		src = "serial"
	}
	return src
}

func (c Config) baud() int {
	if c.Baud == 0 {
		return 9600
	}
	return c.Baud
}

func (c Config) tick() time.Duration {
	if c.Tick <= 0 {
		return 100 * time.Millisecond
	}
	return c.Tick
}

// Status describes the driver rather than the fix.
type Status struct {
	Enabled    bool   `json:"enabled"`
	Source     string `json:"source"`
	Connected  bool   `json:"connected"`
	Reconnects uint64 `json:"reconnects"`
	LastError  string `json:"last_error,omitempty"`
}

type Option func(*Service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) { s.clk = clk }
}

// WithSource overrides the source derived from Config.
func WithSource(src Source) Option {
	return func(s *Service) { s.src = src }
}

// WithEngineOptions forwards options to the engine the service creates.
func WithEngineOptions(opts ...EngineOption) Option {
	return func(s *Service) { s.engineOpts = append(s.engineOpts, opts...) }
}

// Service is the driver loop: it reads the source, feeds the Engine and ticks
// the freshness monitor on a fixed period.
type Service struct {
	cfg        Config
	log        *zap.SugaredLogger
	clk        clock.Clock
	src        Source
	engine     *Engine
	engineOpts []EngineOption

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu        sync.Mutex
	connected bool
	opens     uint64
	lastErr   string
}

func New(cfg Config, logger *zap.SugaredLogger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Service{cfg: cfg, log: logger, clk: clock.New()}
	for _, o := range opts {
		o(s)
	}
	s.engine = NewEngine(s.engineOpts...)
	s.last.Store(s.engine.Snapshot())
	return s
}

// Engine exposes the underlying engine; callers must not feed it while the
// service is running.
func (s *Service) Engine() *Engine { return s.engine }

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	if s.src == nil {
		src, err := newSource(s.cfg, s.clk)
		if err != nil {
			s.lastErr = err.Error()
			return err
		}
		s.src = src
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	chunks := make(chan []byte, 64)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		defer close(chunks)
		s.readLoop(childCtx, chunks)
	}()
	go func() {
		defer s.wg.Done()
		s.driveLoop(childCtx, chunks)
	}()

	s.log.Infow("gps enabled", "source", s.src.Name(), "tick", s.cfg.tick())
	return nil
}

// readLoop owns the source. It reconnects with backoff unless the source is finite.
func (s *Service) readLoop(ctx context.Context, out chan<- []byte) {
	const minBackoff = 250 * time.Millisecond
	const maxBackoff = 10 * time.Second
	backoff := minBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		rc, err := s.src.Open(ctx)
		if err != nil {
			s.setError(err)
			s.log.Warnw("gps source open failed", "source", s.src.Name(), "err", err, "retry", backoff)
			select {
			case <-ctx.Done():
				return
			case <-s.clk.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = minBackoff
		s.setConnected(true)

		// Closing the stream is the only way to unblock a pending tty or TCP read.
		stop := context.AfterFunc(ctx, func() { _ = rc.Close() })
		err = s.pump(ctx, rc, out)
		stop()
		_ = rc.Close()
		s.setConnected(false)

		if ctx.Err() != nil {
			return
		}
		if f, ok := s.src.(finiteSource); ok && f.Finite() && errors.Is(err, io.EOF) {
			s.log.Infow("gps source ended", "source", s.src.Name())
			return
		}
		s.setError(fmt.Errorf("gps read stopped: %w", err))
		s.log.Warnw("gps read stopped", "source", s.src.Name(), "err", err)

		// A source that opens and then fails at once must not spin.
		select {
		case <-ctx.Done():
			return
		case <-s.clk.After(minBackoff):
		}
	}
}

func (s *Service) pump(ctx context.Context, r io.Reader, out chan<- []byte) error {
	buf := make([]byte, 512)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			return err
		}
	}
}

// driveLoop is the single writer of engine state. Each tick drains whatever
// bytes are pending without blocking, then runs the freshness monitor.
func (s *Service) driveLoop(ctx context.Context, in <-chan []byte) {
	ticker := s.clk.Ticker(s.cfg.tick())
	defer ticker.Stop()

	wasValid := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := s.clk.Now()
	drain:
		for {
			select {
			case chunk, ok := <-in:
				if !ok {
					in = nil
					break drain
				}
				s.engine.Feed(now, chunk)
			default:
				break drain
			}
		}
		s.engine.Tick(now)

		snap := s.engine.Snapshot()
		s.last.Store(snap)
		if snap.HasValidFix != wasValid {
			wasValid = snap.HasValidFix
			if wasValid {
				s.log.Infow("gps fix acquired", "quality", snap.FixQuality, "satellites", snap.Satellites)
			} else {
				s.log.Infow("gps fix lost", "stale", snap.Stale, "quality", snap.FixQuality)
			}
		}
	}
}

// Snapshot returns the fix state published by the last tick.
func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (s *Service) Status() Status {
	if s == nil {
		return Status{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Enabled:   s.cfg.Enable,
		Source:    s.cfg.normalizedSource(),
		Connected: s.connected,
		LastError: s.lastErr,
	}
	if s.opens > 1 {
		st.Reconnects = s.opens - 1
	}
	if s.src != nil {
		st.Source = s.src.Name()
	}
	return st
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Service) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
	if v {
		s.opens++
	}
}

func (s *Service) setError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Do not touch the fix here; transient source issues shouldn't flip validity.
	s.lastErr = err.Error()
}

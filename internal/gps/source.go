package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"gpsbeacon/internal/sim"
)

// ErrUnsupportedSource is returned for an unknown Config.Source.
var ErrUnsupportedSource = errors.New("gps: unsupported source")

// Source opens a byte stream carrying NMEA sentences.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// finiteSource marks sources whose EOF means "done" rather than "reconnect".
type finiteSource interface {
	Finite() bool
}

func newSource(cfg Config, clk clock.Clock) (Source, error) {
	switch cfg.normalizedSource() {
	case "serial":
		return &serialSource{device: strings.TrimSpace(cfg.Device), baud: cfg.baud(), backend: cfg.Backend}, nil
	case "gpsd":
		return &gpsdSource{addr: strings.TrimSpace(cfg.GPSDAddr)}, nil
	case "file":
		if strings.TrimSpace(cfg.File) == "" {
			return nil, fmt.Errorf("gps file source requires a path")
		}
		return &fileSource{path: cfg.File, rate: cfg.FileRate, loop: cfg.FileLoop, clk: clk}, nil
	case "sim":
		return &simSource{sim: cfg.Sim, clk: clk}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, cfg.Source)
	}
}

type serialSource struct {
	device  string
	baud    int
	backend string
}

func (s *serialSource) Name() string {
	if s.device == "" {
		return "serial"
	}
	return s.device
}

func (s *serialSource) Open(ctx context.Context) (io.ReadCloser, error) {
	device := s.device
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return nil, fmt.Errorf("gps auto-detect failed: no /dev/ttyACM* or /dev/ttyUSB* found")
		}
	}
	switch strings.ToLower(strings.TrimSpace(s.backend)) {
	case "", "termios":
		f, err := openSerial(device, s.baud)
		if err != nil {
			return nil, fmt.Errorf("gps open failed device=%s baud=%d: %w", device, s.baud, err)
		}
		return f, nil
	case "goserial":
		port, err := openGoSerial(device, s.baud)
		if err != nil {
			return nil, fmt.Errorf("gps open failed device=%s baud=%d: %w", device, s.baud, err)
		}
		return port, nil
	default:
		return nil, fmt.Errorf("gps serial backend %q not supported", s.backend)
	}
}

func autoDetectDevice() string {
	// Keep it intentionally tiny and predictable.
	candidates := []string{}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyACM%d", i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, fmt.Sprintf("/dev/ttyUSB%d", i))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// errEmptyCapture stops a looping replay that would otherwise rescan a file
// with nothing in it forever.
var errEmptyCapture = errors.New("gps capture has no lines")

// fileSource replays a captured NMEA log, one line per 1/rate seconds.
type fileSource struct {
	path string
	rate float64
	loop bool
	clk  clock.Clock
}

func (s *fileSource) Name() string { return "file:" + s.path }

func (s *fileSource) Finite() bool { return !s.loop }

func (s *fileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	n, err := s.scan(func(string) bool { return false })
	if err != nil {
		return nil, fmt.Errorf("gps capture open failed: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", errEmptyCapture, s.path)
	}

	rate := s.rate
	if rate <= 0 {
		rate = 10
	}
	interval := time.Duration(float64(time.Second) / rate)

	return pacedPipe(ctx, s.clk, interval, func(tick func() bool, write func(...string) bool) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			stopped := false
			n, err := s.scan(func(line string) bool {
				if !tick() || !write(line) {
					stopped = true
					return false
				}
				return true
			})
			switch {
			case err != nil:
				return err
			case stopped:
				return nil
			case n == 0:
				return errEmptyCapture
			case !s.loop:
				return io.EOF
			}
		}
	}), nil
}

// scan passes each non-blank line of the capture to fn until fn returns
// false. It returns the number of lines seen.
func (s *fileSource) scan(fn func(line string) bool) (int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		n++
		if !fn(line) {
			return n, nil
		}
	}
	return n, sc.Err()
}

// simSource emits one GGA/RMC/GSV epoch per second for a simulated receiver.
type simSource struct {
	sim sim.OwnshipSim
	clk clock.Clock
}

func (s *simSource) Name() string { return "sim" }

func (s *simSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return pacedPipe(ctx, s.clk, time.Second, func(tick func() bool, write func(...string) bool) error {
		for {
			if !tick() {
				return nil
			}
			if !write(s.sim.Sentences(s.clk.Now().UTC())...) {
				return nil
			}
		}
	}), nil
}

// pacedPipe runs produce in a goroutine behind a pipe. tick blocks for the
// next interval and reports false once ctx is done; write sends its lines,
// CRLF terminated, as one chunk.
func pacedPipe(ctx context.Context, clk clock.Clock, interval time.Duration, produce func(tick func() bool, write func(lines ...string) bool) error) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		t := clk.Ticker(interval)
		defer t.Stop()
		tick := func() bool {
			select {
			case <-ctx.Done():
				return false
			case <-t.C:
				return true
			}
		}
		write := func(lines ...string) bool {
			var b strings.Builder
			for _, l := range lines {
				b.WriteString(l)
				b.WriteString("\r\n")
			}
			_, err := pw.Write([]byte(b.String()))
			return err == nil
		}
		err := produce(tick, write)
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = io.EOF
		}
		_ = pw.CloseWithError(err)
	}()
	return pr
}

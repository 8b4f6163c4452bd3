package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gpsbeacon/internal/config"
)

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cap.nmea")
	if err := os.WriteFile(path, []byte(capture), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func fileCfg(t *testing.T, path string) config.Config {
	t.Helper()
	cfg := config.Config{
		GPS: config.GPSConfig{
			Enable:   true,
			Source:   "file",
			File:     path,
			FileRate: 200,
			FileLoop: true,
			Tick:     10 * time.Millisecond,
		},
	}
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("DefaultAndValidate() error: %v", err)
	}
	return cfg
}

func TestNewRuntime_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Config{GPS: config.GPSConfig{Source: "carrier-pigeon"}}
	if _, err := newRuntime(cfg, nil, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRuntime_FileSourceAcquiresFix(t *testing.T) {
	r, err := newRuntime(fileCfg(t, writeCapture(t)), nil, nil, nil)
	if err != nil {
		t.Fatalf("newRuntime() error: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer r.Close()

	deadline := time.Now().Add(3 * time.Second)
	for !r.gps.Snapshot().HasValidFix {
		if time.Now().After(deadline) {
			t.Fatalf("no fix before deadline; status=%+v", r.gps.Status())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRuntime_ForwardsAcceptedSentences(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen udp: %v", err)
	}
	defer pc.Close()

	cfg := fileCfg(t, writeCapture(t))
	cfg.Forward.Enable = true
	cfg.Forward.Dest = pc.LocalAddr().String()

	r, err := newRuntime(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("newRuntime() error: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer r.Close()

	buf := make([]byte, 512)
	seen := map[string]bool{}
	_ = pc.SetReadDeadline(time.Now().Add(3 * time.Second))
	for !(seen["$GPGGA"] && seen["$GPRMC"]) {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("ReadFrom: %v (seen=%v)", err, seen)
		}
		got := string(buf[:n])
		if !strings.HasSuffix(got, "\r\n") {
			t.Fatalf("datagram not CRLF framed: %q", got)
		}
		head := sentencePrefix(got)
		if head != "$GPGGA" && head != "$GPRMC" {
			// Only sentences the engine accepted are forwarded.
			t.Fatalf("unexpected forwarded sentence %q", got)
		}
		seen[head] = true
	}

	if r.status.Snapshot(time.Time{}).Forwarded == 0 {
		t.Fatalf("forwarded counter not advanced")
	}
}

func TestRuntime_CloseWithoutStart(t *testing.T) {
	cfg := fileCfg(t, writeCapture(t))
	r, err := newRuntime(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("newRuntime() error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

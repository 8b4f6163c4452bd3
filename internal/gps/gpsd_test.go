package gps

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestGPSDSource_SendsWatchAndStreamsNMEA(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	gotWatch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		gotWatch <- line
		_, _ = io.WriteString(conn, "{\"class\":\"VERSION\",\"release\":\"3.25\"}\n")
		_, _ = io.WriteString(conn, ggaFix+"\r\n")
	}()

	src := &gpsdSource{addr: ln.Addr().String()}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rc, err := src.Open(ctx)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()

	select {
	case w := <-gotWatch:
		if w != gpsdWatchNMEA {
			t.Fatalf("watch=%q want %q", w, gpsdWatchNMEA)
		}
	case <-ctx.Done():
		t.Fatalf("gpsd never received WATCH")
	}

	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	e := NewEngine()
	if n := e.Feed(time.Now(), b); n != 1 {
		t.Fatalf("accepted=%d want 1", n)
	}
	snap := e.Snapshot()
	if !snap.HasValidFix {
		t.Fatalf("expected valid fix from gpsd stream")
	}
	if snap.Stats.Ignored != 1 {
		t.Fatalf("ignored=%d want 1 (JSON status line)", snap.Stats.Ignored)
	}
}

func TestGPSDSource_DefaultAddr(t *testing.T) {
	src := &gpsdSource{}
	if !strings.HasSuffix(src.Name(), gpsdDefaultAddr) {
		t.Fatalf("name=%q", src.Name())
	}
}

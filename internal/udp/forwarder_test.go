package udp

import (
	"errors"
	"net"
	"testing"
	"time"
)

type fakeConn struct {
	writes    [][]byte
	writeErr  error
	closed    bool
	closeErr  error
	writeHits int
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.writeHits++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return c.closeErr
}

func TestNewForwarder_DialsResolvedAddr(t *testing.T) {
	var gotNetwork string
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}

	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		gotNetwork = network
		gotRaddr = raddr
		return fc, nil
	}

	f, err := newForwarder("127.0.0.1:10110", net.ResolveUDPAddr, dial)
	if err != nil {
		t.Fatalf("newForwarder() error: %v", err)
	}
	defer f.Close()

	if gotNetwork != "udp" {
		t.Fatalf("network=%q want %q", gotNetwork, "udp")
	}
	if gotRaddr == nil || gotRaddr.Port != 10110 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:10110", gotRaddr)
	}
	if f.Dest() != "127.0.0.1:10110" {
		t.Fatalf("dest=%q", f.Dest())
	}
}

func TestNewForwarder_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("nope")
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return nil, resolveErr
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return &fakeConn{}, nil
	}

	_, err := newForwarder("bad:addr", resolve, dial)
	if !errors.Is(err, resolveErr) {
		t.Fatalf("err=%v want %v", err, resolveErr)
	}
}

func TestNewForwarder_DialFailure(t *testing.T) {
	dialErr := errors.New("unreachable")
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return nil, dialErr
	}
	_, err := newForwarder("127.0.0.1:1", net.ResolveUDPAddr, dial)
	if !errors.Is(err, dialErr) {
		t.Fatalf("err=%v want %v", err, dialErr)
	}
}

func TestForwarder_Send_EmptyNoWrite(t *testing.T) {
	fc := &fakeConn{}
	f := &Forwarder{dest: "x", conn: fc}

	if err := f.Send(nil); err != nil {
		t.Fatalf("Send(nil) error: %v", err)
	}
	if err := f.SendSentence("\r\n"); err != nil {
		t.Fatalf("SendSentence(empty) error: %v", err)
	}
	if fc.writeHits != 0 {
		t.Fatalf("expected no writes, got %d", fc.writeHits)
	}
}

func TestForwarder_SendSentence_FramesCRLF(t *testing.T) {
	fc := &fakeConn{}
	f := &Forwarder{dest: "x", conn: fc}

	if err := f.SendSentence("$GPGSV,1,1,00*79"); err != nil {
		t.Fatalf("SendSentence() error: %v", err)
	}
	if err := f.SendSentence("$GPGSV,1,1,00*79\r\n"); err != nil {
		t.Fatalf("SendSentence() error: %v", err)
	}
	if len(fc.writes) != 2 {
		t.Fatalf("writes=%d want 2", len(fc.writes))
	}
	for i, w := range fc.writes {
		if string(w) != "$GPGSV,1,1,00*79\r\n" {
			t.Fatalf("write[%d]=%q", i, w)
		}
	}
	if sent, failed := f.Counts(); sent != 2 || failed != 0 {
		t.Fatalf("sent=%d failed=%d", sent, failed)
	}
}

func TestForwarder_Send_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	fc := &fakeConn{writeErr: wantErr}
	f := &Forwarder{dest: "x", conn: fc}

	err := f.Send([]byte{0x01})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err=%v want %v", err, wantErr)
	}
	if _, failed := f.Counts(); failed != 1 {
		t.Fatalf("failed=%d want 1", failed)
	}
}

func TestForwarder_CloseThenSend(t *testing.T) {
	fc := &fakeConn{}
	f := &Forwarder{dest: "x", conn: fc}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !fc.closed {
		t.Fatalf("conn not closed")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if err := f.Send([]byte("x")); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("err=%v want net.ErrClosed", err)
	}
}

func TestForwarder_Loopback(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen udp: %v", err)
	}
	defer pc.Close()

	f, err := NewForwarder(pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewForwarder() error: %v", err)
	}
	defer f.Close()

	line := "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	if err := f.SendSentence(line); err != nil {
		t.Fatalf("SendSentence() error: %v", err)
	}

	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got := string(buf[:n]); got != line+"\r\n" {
		t.Fatalf("got %q", got)
	}
}

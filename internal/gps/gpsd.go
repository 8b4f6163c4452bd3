package gps

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// gpsdWatchNMEA asks gpsd to relay the receiver's raw NMEA sentences.
// gpsd still interleaves JSON status lines; the dispatcher ignores them.
const gpsdWatchNMEA = "?WATCH={\"enable\":true,\"nmea\":true}\n"

// gpsdSource reads NMEA through a running gpsd instead of owning the tty.
type gpsdSource struct {
	addr string
}

func (s *gpsdSource) Name() string { return "gpsd:" + s.address() }

func (s *gpsdSource) address() string {
	if strings.TrimSpace(s.addr) == "" {
		return gpsdDefaultAddr
	}
	return s.addr
}

func (s *gpsdSource) Open(ctx context.Context) (io.ReadCloser, error) {
	conn, err := dialGPSD(ctx, s.address())
	if err != nil {
		return nil, fmt.Errorf("gpsd dial failed addr=%s: %w", s.address(), err)
	}
	if err := gpsdWatch(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("gpsd watch failed: %w", err)
	}
	return conn, nil
}

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 2 * time.Second}
	if ctx == nil {
		return d.Dial("tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

func gpsdWatch(conn net.Conn) error {
	_, err := conn.Write([]byte(gpsdWatchNMEA))
	return err
}

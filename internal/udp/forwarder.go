// Package udp relays accepted NMEA sentences to a UDP listener, such as a
// chart plotter or an EFB app on the local network.
package udp

import (
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

type udpConn interface {
	io.Writer
	io.Closer
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Forwarder writes one datagram per sentence, CRLF terminated. It is safe
// for concurrent use.
type Forwarder struct {
	dest string

	mu     sync.Mutex
	conn   udpConn
	sent   uint64
	failed uint64
}

func NewForwarder(dest string) (*Forwarder, error) {
	return newForwarder(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newForwarder(dest string, resolve resolveFunc, dial dialFunc) (*Forwarder, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &Forwarder{dest: dest, conn: conn}, nil
}

func (f *Forwarder) Dest() string { return f.dest }

// Send writes payload as a single datagram. Empty payloads are skipped.
func (f *Forwarder) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return net.ErrClosed
	}
	if _, err := f.conn.Write(payload); err != nil {
		f.failed++
		return err
	}
	f.sent++
	return nil
}

// SendSentence frames line with CRLF and sends it.
func (f *Forwarder) SendSentence(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}
	return f.Send([]byte(line + "\r\n"))
}

// Counts returns the number of datagrams written and failed.
func (f *Forwarder) Counts() (sent, failed uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.failed
}

func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}

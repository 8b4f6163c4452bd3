package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gpsbeacon/internal/gps"
)

type captureSummary struct {
	Path     string
	Lines    int
	Prefixes map[string]int
	Final    gps.Snapshot
}

// summarizeCapture replays r through an Engine pinned to one instant, so
// freshness never expires and the final snapshot reflects the last values.
func summarizeCapture(r io.Reader) (captureSummary, error) {
	s := captureSummary{Prefixes: map[string]int{}}
	e := gps.NewEngine()
	at := time.Unix(0, 0)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		s.Lines++
		s.Prefixes[sentencePrefix(line)]++
		e.FeedLine(at, line)
	}
	if err := sc.Err(); err != nil {
		return s, err
	}
	s.Final = e.Snapshot()
	return s, nil
}

// sentencePrefix returns the "$TTSSS" head of an NMEA line, or "other".
func sentencePrefix(line string) string {
	if len(line) < 6 || line[0] != '$' {
		return "other"
	}
	head := line[:6]
	if strings.ContainsAny(head[1:], ",*") {
		return "other"
	}
	return head
}

func summarizeCaptureFile(path string) (captureSummary, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return captureSummary{}, fmt.Errorf("path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return captureSummary{}, err
	}
	defer f.Close()

	s, err := summarizeCapture(f)
	s.Path = path
	return s, err
}

func (s captureSummary) String() string {
	var b strings.Builder
	st := s.Final.Stats
	d := s.Final.Display()

	fmt.Fprintf(&b, "path: %s\n", s.Path)
	fmt.Fprintf(&b, "lines: %d\n", s.Lines)
	fmt.Fprintf(&b, "accepted: gga=%d rmc=%d gsv=%d\n", st.GGA, st.RMC, st.GSV)
	fmt.Fprintf(&b, "ignored: %d malformed: %d short: %d overflows: %d\n", st.Ignored, st.Malformed, st.ShortLines, st.Overflows)

	keys := make([]string, 0, len(s.Prefixes))
	for k := range s.Prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(&b, "prefix_counts:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %d\n", k, s.Prefixes[k])
	}

	fmt.Fprintf(&b, "final:\n")
	fmt.Fprintf(&b, "  fix: %t (%s)\n", d.Fix, d.Status)
	fmt.Fprintf(&b, "  time: %s %s\n", d.Date, d.Time)
	fmt.Fprintf(&b, "  position: %s, %s\n", d.Latitude, d.Longitude)
	fmt.Fprintf(&b, "  altitude: %s\n", d.Altitude)
	fmt.Fprintf(&b, "  speed: %s course: %s\n", d.Speed, d.Course)
	fmt.Fprintf(&b, "  satellites: %d\n", d.Satellites)
	return b.String()
}

package gps

import (
	"time"
)

// NoData is the display text for a field that has not been acquired yet.
const NoData = "no data"

// StaleAfter is the freshness window. A fix older than this is never valid.
const StaleAfter = 5000 * time.Millisecond

// FixStatus is the RMC status flag.
type FixStatus int

const (
	StatusUnknown FixStatus = iota
	StatusValid
	StatusInvalid
)

func (s FixStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

func (s FixStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *FixStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "valid":
		*s = StatusValid
	case "invalid":
		*s = StatusInvalid
	default:
		*s = StatusUnknown
	}
	return nil
}

// optional tags a value as acquired or not.
type optional[T any] struct {
	v  T
	ok bool
}

func some[T any](v T) optional[T] { return optional[T]{v: v, ok: true} }

func (o optional[T]) ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}

// Measurement is a numeric reading together with its display text.
type Measurement struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

// fixState is the single mutable aggregate behind an Engine.
type fixState struct {
	utcTime optional[ClockTime]
	utcDate optional[CalendarDate]

	lat optional[Coordinate]
	lon optional[Coordinate]

	altitude optional[Measurement]
	speed    optional[Measurement]
	course   optional[Measurement]

	satellites int
	fixQuality int
	status     FixStatus

	lastUpdate time.Time
	valid      bool
}

func (s *fixState) touch(now time.Time) {
	s.lastUpdate = now
}

// fresh reports whether the last accepted sentence is inside the freshness window.
func (s *fixState) fresh(now time.Time) bool {
	if s.lastUpdate.IsZero() {
		return false
	}
	return now.Sub(s.lastUpdate) < StaleAfter
}

// recompute derives validity from quality and freshness. It is the only writer of valid.
func (s *fixState) recompute(now time.Time) {
	s.valid = s.fixQuality > 0 && s.fresh(now)
}

func (s *fixState) snapshot(now time.Time) Snapshot {
	out := Snapshot{
		HasValidFix: s.valid,
		FixQuality:  s.fixQuality,
		Satellites:  s.satellites,
		Status:      s.status,
		Time:        s.utcTime.ptr(),
		Date:        s.utcDate.ptr(),
		Latitude:    s.lat.ptr(),
		Longitude:   s.lon.ptr(),
		Altitude:    s.altitude.ptr(),
		Speed:       s.speed.ptr(),
		Course:      s.course.ptr(),
	}
	if !s.lastUpdate.IsZero() {
		out.LastUpdate = s.lastUpdate
		out.Age = now.Sub(s.lastUpdate)
		out.Stale = !s.fresh(now)
	}
	return out
}

// Snapshot is a read-only copy of the fix state.
//
// Pointer fields are nil until the field has been received at least once, so
// consumers can tell "never received" (nil) apart from "stale" (Stale=true).
type Snapshot struct {
	HasValidFix bool      `json:"has_valid_fix"`
	Stale       bool      `json:"stale"`
	Status      FixStatus `json:"status"`
	FixQuality  int       `json:"fix_quality"`
	Satellites  int       `json:"satellites"`

	Time      *ClockTime    `json:"time,omitempty"`
	Date      *CalendarDate `json:"date,omitempty"`
	Latitude  *Coordinate   `json:"latitude,omitempty"`
	Longitude *Coordinate   `json:"longitude,omitempty"`
	Altitude  *Measurement  `json:"altitude,omitempty"`
	Speed     *Measurement  `json:"speed,omitempty"`
	Course    *Measurement  `json:"course,omitempty"`

	LastUpdate time.Time     `json:"last_update,omitempty"`
	Age        time.Duration `json:"age_ns,omitempty"`

	Stats Stats `json:"stats"`
}

// Display is the string view consumed by screens and web pages.
type Display struct {
	Time       string `json:"time"`
	Date       string `json:"date"`
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	Altitude   string `json:"altitude"`
	Speed      string `json:"speed"`
	Course     string `json:"course"`
	Satellites int    `json:"satellites"`
	Status     string `json:"status"`
	Fix        bool   `json:"fix"`
}

// Display renders every field, substituting NoData where nothing was received.
func (s Snapshot) Display() Display {
	d := Display{
		Time:       NoData,
		Date:       NoData,
		Latitude:   NoData,
		Longitude:  NoData,
		Altitude:   NoData,
		Speed:      NoData,
		Course:     NoData,
		Satellites: s.Satellites,
		Status:     s.Status.String(),
		Fix:        s.HasValidFix,
	}
	if s.Time != nil {
		d.Time = s.Time.String()
	}
	if s.Date != nil {
		d.Date = s.Date.String()
	}
	if s.Latitude != nil {
		d.Latitude = s.Latitude.Text
	}
	if s.Longitude != nil {
		d.Longitude = s.Longitude.Text
	}
	if s.Altitude != nil {
		d.Altitude = s.Altitude.Text
	}
	if s.Speed != nil {
		d.Speed = s.Speed.Text
	}
	if s.Course != nil {
		d.Course = s.Course.Text
	}
	return d
}

// Stats counts what the engine has seen since construction.
type Stats struct {
	Bytes      uint64 `json:"bytes"`
	Sentences  uint64 `json:"sentences"`
	GGA        uint64 `json:"gga"`
	RMC        uint64 `json:"rmc"`
	GSV        uint64 `json:"gsv"`
	Ignored    uint64 `json:"ignored"`
	Malformed  uint64 `json:"malformed"`
	Overflows  uint64 `json:"overflows"`
	ShortLines uint64 `json:"short_lines"`
}

package gps

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// KnotsToKmh is the exact nautical mile to kilometre factor.
const KnotsToKmh = 1.852

// Coordinate is one decoded latitude or longitude.
//
// Decimal and Text come from the same intermediate value so they never drift.
type Coordinate struct {
	Decimal    float64 `json:"decimal"`
	Hemisphere string  `json:"hemisphere"`
	Text       string  `json:"text"`
}

// ParseCoordinate decodes an NMEA ddmm.mmmm (latitude) or dddmm.mmmm (longitude)
// token plus hemisphere letter. Tokens shorter than 4 characters, minutes of 60
// or more, and values beyond 90 (N/S) or 180 (E/W or no hemisphere) degrees are
// rejected and yield the zero Coordinate with ok=false.
func ParseCoordinate(token, hemi string) (Coordinate, bool) {
	token = strings.TrimSpace(token)
	hemi = strings.ToUpper(strings.TrimSpace(hemi))
	if len(token) < 4 {
		return Coordinate{}, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Coordinate{}, false
	}

	deg := math.Floor(v / 100)
	mins := v - deg*100
	if mins >= 60 {
		return Coordinate{}, false
	}
	dec := deg + mins/60
	if dec > coordinateLimit(hemi) {
		return Coordinate{}, false
	}

	// Display uses the magnitude; the hemisphere letter carries the sign.
	text := fmt.Sprintf("%.6f", dec)
	if hemi != "" {
		text += " " + hemi
	}
	if hemi == "S" || hemi == "W" {
		dec = -dec
	}
	return Coordinate{Decimal: dec, Hemisphere: hemi, Text: text}, true
}

func coordinateLimit(hemi string) float64 {
	if hemi == "N" || hemi == "S" {
		return 90
	}
	return 180
}

// ClockTime is a decoded UTC time of day.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// parseUTCTime decodes hhmmss[.sss]. Fields shorter than 6 characters are ignored.
// Non-numeric digits decode as zero rather than failing.
func parseUTCTime(s string) (ClockTime, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return ClockTime{}, false
	}
	return ClockTime{
		Hour:   atoiOrZero(s[0:2]),
		Minute: atoiOrZero(s[2:4]),
		Second: atoiOrZero(s[4:6]),
	}, true
}

// CalendarDate is a decoded UTC date. Year holds the two digits sent by the receiver.
type CalendarDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// String formats dd/mm/20yy; two-digit years are assumed to be after 2000.
func (d CalendarDate) String() string {
	return fmt.Sprintf("%02d/%02d/20%02d", d.Day, d.Month, d.Year)
}

// parseUTCDate decodes ddmmyy. Fields shorter than 6 characters are ignored.
func parseUTCDate(s string) (CalendarDate, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return CalendarDate{}, false
	}
	return CalendarDate{
		Day:   atoiOrZero(s[0:2]),
		Month: atoiOrZero(s[2:4]),
		Year:  atoiOrZero(s[4:6]),
	}, true
}

// FormatSpeed renders km/h with one decimal place.
func FormatSpeed(kmh float64) string {
	return fmt.Sprintf("%.1f km/h", kmh)
}

func atoiOrZero(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

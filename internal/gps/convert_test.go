package gps

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"gpsbeacon/internal/sim"
)

func TestParseCoordinate(t *testing.T) {
	cases := []struct {
		name     string
		token    string
		hemi     string
		wantOK   bool
		wantDec  float64
		wantText string
	}{
		{"lat north", "4807.038", "N", true, 48.1173, "48.117300 N"},
		{"lat south", "3351.6000", "S", true, -33.86, "33.860000 S"},
		{"lon east", "01131.000", "E", true, 11.5166666667, "11.516667 E"},
		{"lon west", "12218.0000", "w", true, -122.3, "122.300000 W"},
		{"short", "480", "N", false, 0, ""},
		{"empty", "", "N", false, 0, ""},
		{"not a number", "48a7.0", "N", false, 0, ""},
		{"no hemisphere", "4807.038", "", true, 48.1173, "48.117300"},
		{"pole", "9000.000", "S", true, -90, "90.000000 S"},
		{"lat beyond pole", "9500.000", "N", false, 0, ""},
		{"lat just past pole", "9000.001", "N", false, 0, ""},
		{"antimeridian", "18000.000", "W", true, -180, "180.000000 W"},
		{"lon beyond antimeridian", "18100.000", "E", false, 0, ""},
		{"minutes overflow", "4860.000", "N", false, 0, ""},
		{"minutes just under 60", "4859.9999", "N", true, 48.9999983333, "48.999998 N"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, ok := ParseCoordinate(tc.token, tc.hemi)
			if ok != tc.wantOK {
				t.Fatalf("ok=%v want %v", ok, tc.wantOK)
			}
			if !ok {
				if c != (Coordinate{}) {
					t.Fatalf("rejected token should yield zero coordinate, got %+v", c)
				}
				return
			}
			if math.Abs(c.Decimal-tc.wantDec) > 1e-9 {
				t.Fatalf("decimal=%.10f want %.10f", c.Decimal, tc.wantDec)
			}
			if c.Text != tc.wantText {
				t.Fatalf("text=%q want %q", c.Text, tc.wantText)
			}
		})
	}
}

// textDecimal recovers the signed value carried by a display string.
func textDecimal(t *testing.T, text string) float64 {
	t.Helper()
	parts := strings.Fields(text)
	v, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	if len(parts) > 1 && (parts[1] == "S" || parts[1] == "W") {
		v = -v
	}
	return v
}

func TestParseCoordinate_RoundTripAndAgreement(t *testing.T) {
	for lat := -89.95; lat <= 89.95; lat += 0.731 {
		tok, hemi := sim.EncodeLat(lat)
		c, ok := ParseCoordinate(tok, hemi)
		if !ok {
			t.Fatalf("lat %v (%s %s) rejected", lat, tok, hemi)
		}
		if math.Abs(c.Decimal-lat) > 1e-4 {
			t.Fatalf("lat round trip %v -> %s%s -> %v", lat, tok, hemi, c.Decimal)
		}
		if (hemi == "S") != (c.Decimal < 0) && c.Decimal != 0 {
			t.Fatalf("sign mismatch for %s %s: %v", tok, hemi, c.Decimal)
		}
		if got := textDecimal(t, c.Text); math.Abs(got-c.Decimal) > 5e-7 {
			t.Fatalf("text %q disagrees with decimal %v", c.Text, c.Decimal)
		}
	}
	for lon := -179.95; lon <= 179.95; lon += 1.377 {
		tok, hemi := sim.EncodeLon(lon)
		c, ok := ParseCoordinate(tok, hemi)
		if !ok {
			t.Fatalf("lon %v (%s %s) rejected", lon, tok, hemi)
		}
		if math.Abs(c.Decimal-lon) > 1e-4 {
			t.Fatalf("lon round trip %v -> %s%s -> %v", lon, tok, hemi, c.Decimal)
		}
		if hemi == "W" && c.Decimal > 0 {
			t.Fatalf("west longitude positive: %v", c.Decimal)
		}
		if got := textDecimal(t, c.Text); math.Abs(got-c.Decimal) > 5e-7 {
			t.Fatalf("text %q disagrees with decimal %v", c.Text, c.Decimal)
		}
	}
}

func TestParseUTCTimeAndDate(t *testing.T) {
	tm, ok := parseUTCTime("235959.00")
	if !ok || tm.String() != "23:59:59" {
		t.Fatalf("time=%v ok=%v", tm, ok)
	}
	if _, ok := parseUTCTime("2359"); ok {
		t.Fatalf("expected short time rejected")
	}

	d, ok := parseUTCDate("010125")
	if !ok || d.String() != "01/01/2025" {
		t.Fatalf("date=%v ok=%v", d, ok)
	}
	if d.Day != 1 || d.Month != 1 || d.Year != 25 {
		t.Fatalf("date fields=%+v", d)
	}
	if _, ok := parseUTCDate("0101"); ok {
		t.Fatalf("expected short date rejected")
	}
}

func TestFormatSpeed(t *testing.T) {
	cases := map[float64]string{
		0:    "0.0 km/h",
		1:    "1.9 km/h",
		10.0: "18.5 km/h",
		22.4: "41.5 km/h",
	}
	for knots, want := range cases {
		if got := FormatSpeed(knots * KnotsToKmh); got != want {
			t.Fatalf("%v kn: got %q want %q", knots, got, want)
		}
	}
}

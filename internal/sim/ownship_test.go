package sim

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestOwnshipSim_Position_Invariants(t *testing.T) {
	s := OwnshipSim{
		CenterLatDeg: 45.0,
		CenterLonDeg: -122.0,
		RadiusNm:     1.0,
		Period:       60 * time.Second,
	}

	now := time.Date(2025, 12, 20, 19, 0, 0, 0, time.UTC)
	lat, lon, trk := s.Position(now)

	for name, v := range map[string]float64{"lat": lat, "lon": lon, "track": trk} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s invalid: %v", name, v)
		}
	}
	if trk < 0 || trk >= 360 {
		t.Fatalf("track out of range: %v", trk)
	}

	radiusDeg := s.RadiusNm / 60.0
	if math.Abs(lat-s.CenterLatDeg) > radiusDeg*1.01 {
		t.Fatalf("lat offset too large: got %f want <= %f", math.Abs(lat-s.CenterLatDeg), radiusDeg)
	}
	maxLonDeg := radiusDeg / math.Cos(s.CenterLatDeg*math.Pi/180.0)
	if math.Abs(lon-s.CenterLonDeg) > maxLonDeg*1.01 {
		t.Fatalf("lon offset too large: got %f want <= %f", math.Abs(lon-s.CenterLonDeg), maxLonDeg)
	}
}

func TestOwnshipSim_Sentences_Checksummed(t *testing.T) {
	s := OwnshipSim{CenterLatDeg: -33.86, CenterLonDeg: 151.2}
	now := time.Date(2025, 12, 20, 19, 4, 5, 0, time.UTC)
	lines := s.Sentences(now)
	if len(lines) != 4 {
		t.Fatalf("lines=%d want 4", len(lines))
	}

	prefixes := []string{"$GPGGA,190405.00,", "$GPRMC,190405.00,A,", "$GPGSV,2,1,08,01,", "$GPGSV,2,2,08,05,"}
	for i, line := range lines {
		if !strings.HasPrefix(line, prefixes[i]) {
			t.Fatalf("line %d=%q want prefix %q", i, line, prefixes[i])
		}
		star := strings.LastIndexByte(line, '*')
		if star == -1 || len(line)-star != 3 {
			t.Fatalf("line %d missing checksum: %q", i, line)
		}
		if got := Checksum(line[1:star]); got != line {
			t.Fatalf("checksum mismatch: %q vs %q", got, line)
		}
	}
	if !strings.Contains(lines[0], ",S,") || !strings.Contains(lines[0], ",E,") {
		t.Fatalf("expected S/E hemispheres: %q", lines[0])
	}
	if !strings.Contains(lines[1], ",201225,") {
		t.Fatalf("expected ddmmyy date: %q", lines[1])
	}
}

func TestEncodeLatLon(t *testing.T) {
	cases := []struct {
		name     string
		enc      func(float64) (string, string)
		deg      float64
		wantTok  string
		wantHemi string
	}{
		{"lat north", EncodeLat, 48.1173, "4807.0380", "N"},
		{"lat south", EncodeLat, -0.5, "0030.0000", "S"},
		{"lon east", EncodeLon, 11.516666666, "01131.0000", "E"},
		{"lon west", EncodeLon, -122.999999999, "12300.0000", "W"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, hemi := tc.enc(tc.deg)
			if tok != tc.wantTok || hemi != tc.wantHemi {
				t.Fatalf("got %s,%s want %s,%s", tok, hemi, tc.wantTok, tc.wantHemi)
			}
		})
	}
}

// Package sim generates NMEA traffic for a receiver flying a deterministic track.
package sim

import (
	"fmt"
	"math"
	"time"
)

// OwnshipSim describes the simulated receiver. Zero values fall back to
// sensible defaults so an empty config still produces a fix.
type OwnshipSim struct {
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltMeters    float64       `yaml:"alt_m"`
	GroundKt     float64       `yaml:"ground_kt"`
	RadiusNm     float64       `yaml:"radius_nm"`
	Period       time.Duration `yaml:"period"`
	Satellites   int           `yaml:"satellites"`
	// NoFix makes the receiver report quality 0 and status V.
	NoFix bool `yaml:"no_fix"`
}

// Position returns a figure-eight track around the configured center.
func (s OwnshipSim) Position(now time.Time) (latDeg, lonDeg, trackDeg float64) {
	period := s.Period
	if period <= 0 {
		period = 120 * time.Second
	}
	radiusNm := s.RadiusNm
	if radiusNm <= 0 {
		radiusNm = 0.5
	}

	// ~60 NM per degree of latitude.
	radiusDeg := radiusNm / 60.0

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())

	//	x = cos(2πt)      east-west, scaled by cos(lat) for longitude
	//	y = 0.5*sin(4πt)  north-south
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	latDeg = s.CenterLatDeg + radiusDeg*y
	lonDeg = s.CenterLonDeg + (radiusDeg*x)/math.Cos(s.CenterLatDeg*math.Pi/180.0)

	vx := -2 * math.Pi * math.Sin(w)
	vy := 2 * math.Pi * math.Cos(2*w)
	trackDeg = math.Mod((math.Atan2(vx, vy)*180/math.Pi)+360, 360)
	return latDeg, lonDeg, trackDeg
}

// Sentences renders one receiver epoch as checksummed GGA, RMC and GSV lines
// (no line terminators). GSV is split four satellites per message.
func (s OwnshipSim) Sentences(now time.Time) []string {
	now = now.UTC()
	lat, lon, trk := s.Position(now)

	alt := s.AltMeters
	if alt == 0 {
		alt = 545.4
	}
	gs := s.GroundKt
	if gs <= 0 {
		gs = 22.4
	}
	sats := s.Satellites
	if sats <= 0 {
		sats = 8
	}
	quality, status := 1, "A"
	if s.NoFix {
		quality, status = 0, "V"
	}

	hhmmss := now.Format("150405") + fmt.Sprintf(".%02d", now.Nanosecond()/1e7)
	latTok, latHemi := EncodeLat(lat)
	lonTok, lonHemi := EncodeLon(lon)

	gga := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,%d,%02d,0.9,%.1f,M,46.9,M,,",
		hhmmss, latTok, latHemi, lonTok, lonHemi, quality, sats, alt)
	rmc := fmt.Sprintf("GPRMC,%s,%s,%s,%s,%s,%s,%.1f,%.1f,%s,,,A",
		hhmmss, status, latTok, latHemi, lonTok, lonHemi, gs, trk, now.Format("020106"))
	out := []string{Checksum(gga), Checksum(rmc)}
	return append(out, gsvSentences(sats)...)
}

// gsvSentences spreads sats over GSV messages of four satellites each.
func gsvSentences(sats int) []string {
	msgs := (sats + 3) / 4
	out := make([]string, 0, msgs)
	for m := 0; m < msgs; m++ {
		payload := fmt.Sprintf("GPGSV,%d,%d,%02d", msgs, m+1, sats)
		for i := m * 4; i < sats && i < (m+1)*4; i++ {
			prn := i + 1
			payload += fmt.Sprintf(",%02d,%02d,%03d,%02d", prn, 15+(i*7)%70, (i*47)%360, 30+(i*3)%20)
		}
		out = append(out, Checksum(payload))
	}
	return out
}

// EncodeLat formats decimal degrees as ddmm.mmmm plus N/S.
func EncodeLat(deg float64) (string, string) {
	hemi := "N"
	if deg < 0 {
		hemi = "S"
	}
	d, m := degMin(deg)
	return fmt.Sprintf("%02d%07.4f", d, m), hemi
}

// EncodeLon formats decimal degrees as dddmm.mmmm plus E/W.
func EncodeLon(deg float64) (string, string) {
	hemi := "E"
	if deg < 0 {
		hemi = "W"
	}
	d, m := degMin(deg)
	return fmt.Sprintf("%03d%07.4f", d, m), hemi
}

func degMin(deg float64) (int, float64) {
	deg = math.Abs(deg)
	d := math.Floor(deg)
	m := math.Round((deg-d)*60*1e4) / 1e4
	if m >= 60 {
		d++
		m -= 60
	}
	return int(d), m
}

// Checksum wraps an NMEA payload as $payload*hh.
func Checksum(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X", payload, ck)
}

package gps

import (
	"strings"
	"time"
)

type sentenceKind int

const (
	kindUnknown sentenceKind = iota
	kindGGA
	kindRMC
	kindGSV
)

func (k sentenceKind) String() string {
	switch k {
	case kindGGA:
		return "GGA"
	case kindRMC:
		return "RMC"
	case kindGSV:
		return "GSV"
	default:
		return "unknown"
	}
}

// Minimum comma count per sentence type; anything shorter is dropped unparsed.
const (
	minGGADelims = 14
	minRMCDelims = 11
	minGSVDelims = 4
)

// GPS-only and multi-constellation talkers are both accepted.
var sentencePrefixes = map[string]sentenceKind{
	"$GPGGA": kindGGA,
	"$GNGGA": kindGGA,
	"$GPRMC": kindRMC,
	"$GNRMC": kindRMC,
	"$GPGSV": kindGSV,
	"$GNGSV": kindGSV,
}

// classify routes a sentence by its leading 6-character talker+type prefix.
func classify(line string) sentenceKind {
	if len(line) < 6 {
		return kindUnknown
	}
	return sentencePrefixes[line[:6]]
}

// splitFields splits a sentence on commas. A trailing *hh checksum is cut from
// the last field but never verified. len(result)-1 is the delimiter count.
func splitFields(line string) []string {
	if star := strings.LastIndexByte(line, '*'); star != -1 {
		line = line[:star]
	}
	return strings.Split(line, ",")
}

// apply parses one sentence into s. It returns false when the sentence was
// dropped for having too few fields; s is then untouched.
func (s *fixState) apply(now time.Time, kind sentenceKind, line string) bool {
	switch kind {
	case kindGGA:
		return s.applyGGA(now, line)
	case kindRMC:
		return s.applyRMC(now, line)
	case kindGSV:
		return s.applyGSV(now, line)
	default:
		return false
	}
}

// GGA: Global Positioning System Fix Data
// Fields:
//
//	0: talker+type
//	1: time (hhmmss.ss)
//	2: latitude (ddmm.mmmm)
//	3: N/S
//	4: longitude (dddmm.mmmm)
//	5: E/W
//	6: fix quality (0=invalid)
//	7: number of satellites
//	8: HDOP
//	9: altitude (meters)
//
// 10: units (M)
func (s *fixState) applyGGA(now time.Time, line string) bool {
	f := splitFields(line)
	if len(f)-1 < minGGADelims {
		return false
	}

	if t, ok := parseUTCTime(f[1]); ok {
		s.utcTime = some(t)
	}
	if lat, ok := ParseCoordinate(f[2], f[3]); ok {
		s.lat = some(lat)
	}
	if lon, ok := ParseCoordinate(f[4], f[5]); ok {
		s.lon = some(lon)
	}

	s.fixQuality = atoiOrZero(f[6])
	if sats := atoiOrZero(f[7]); sats >= 0 {
		s.satellites = sats
	}

	if alt := strings.TrimSpace(f[9]); alt != "" {
		s.altitude = some(Measurement{Value: floatOrZero(alt), Text: alt + " m"})
	}

	s.touch(now)
	return true
}

// RMC: Recommended Minimum Specific GNSS Data
// Fields (NMEA 0183 v2.3):
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2: status (A=active, V=void)
//	3: latitude (ddmm.mmmm)
//	4: N/S
//	5: longitude (dddmm.mmmm)
//	6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg)
//	9: date (ddmmyy)
func (s *fixState) applyRMC(now time.Time, line string) bool {
	f := splitFields(line)
	if len(f)-1 < minRMCDelims {
		return false
	}

	if strings.TrimSpace(f[2]) == "A" {
		s.status = StatusValid
	} else {
		s.status = StatusInvalid
	}

	kmh := floatOrZero(f[7]) * KnotsToKmh
	s.speed = some(Measurement{Value: kmh, Text: FormatSpeed(kmh)})

	if crs := strings.TrimSpace(f[8]); crs != "" {
		s.course = some(Measurement{Value: floatOrZero(crs), Text: crs + "°"})
	}

	if d, ok := parseUTCDate(f[9]); ok {
		s.utcDate = some(d)
	}

	s.touch(now)
	return true
}

// GSV: GNSS Satellites in View
// Fields:
//
//	0: talker+type
//	1: total number of GSV messages
//	2: message number
//	3: total satellites in view
func (s *fixState) applyGSV(now time.Time, line string) bool {
	f := splitFields(line)
	if len(f)-1 < minGSVDelims {
		return false
	}

	// Overwrites the GGA count; the last sentence wins.
	if inView := strings.TrimSpace(f[3]); inView != "" {
		if n := atoiOrZero(inView); n >= 0 {
			s.satellites = n
		}
	}

	s.touch(now)
	return true
}

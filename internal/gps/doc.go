// Package gps turns a raw NMEA byte stream into a continuously refreshed fix snapshot.
//
// It is intentionally small and geared toward a single receiver:
// - Frame bytes into sentences (Assembler)
// - Parse GGA for time/position/quality/altitude, RMC for status/speed/course/date,
//   GSV for satellites in view
// - Track freshness so a fix older than five seconds is never reported valid
//
// The Engine never blocks; a driver (Service) feeds it bytes and ticks it.
package gps

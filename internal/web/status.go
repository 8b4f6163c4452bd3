package web

import (
	"sync/atomic"
	"time"
)

// Status carries process-level counters for the consumers around the engine.
type Status struct {
	startUnixNano int64
	mqttPublished uint64
	mqttErrors    uint64
	forwarded     uint64
	streamClients int64
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	return s
}

func (s *Status) MarkPublished(err error) {
	if err != nil {
		atomic.AddUint64(&s.mqttErrors, 1)
		return
	}
	atomic.AddUint64(&s.mqttPublished, 1)
}

func (s *Status) MarkForwarded() {
	atomic.AddUint64(&s.forwarded, 1)
}

func (s *Status) clientJoined() { atomic.AddInt64(&s.streamClients, 1) }
func (s *Status) clientLeft()   { atomic.AddInt64(&s.streamClients, -1) }

type StatusSnapshot struct {
	Service       string `json:"service"`
	NowUTC        string `json:"now_utc"`
	UptimeSec     int64  `json:"uptime_sec"`
	MQTTPublished uint64 `json:"mqtt_published"`
	MQTTErrors    uint64 `json:"mqtt_errors"`
	Forwarded     uint64 `json:"forwarded_sentences"`
	StreamClients int64  `json:"stream_clients"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	return StatusSnapshot{
		Service:       "gpsbeacon",
		NowUTC:        nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:     int64(nowUTC.Sub(start).Seconds()),
		MQTTPublished: atomic.LoadUint64(&s.mqttPublished),
		MQTTErrors:    atomic.LoadUint64(&s.mqttErrors),
		Forwarded:     atomic.LoadUint64(&s.forwarded),
		StreamClients: atomic.LoadInt64(&s.streamClients),
	}
}

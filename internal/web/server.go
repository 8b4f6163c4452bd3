package web

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gpsbeacon/internal/gps"
)

// FixSource is what the web layer reads; gps.Service satisfies it.
type FixSource interface {
	Snapshot() gps.Snapshot
	Status() gps.Status
}

type Deps struct {
	Fix    FixSource
	Status *Status
	Logs   *LogBuffer
	Stream *Broadcaster
	Log    *zap.SugaredLogger

	// Level, when set, serves GET/PUT /api/log/level (zap.AtomicLevel does).
	Level http.Handler
}

type statusResponse struct {
	StatusSnapshot
	GPS gps.Status `json:"gps"`
}

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="2"><title>gpsbeacon</title></head>
<body>
<h1>gpsbeacon</h1>
{{if .Fix}}<p><b>Fix</b> ({{.Status}})</p>{{else}}<p><b>No Fix</b></p>{{end}}
<table>
<tr><td>Time (UTC)</td><td>{{.Time}}</td></tr>
<tr><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Latitude</td><td>{{.Latitude}}</td></tr>
<tr><td>Longitude</td><td>{{.Longitude}}</td></tr>
<tr><td>Altitude</td><td>{{.Altitude}}</td></tr>
<tr><td>Speed</td><td>{{.Speed}}</td></tr>
<tr><td>Course</td><td>{{.Course}}</td></tr>
<tr><td>Satellites</td><td>{{.Satellites}}</td></tr>
</table>
<p><a href="/api/fix">/api/fix</a> &middot; <a href="/api/status">/api/status</a> &middot; <a href="/api/logs?format=text">/api/logs</a></p>
</body></html>
`))

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func Handler(d Deps) http.Handler {
	if d.Status == nil {
		d.Status = NewStatus()
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/fix", getOnly(func(w http.ResponseWriter, r *http.Request) {
		if d.Fix == nil {
			http.Error(w, "gps unavailable", http.StatusServiceUnavailable)
			return
		}
		snap := d.Fix.Snapshot()
		writeJSON(w, FixMessage{Fix: snap, Display: snap.Display()})
	}))

	mux.HandleFunc("/api/status", getOnly(func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{StatusSnapshot: d.Status.Snapshot(time.Now().UTC())}
		if d.Fix != nil {
			resp.GPS = d.Fix.Status()
		}
		writeJSON(w, resp)
	}))

	if d.Logs != nil {
		mux.Handle("/api/logs", d.Logs.Handler())
	}
	if d.Level != nil {
		mux.Handle("/api/log/level", d.Level)
	}
	mux.Handle("/api/about", AboutHandler())
	mux.Handle("/api/stream", streamHandler(d.Stream, d.Status, d.Log))

	mux.HandleFunc("/", getOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		var disp gps.Display
		if d.Fix != nil {
			disp = d.Fix.Snapshot().Display()
		} else {
			disp = gps.Snapshot{}.Display()
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, disp); err != nil {
			d.Log.Warnw("index render failed", "err", err)
		}
	}))

	return mux
}

func Serve(ctx context.Context, listenAddr string, d Deps) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(d),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

package web

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"time"
)

// Version is set at link time with -ldflags "-X gpsbeacon/internal/web.Version=...".
var Version = ""

type AboutResponse struct {
	Service    string `json:"service"`
	NowUTC     string `json:"now_utc"`
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
}

func about(now time.Time) AboutResponse {
	resp := AboutResponse{
		Service:   "gpsbeacon",
		NowUTC:    now.UTC().Format(time.RFC3339Nano),
		GoVersion: runtime.Version(),
		Version:   Version,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return resp
	}
	resp.ModulePath = bi.Main.Path
	if resp.Version == "" {
		resp.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			resp.Commit = s.Value
		case "vcs.modified":
			resp.Dirty = s.Value == "true"
		}
	}
	return resp
}

func AboutHandler() http.Handler {
	return getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, about(time.Now()))
	})
}

package httpkit

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/ThriceCola/Kovi/internal/buildinfo"
)

// PluginStatus is one plugin's state as reported to the debug surface.
type PluginStatus struct {
	Name        string
	Enabled     bool
	Description string // markdown; may be empty
}

// PluginStatusProvider reports the current set of loaded plugins.
// Satisfied by a thin adapter over *plugin.Manager.
type PluginStatusProvider interface {
	Statuses() []PluginStatus
}

// NewDebugServer builds the admin/debug HTTP surface: an
// unauthenticated /healthz, and an admin-authenticated /plugins that
// renders each plugin's markdown description to HTML.
func NewDebugServer(addr string, auth *AdminAuth, plugins PluginStatusProvider) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(buildinfo.RuntimeInfo())
	})

	mux.Handle("/plugins", auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		statuses := plugins.Statuses()

		type rendered struct {
			Name            string `json:"name"`
			Enabled         bool   `json:"enabled"`
			DescriptionHTML string `json:"description_html,omitempty"`
		}
		out := make([]rendered, 0, len(statuses))
		for _, s := range statuses {
			var html string
			if s.Description != "" {
				var buf bytes.Buffer
				if err := goldmark.Convert([]byte(s.Description), &buf); err == nil {
					html = buf.String()
				}
			}
			out = append(out, rendered{Name: s.Name, Enabled: s.Enabled, DescriptionHTML: html})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})))

	return &http.Server{Addr: addr, Handler: mux}
}

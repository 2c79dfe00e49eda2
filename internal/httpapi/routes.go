// Package httpapi implements the HTTP directory endpoints that sit beside
// the websocket upgrade dispatcher: client/inspector listings, the injected
// client.js, and the open-debugger redirect (design §6).
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/dev-console/dev-console/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// defaultClientJS is the small instrumentation shim served at /client.js
// until DEV_MODE reloads it from disk (see cmd/relay's fsnotify watcher).
const defaultClientJS = `(function(){
  var ws = new WebSocket((location.protocol==='https:'?'wss://':'ws://') + location.host + '/client/' + crypto.randomUUID());
  window.__devConsoleSocket = ws;
})();`

var clientJS = struct {
	mu   sync.RWMutex
	body string
}{body: defaultClientJS}

// SetClientJS replaces the body served at /client.js, used by the DEV_MODE
// file watcher to pick up local edits without a restart.
func SetClientJS(body string) {
	clientJS.mu.Lock()
	clientJS.body = body
	clientJS.mu.Unlock()
}

// NewRouter builds the HTTP mux serving the directory endpoints. wsHandler
// answers every websocket upgrade (design §4.F); everything else here is a
// plain HTTP collaborator endpoint.
func NewRouter(srv *registry.Server, wsHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))

	r.Get("/json", listClients(srv))
	r.Get("/json/clients", listClients(srv))
	r.Get("/json/inspectors", listInspectors(srv))
	r.Get("/json/client/{id}", describeClient(srv))
	r.Get("/client.js", serveClientJS)
	r.HandleFunc("/client/{id}", wsHandler)
	r.HandleFunc("/devtools/{id}", wsHandler)
	r.HandleFunc("/inspector/device", wsHandler)
	r.HandleFunc("/", wsHandler)
	r.Get("/open-debugger", openDebugger(srv))

	return r
}

type clientSummary struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
	UA    string `json:"ua,omitempty"`
}

func listClients(srv *registry.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clients := srv.Clients()
		out := make([]clientSummary, len(clients))
		for i, c := range clients {
			out[i] = clientSummary{ID: c.ID, URL: c.URL, Title: c.Title, UA: c.UA}
		}
		writeJSON(w, out)
	}
}

type inspectorSummary struct {
	ID         string `json:"id"`
	DeviceName string `json:"deviceName"`
	AppName    string `json:"appName"`
	DeviceID   string `json:"deviceId"`
}

func listInspectors(srv *registry.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := srv.Inspectors.All()
		out := make([]inspectorSummary, len(all))
		for i, insp := range all {
			out[i] = inspectorSummary{ID: insp.ID, DeviceName: insp.DeviceName, AppName: insp.AppName, DeviceID: insp.DeviceID}
		}
		writeJSON(w, out)
	}
}

func describeClient(srv *registry.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		client := srv.GetClient(id)
		if client == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, clientSummary{ID: client.ID, URL: client.URL, Title: client.Title, UA: client.UA})
	}
}

func serveClientJS(w http.ResponseWriter, r *http.Request) {
	clientJS.mu.RLock()
	body := clientJS.body
	clientJS.mu.RUnlock()

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// openDebugger is the convenience redirect DevTools frontends use to attach
// to a given client id without constructing the devtools:// URL by hand.
func openDebugger(srv *registry.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("clientId")
		if srv.GetClient(id) == nil {
			http.NotFound(w, r)
			return
		}
		target := fmt.Sprintf("devtools://devtools/bundled/inspector.html?ws=%s/devtools/%s?clientId=%s", r.Host, id, id)
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

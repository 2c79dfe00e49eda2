package main

import (
	"net/http"

	"github.com/dev-console/dev-console/internal/inspector"
	"github.com/dev-console/dev-console/internal/logging"
	"github.com/dev-console/dev-console/internal/registry"
	"github.com/dev-console/dev-console/internal/relay"
	"github.com/dev-console/dev-console/internal/util"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dispatchUpgrade classifies the incoming request and routes it to the
// matching connection handler (design §4.F). Every handler owns its own
// read loop and runs for the lifetime of the connection, so it is launched
// in its own goroutine.
func dispatchUpgrade(w http.ResponseWriter, r *http.Request, srv *registry.Server, log *logging.Logger, reactotronEnabled bool) {
	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	route := relay.ClassifyUpgrade(r.URL.Path, query, reactotronEnabled)
	if route.Kind == relay.RouteUnknown {
		log.Log(logging.KindServer, "", "rejected upgrade for unrecognized path", map[string]any{"path": r.URL.Path}, "")
		http.NotFound(w, r)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.LogError(logging.KindServer, "", "upgrade failed", err)
		return
	}

	switch route.Kind {
	case relay.RouteWebClient:
		meta := registry.Client{
			URL:         query["url"],
			Title:       query["title"],
			Favicon:     query["favicon"],
			UA:          query["ua"],
			ConnectedAt: util.ParseTimestamp(query["time"]),
		}
		util.SafeGo(func() { relay.HandleWebClient(conn, route.ClientID, meta, srv, log) })
	case relay.RouteDevTools:
		util.SafeGo(func() { relay.HandleDevTools(conn, route.DevToolsID, route.ClientID, srv, log) })
	case relay.RouteRNInspector:
		info := inspector.ConnectInfo{
			DeviceName: query["name"],
			AppName:    query["app"],
			DeviceID:   query["device"],
		}
		util.SafeGo(func() { relay.HandleRNInspector(conn, info, srv, log) })
	case relay.RouteReactotron:
		util.SafeGo(func() { relay.HandleReactotron(conn, srv, log) })
	}
}

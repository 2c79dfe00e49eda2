package relay

import "strings"

// RouteKind identifies which connection handler an incoming upgrade belongs
// to (design §4.F).
type RouteKind int

const (
	// RouteUnknown means the path matched nothing recognized; the caller
	// should log and drop the connection.
	RouteUnknown RouteKind = iota
	RouteWebClient
	RouteDevTools
	RouteRNInspector
	RouteReactotron
)

// Route is the result of classifying an upgrade request.
type Route struct {
	Kind       RouteKind
	ClientID   string // set for RouteWebClient (the :id) and RouteDevTools (the bound clientId query param)
	DevToolsID string // set for RouteDevTools: the :id path segment
}

// ClassifyUpgrade implements the design §4.F dispatch table against a
// request's URL path and query parameters:
//
//	/client/:id                      -> web client (id = :id)
//	/devtools/:id?clientId=...       -> DevTools frontend (id = clientId query)
//	/inspector/device...             -> RN inspector
//	"" or "/"                        -> Reactotron, only if enabled
//	anything else                    -> unknown
func ClassifyUpgrade(path string, query map[string]string, reactotronEnabled bool) Route {
	trimmed := strings.Trim(path, "/")
	segments := []string{}
	if trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}

	switch {
	case len(segments) == 0:
		if reactotronEnabled {
			return Route{Kind: RouteReactotron}
		}
		return Route{Kind: RouteUnknown}
	case len(segments) == 2 && segments[0] == "client":
		return Route{Kind: RouteWebClient, ClientID: segments[1]}
	case len(segments) == 2 && segments[0] == "devtools":
		clientID := query["clientId"]
		if clientID == "" {
			return Route{Kind: RouteUnknown}
		}
		return Route{Kind: RouteDevTools, ClientID: clientID, DevToolsID: segments[1]}
	case len(segments) >= 2 && segments[0] == "inspector" && segments[1] == "device":
		return Route{Kind: RouteRNInspector}
	default:
		return Route{Kind: RouteUnknown}
	}
}

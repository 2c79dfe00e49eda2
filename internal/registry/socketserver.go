// Package registry implements the socket server (design §4.D): the
// authoritative map of connected web clients, DevTools frontends, and
// Reactotron clients, plus the fan-out used to push CDP events to every
// DevTools frontend bound to a given client.
package registry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dev-console/dev-console/internal/cache"
	"github.com/dev-console/dev-console/internal/cdp"
	"github.com/dev-console/dev-console/internal/inspector"
)

// Writer is a clonable, non-blocking frame sender owned by a connection
// handler (design §3 Ownership, §5 Backpressure).
type Writer interface {
	Send(frame []byte)
}

// Client is a connected web-client (the inspected page or app). The
// metadata fields are copied from the upgrade query string (design §4.E.1,
// §3 data model) and are informational only: nothing in the relay branches
// on them. The HTTP directory listing reports URL, Title and UA.
type Client struct {
	ID          string
	URL         string
	Title       string
	Favicon     string
	UA          string
	ConnectedAt time.Time
	Writer      Writer
}

// DevTools is a connected DevTools frontend bound to one client.
type DevTools struct {
	ID       string
	ClientID string
	Writer   Writer
}

// ReactotronClient is a connected Reactotron instrumentation client.
type ReactotronClient struct {
	ID     string
	Writer Writer

	mu            sync.Mutex
	subscriptions map[string]bool // state.values.subscribe dedup (design §4.E.4)
}

// Subscribed reports and records whether this client already subscribed to
// a given Redux store path, so duplicate subscribe commands are dropped.
func (r *ReactotronClient) Subscribed(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscriptions == nil {
		r.subscriptions = make(map[string]bool)
	}
	already := r.subscriptions[path]
	r.subscriptions[path] = true
	return already
}

// Server is the socket server: the registries for every connection kind
// plus the collaborators they share (design §4.D, §4.G).
type Server struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	devtools   map[string]*DevTools // devtools id -> DevTools
	reactotron map[string]*ReactotronClient

	Inspectors *inspector.Registry
	BodyCache  *cache.Cache
}

// New creates an empty socket server.
func New() *Server {
	return &Server{
		clients:    make(map[string]*Client),
		devtools:   make(map[string]*DevTools),
		reactotron: make(map[string]*ReactotronClient),
		Inspectors: inspector.New(),
		BodyCache:  cache.New(cache.DefaultCapacity),
	}
}

// RegisterClient adds or replaces a web client entry.
func (s *Server) RegisterClient(id string, w Writer) *Client {
	return s.RegisterClientWithMeta(id, Client{}, w)
}

// RegisterClientWithMeta adds or replaces a web client entry, copying the
// url/title/favicon/ua/time metadata from meta (design §3: "Client:
// {id, url?, title?, favicon?, ua?, time?, writer}").
func (s *Server) RegisterClientWithMeta(id string, meta Client, w Writer) *Client {
	c := &Client{ID: id, URL: meta.URL, Title: meta.Title, Favicon: meta.Favicon, UA: meta.UA, ConnectedAt: meta.ConnectedAt, Writer: w}
	s.mu.Lock()
	s.clients[id] = c
	s.mu.Unlock()
	return c
}

// UnregisterClient removes a web client and every DevTools frontend bound to
// it, mirroring the close-cascade in design §4.E.1.
func (s *Server) UnregisterClient(id string) []*DevTools {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
	var dropped []*DevTools
	for devID, dt := range s.devtools {
		if dt.ClientID == id {
			dropped = append(dropped, dt)
			delete(s.devtools, devID)
		}
	}
	return dropped
}

// GetClient returns the client for id, or nil.
func (s *Server) GetClient(id string) *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clients[id]
}

// Clients returns every connected web client.
func (s *Server) Clients() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

// RegisterDevTools binds a DevTools frontend to a client id.
func (s *Server) RegisterDevTools(id, clientID string, w Writer) *DevTools {
	dt := &DevTools{ID: id, ClientID: clientID, Writer: w}
	s.mu.Lock()
	s.devtools[id] = dt
	s.mu.Unlock()
	return dt
}

// UnregisterDevTools removes one DevTools frontend.
func (s *Server) UnregisterDevTools(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devtools, id)
}

// DevToolsForClient returns every DevTools frontend bound to clientID.
func (s *Server) DevToolsForClient(clientID string) []*DevTools {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*DevTools
	for _, dt := range s.devtools {
		if dt.ClientID == clientID {
			out = append(out, dt)
		}
	}
	return out
}

// RegisterReactotronClient adds a Reactotron client keyed by its uuid.
func (s *Server) RegisterReactotronClient(id string, w Writer) *ReactotronClient {
	rc := &ReactotronClient{ID: id, Writer: w}
	s.mu.Lock()
	s.reactotron[id] = rc
	s.mu.Unlock()
	return rc
}

// UnregisterReactotronClient drops a Reactotron client by id.
func (s *Server) UnregisterReactotronClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reactotron, id)
}

// GetReactotronClient returns the Reactotron client for id, or nil.
func (s *Server) GetReactotronClient(id string) *ReactotronClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactotron[id]
}

// SendCDPMessageToDevTools fans an envelope out to every DevTools frontend
// bound to clientID, and opportunistically caches an inline response body so
// a later Network.getResponseBody can be answered locally (design §4.G).
func (s *Server) SendCDPMessageToDevTools(clientID string, env cdp.Envelope) error {
	frame, err := json.Marshal(env)
	if err != nil {
		return err
	}
	s.cacheInlineBody(env)

	for _, dt := range s.DevToolsForClient(clientID) {
		dt.Writer.Send(frame)
	}
	return nil
}

func (s *Server) cacheInlineBody(env cdp.Envelope) {
	if env.Method != "Network.responseReceived" || len(env.Params) == 0 {
		return
	}
	var params struct {
		RequestID string `json:"requestId"`
		Response  struct {
			Body          string `json:"body"`
			Base64Encoded bool   `json:"base64Encoded"`
		} `json:"response"`
	}
	if err := json.Unmarshal(env.Params, &params); err != nil {
		return
	}
	if params.Response.Body == "" {
		return
	}
	s.BodyCache.Put(params.RequestID, params.Response.Body, params.Response.Base64Encoded)
}

// ClearAllConnections drops every registered client, DevTools frontend,
// Reactotron client, and RN inspector (design §4.D).
func (s *Server) ClearAllConnections() {
	s.mu.Lock()
	s.clients = make(map[string]*Client)
	s.devtools = make(map[string]*DevTools)
	s.reactotron = make(map[string]*ReactotronClient)
	s.mu.Unlock()
	s.Inspectors.ClearAll()
	s.BodyCache.Clear()
}

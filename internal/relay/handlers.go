package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/dev-console/dev-console/internal/cache"
	"github.com/dev-console/dev-console/internal/cdp"
	"github.com/dev-console/dev-console/internal/inspector"
	"github.com/dev-console/dev-console/internal/logging"
	"github.com/dev-console/dev-console/internal/reactotron"
	"github.com/dev-console/dev-console/internal/registry"
	"github.com/dev-console/dev-console/internal/util"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
)

// decompressParams reverses the gzip wrapper a sender may put around its
// real envelope to save bandwidth (design §4.E.1 step 2, §6). ok is false
// when raw is not a compressed-params wrapper.
func decompressParams(raw json.RawMessage) (inner cdp.Envelope, ok bool, err error) {
	var compressed cdp.CompressedParams
	if err := json.Unmarshal(raw, &compressed); err != nil || !compressed.Compressed {
		return cdp.Envelope{}, false, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(compressed.Data))
	if err != nil {
		return cdp.Envelope{}, false, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return cdp.Envelope{}, false, err
	}
	if err := json.Unmarshal(data, &inner); err != nil {
		return cdp.Envelope{}, false, err
	}
	return inner, true, nil
}

// HandleWebClient runs the read loop for an inspected web client (design
// §4.E.1): register it, forward every envelope it sends to bound DevTools
// frontends and RN inspectors, and cascade-remove bound DevTools on close.
func HandleWebClient(conn *websocket.Conn, clientID string, meta registry.Client, srv *registry.Server, log *logging.Logger) {
	writer := NewChanWriter(conn)
	defer writer.Close()

	srv.RegisterClientWithMeta(clientID, meta, writer)
	log.Log(logging.KindClient, clientID, "connected", nil, "")
	defer func() {
		dropped := srv.UnregisterClient(clientID)
		for _, dt := range dropped {
			if cw, ok := dt.Writer.(*ChanWriter); ok {
				cw.Close()
			}
		}
		log.Log(logging.KindClient, clientID, "disconnected", nil, "")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env cdp.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.LogError(logging.KindClient, clientID, "malformed envelope", err)
			continue
		}
		if len(env.Params) > 0 {
			if inner, ok, err := decompressParams(env.Params); err == nil && ok {
				env.Method = inner.Method
				env.Params = inner.Params
			}
		}

		if origin, path, ok := networkRequestOrigin(env); ok {
			log.Log(logging.KindClient, clientID, "received", map[string]any{"origin": origin, "path": path}, env.Method)
		} else {
			log.Log(logging.KindClient, clientID, "received", nil, env.Method)
		}
		if err := srv.SendCDPMessageToDevTools(clientID, env); err != nil {
			log.LogError(logging.KindClient, clientID, "fan-out failed", err)
		}
		if frame, err := json.Marshal(env); err == nil {
			for _, insp := range srv.Inspectors.All() {
				if insp.BoundClientID() == clientID && insp.Writer() != nil {
					insp.Writer().Send(frame)
				}
			}
		}
	}
}

// networkRequestOrigin pulls the origin and path out of a Network/Page
// envelope's url field, for diagnostic log correlation by site (design §7
// observability). Returns ok=false for envelopes that carry no URL.
func networkRequestOrigin(env cdp.Envelope) (origin, path string, ok bool) {
	switch env.Method {
	case "Network.responseReceived", "Network.requestWillBeSent", "Page.frameNavigated":
	default:
		return "", "", false
	}
	var withURL struct {
		URL      string `json:"url"`
		Request  struct {
			URL string `json:"url"`
		} `json:"request"`
		Response struct {
			URL string `json:"url"`
		} `json:"response"`
		Frame struct {
			URL string `json:"url"`
		} `json:"frame"`
	}
	if err := json.Unmarshal(env.Params, &withURL); err != nil {
		return "", "", false
	}
	raw := withURL.URL
	for _, candidate := range []string{withURL.Request.URL, withURL.Response.URL, withURL.Frame.URL} {
		if raw == "" {
			raw = candidate
		}
	}
	if raw == "" {
		return "", "", false
	}
	return util.ExtractOrigin(raw), util.ExtractURLPath(raw), true
}

// reactotronEnableMethods are additionally answered locally, but only for a
// DevTools frontend bound to a Reactotron synthetic client (design §4.E.2).
var reactotronEnableMethods = map[string]bool{
	"Runtime.enable": true, "Network.enable": true, "Console.enable": true, "Page.enable": true,
}

// HandleDevTools runs the read loop for a DevTools frontend (design
// §4.E.2): answer a handful of requests locally from the response-body
// cache and inspector registry, forward everything else to the bound
// client, and replay cached Redux snapshots for any RN inspector the client
// id resolves to.
func HandleDevTools(conn *websocket.Conn, devToolsID, clientID string, srv *registry.Server, log *logging.Logger) {
	writer := NewChanWriter(conn)
	defer writer.Close()

	srv.RegisterDevTools(devToolsID, clientID, writer)
	log.Log(logging.KindDevTools, devToolsID, "connected", map[string]any{"clientId": clientID}, "")
	defer func() {
		srv.UnregisterDevTools(devToolsID)
		log.Log(logging.KindDevTools, devToolsID, "disconnected", nil, "")
	}()

	pushReplayStoredEvents(srv, clientID)

	isReactotron := srv.GetReactotronClient(clientID) != nil
	if isReactotron {
		util.SafeGo(func() {
			time.Sleep(300 * time.Millisecond)
			pushExecutionContextCreated(writer)
		})
	}
	if insp := srv.Inspectors.FindByBoundClientID(clientID); insp != nil {
		util.SafeGo(func() {
			time.Sleep(200 * time.Millisecond)
			replayReduxSnapshots(writer, insp)
		})
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env cdp.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.LogError(logging.KindDevTools, devToolsID, "malformed envelope", err)
			continue
		}
		log.Log(logging.KindDevTools, devToolsID, "received", nil, env.Method)

		boundToInspector := srv.Inspectors.FindByBoundClientID(clientID) != nil

		if env.Method == "Network.getResponseBody" && !boundToInspector {
			answerResponseBody(writer, env, srv)
			continue
		}
		if isReactotron && reactotronEnableMethods[env.Method] {
			respondOK(writer, env.ID)
			if env.Method == "Runtime.enable" {
				util.SafeGo(func() {
					time.Sleep(50 * time.Millisecond)
					pushExecutionContextCreated(writer)
				})
			}
			continue
		}
		if isReactotron && env.Method == "Page.getResourceTree" {
			answerResourceTree(writer, env)
			continue
		}

		if client := srv.GetClient(clientID); client != nil {
			forwardRaw(client.Writer, data)
			continue
		}
		if insp := srv.Inspectors.FindByBoundClientID(clientID); insp != nil && insp.Writer() != nil {
			insp.Writer().Send(data)
		}
	}
}

// pushReplayStoredEvents asks the bound client to re-emit any cached state
// events it holds, mirroring DevTools's own attach-time replay (design
// §4.E.2).
func pushReplayStoredEvents(srv *registry.Server, clientID string) {
	client := srv.GetClient(clientID)
	if client == nil || client.Writer == nil {
		return
	}
	for _, method := range []string{"Storage.replayStoredEvents", "SessionReplay.replayStoredEvents"} {
		req, err := cdp.Event(method, map[string]any{})
		if err != nil {
			continue
		}
		frame, err := json.Marshal(req)
		if err != nil {
			continue
		}
		client.Writer.Send(frame)
	}
}

func pushExecutionContextCreated(w *ChanWriter) {
	ev, err := cdp.Event("Runtime.executionContextCreated", map[string]any{
		"context": map[string]any{
			"id":       1,
			"uniqueId": "1",
			"origin":   "reactotron://",
			"name":     "Reactotron",
			"auxData":  map[string]any{"isDefault": true},
		},
	})
	if err != nil {
		return
	}
	frame, err := json.Marshal(ev)
	if err != nil {
		return
	}
	w.Send(frame)
}

// replayReduxSnapshots pushes Redux.message INIT_INSTANCE/INIT frames for
// every cached store on insp, hydrating a late-attaching DevTools frontend
// (design §4.E.2, §4.C).
func replayReduxSnapshots(w *ChanWriter, insp *inspector.Inspector) {
	for _, store := range insp.ReduxStores() {
		emitReduxMessage(w, map[string]any{"type": "INIT_INSTANCE", "instanceId": store.InstanceID, "name": store.Name})
		emitReduxMessage(w, map[string]any{
			"type": "INIT", "instanceId": store.InstanceID, "name": store.Name,
			"payload": store.Payload, "maxAge": 50, "timestamp": store.Timestamp,
		})
	}
}

func emitReduxMessage(w *ChanWriter, payload map[string]any) {
	ev, err := cdp.Event("Redux.message", payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(ev)
	if err != nil {
		return
	}
	w.Send(frame)
}

func respondOK(w *ChanWriter, id json.RawMessage) {
	resp, err := cdp.Response(id, map[string]any{})
	if err != nil {
		return
	}
	frame, err := json.Marshal(resp)
	if err != nil {
		return
	}
	w.Send(frame)
}

func forwardRaw(w registry.Writer, data []byte) {
	w.Send(data)
}

func answerResponseBody(w *ChanWriter, env cdp.Envelope, srv *registry.Server) {
	var params struct {
		RequestID string `json:"requestId"`
	}
	_ = json.Unmarshal(env.Params, &params)
	entry, ok := srv.BodyCache.Get(params.RequestID)
	if !ok {
		entry = cache.Entry{}
	}
	resp, err := cdp.Response(env.ID, map[string]any{
		"body":          entry.Body,
		"base64Encoded": entry.Base64Encoded,
	})
	if err == nil {
		if frame, err := json.Marshal(resp); err == nil {
			w.Send(frame)
		}
	}
}

func answerResourceTree(w *ChanWriter, env cdp.Envelope) {
	resp, err := cdp.Response(env.ID, map[string]any{
		"frameTree": map[string]any{
			"frame":     map[string]any{"id": "1", "url": "", "mimeType": "text/plain"},
			"resources": []any{},
		},
	})
	if err == nil {
		if frame, err := json.Marshal(resp); err == nil {
			w.Send(frame)
		}
	}
}

// HandleRNInspector runs the read loop for an in-process React-Native debug
// agent (design §4.E.3): register or reuse its inspector row, accept Redux
// instance/state messages, and fan CDP-shaped messages out to bound DevTools.
func HandleRNInspector(conn *websocket.Conn, info inspector.ConnectInfo, srv *registry.Server, log *logging.Logger) {
	writer := NewChanWriter(conn)
	defer writer.Close()

	insp, reused := srv.Inspectors.CreateOrReuse(info, writer)
	event := "connected"
	if reused {
		event = "reconnected"
	}
	if insp.BoundClientID() == "" {
		srv.Inspectors.Associate(insp.ID, insp.ID)
	}
	log.Log(logging.KindRNInspector, insp.ID, event, map[string]any{"appName": info.AppName}, "")
	defer log.Log(logging.KindRNInspector, insp.ID, "disconnected", nil, "")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			log.LogError(logging.KindRNInspector, insp.ID, "malformed message", err)
			continue
		}

		switch msg.Type {
		case "Redux.message":
			handleReduxMessage(srv.Inspectors, insp.ID, msg.Payload)
		default:
			var env cdp.Envelope
			if err := json.Unmarshal(data, &env); err == nil && env.Method != "" {
				if clientID := insp.BoundClientID(); clientID != "" {
					_ = srv.SendCDPMessageToDevTools(clientID, env)
				}
			}
		}
	}
}

func handleReduxMessage(registryRef *inspector.Registry, inspectorID string, payload json.RawMessage) {
	var msg struct {
		Type       string `json:"type"`
		InstanceID string `json:"instanceId"`
		Name       string `json:"name"`
		Payload    string `json:"payload"`
		Timestamp  int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	switch msg.Type {
	case "INIT":
		registryRef.StoreReduxInstance(inspectorID, inspector.ReduxStoreInstance{
			InstanceID: msg.InstanceID, Name: msg.Name, Payload: msg.Payload, Timestamp: msg.Timestamp,
		})
	case "ACTION":
		registryRef.UpdateReduxState(inspectorID, msg.InstanceID, msg.Payload, msg.Timestamp)
	}
}

// HandleReactotron runs the read loop for a Reactotron instrumentation
// client (design §4.E.4): complete the client.intro/setClientId handshake,
// translate every subsequent command to CDP, and fan the result out to
// DevTools frontends bound to the assigned client id.
func HandleReactotron(conn *websocket.Conn, srv *registry.Server, log *logging.Logger) {
	writer := NewChanWriter(conn)
	defer writer.Close()

	var clientID string
	var rc *registry.ReactotronClient
	defer func() {
		if clientID == "" {
			return
		}
		srv.UnregisterReactotronClient(clientID)
		log.Log(logging.KindReactotron, clientID, "disconnected", nil, "")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd reactotron.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.LogError(logging.KindReactotron, clientID, "malformed command", err)
			continue
		}

		if cmd.Type == "client.intro" {
			clientID, rc = handleClientIntro(writer, srv, cmd, log)
			continue
		}
		if clientID == "" {
			continue // no client.intro yet; nothing to key this command under
		}
		if cmd.Type == "state.values.subscribe" {
			var sub struct {
				Paths []string `json:"paths"`
			}
			_ = json.Unmarshal(cmd.Payload, &sub)
			stillNew := false
			for _, path := range sub.Paths {
				if !rc.Subscribed(path) {
					stillNew = true
				}
			}
			if !stillNew {
				continue
			}
		}

		envs, err := reactotron.Translate(cmd)
		if err != nil {
			log.LogError(logging.KindReactotron, clientID, "translate failed", err)
			continue
		}
		for _, ev := range envs {
			if err := srv.SendCDPMessageToDevTools(clientID, ev); err != nil {
				log.LogError(logging.KindReactotron, clientID, "fan-out failed", err)
			}
		}
	}
}

// handleClientIntro completes the client.intro handshake (design §4.E.4):
// an absent or "~~~ null ~~~" clientId gets a fresh UUID pushed back via
// setClientId; a client-provided id is reused as-is, re-registering over
// any stale connection left behind by a reconnect.
func handleClientIntro(writer *ChanWriter, srv *registry.Server, cmd reactotron.Command, log *logging.Logger) (string, *registry.ReactotronClient) {
	clientID := cmd.ClientID
	if clientID == "" || clientID == "~~~ null ~~~" {
		clientID = uuid.NewString()
		sendSetClientID(writer, clientID)
		log.Log(logging.KindReactotron, clientID, "generated new client id", nil, "")
	} else {
		log.Log(logging.KindReactotron, clientID, "reconnected", nil, "")
	}
	rc := srv.RegisterReactotronClient(clientID, writer)
	log.Log(logging.KindReactotron, clientID, "handshake complete", nil, "")
	return clientID, rc
}

func sendSetClientID(w *ChanWriter, clientID string) {
	frame, err := json.Marshal(map[string]any{"type": "setClientId", "payload": clientID})
	if err != nil {
		return
	}
	w.Send(frame)
}

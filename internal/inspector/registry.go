// Package inspector implements the React-Native inspector registry (design §4.C):
// tracking RN debug-agent connections keyed by (device_id, app_name), with
// Redux store snapshots that survive writer reconnects.
package inspector

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer is the minimal interface a connection handler exposes to the
// registry: a clonable channel sender used to push envelopes to the socket's
// write task (design §3 Ownership — "a writer is owned by its connection
// handler and cloned to peers that need to send to it").
type Writer interface {
	// Send enqueues a raw text frame for delivery. It must never block
	// (design §5 Backpressure): the bounded channel behind it drops its
	// oldest frame when full.
	Send(frame []byte)
}

// ConnectInfo is the query-string metadata an RN agent supplies on attach.
type ConnectInfo struct {
	DeviceName string
	AppName    string
	DeviceID   string
}

// ReduxStoreInstance is a cached Redux snapshot used to hydrate a
// late-attaching DevTools frontend (design §3 entities, §4.E.2).
type ReduxStoreInstance struct {
	InstanceID string
	Name       string
	Payload    string // JSON-encoded state, kept as a string (design §3)
	Timestamp  int64  // milliseconds
}

// Inspector is a single RN debug-agent connection row.
type Inspector struct {
	mu sync.RWMutex

	ID            string
	DeviceName    string
	AppName       string
	DeviceID      string
	boundClientID string
	writer        Writer
	reduxStores   map[string]ReduxStoreInstance
}

// BoundClientID returns the client id this inspector is bound to.
func (i *Inspector) BoundClientID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.boundClientID
}

// Writer returns the current writer for this inspector.
func (i *Inspector) Writer() Writer {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.writer
}

// ReduxStores returns a snapshot of the cached Redux store instances.
func (i *Inspector) ReduxStores() []ReduxStoreInstance {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]ReduxStoreInstance, 0, len(i.reduxStores))
	for _, s := range i.reduxStores {
		out = append(out, s)
	}
	return out
}

func (i *Inspector) setWriter(w Writer) {
	i.mu.Lock()
	i.writer = w
	i.mu.Unlock()
}

// Registry tracks all connected RN inspectors. At most one live entry exists
// per (device_id, app_name) pair (design §4.C invariant).
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]*Inspector
	byDeviceApp map[string]string // "device_id\x00app_name" -> inspector id
}

// New creates an empty inspector registry.
func New() *Registry {
	return &Registry{
		byID:        make(map[string]*Inspector),
		byDeviceApp: make(map[string]string),
	}
}

func deviceAppKey(deviceID, appName string) string {
	return deviceID + "\x00" + appName
}

// CreateOrReuse finds an existing entry for (device_id, app_name) and swaps
// its writer, or allocates a fresh id. Returns the inspector and whether it
// was reused (for caller-side "reconnected" vs "connected" logging).
func (r *Registry) CreateOrReuse(info ConnectInfo, w Writer) (insp *Inspector, reused bool) {
	key := deviceAppKey(info.DeviceID, info.AppName)

	r.mu.Lock()
	if id, ok := r.byDeviceApp[key]; ok {
		if existing, ok := r.byID[id]; ok {
			r.mu.Unlock()
			existing.setWriter(w)
			return existing, true
		}
	}

	id := "rn-inspector-" + itoa(time.Now().UnixMilli()) + "-" + uuid.NewString()
	insp = &Inspector{
		ID:          id,
		DeviceName:  info.DeviceName,
		AppName:     info.AppName,
		DeviceID:    info.DeviceID,
		writer:      w,
		reduxStores: make(map[string]ReduxStoreInstance),
	}
	r.byID[id] = insp
	r.byDeviceApp[key] = id
	r.mu.Unlock()
	return insp, false
}

// Get returns the inspector for id, or nil.
func (r *Registry) Get(id string) *Inspector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// All returns every registered inspector.
func (r *Registry) All() []*Inspector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Inspector, 0, len(r.byID))
	for _, insp := range r.byID {
		out = append(out, insp)
	}
	return out
}

// Remove drops the inspector with the given id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	insp, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byDeviceApp, deviceAppKey(insp.DeviceID, insp.AppName))
}

// Associate sets bound_client_id. Idempotent.
func (r *Registry) Associate(inspectorID, clientID string) {
	insp := r.Get(inspectorID)
	if insp == nil {
		return
	}
	insp.mu.Lock()
	insp.boundClientID = clientID
	insp.mu.Unlock()
}

// StoreReduxInstance inserts or replaces a Redux snapshot by instance id.
func (r *Registry) StoreReduxInstance(inspectorID string, instance ReduxStoreInstance) {
	insp := r.Get(inspectorID)
	if insp == nil {
		return
	}
	insp.mu.Lock()
	insp.reduxStores[instance.InstanceID] = instance
	insp.mu.Unlock()
}

// UpdateReduxState mutates an existing snapshot's payload and timestamp. It
// is a silent no-op if the instance is unknown (design §4.C).
func (r *Registry) UpdateReduxState(inspectorID, instanceID, payload string, timestamp int64) {
	insp := r.Get(inspectorID)
	if insp == nil {
		return
	}
	insp.mu.Lock()
	defer insp.mu.Unlock()
	existing, ok := insp.reduxStores[instanceID]
	if !ok {
		return
	}
	existing.Payload = payload
	existing.Timestamp = timestamp
	insp.reduxStores[instanceID] = existing
}

// FindByBoundClientID returns the inspector row bound to clientID, or nil if
// no inspector claims it (design §4.E.2: "if the bound id maps to an
// inspector row").
func (r *Registry) FindByBoundClientID(clientID string) *Inspector {
	r.mu.RLock()
	ids := make([]*Inspector, 0, len(r.byID))
	for _, insp := range r.byID {
		ids = append(ids, insp)
	}
	r.mu.RUnlock()
	for _, insp := range ids {
		if insp.BoundClientID() == clientID {
			return insp
		}
	}
	return nil
}

// ReduxStores returns the cached Redux instances for an inspector.
func (r *Registry) ReduxStores(inspectorID string) []ReduxStoreInstance {
	insp := r.Get(inspectorID)
	if insp == nil {
		return nil
	}
	return insp.ReduxStores()
}

// ClearAll empties the registry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Inspector)
	r.byDeviceApp = make(map[string]string)
}

// Count returns the number of registered inspectors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

package inspector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	frames [][]byte
}

func (f *fakeWriter) Send(frame []byte) { f.frames = append(f.frames, frame) }

func TestCreateOrReuseAllocatesOncePerDeviceApp(t *testing.T) {
	t.Parallel()
	r := New()
	w1 := &fakeWriter{}

	insp1, reused1 := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp", DeviceName: "Pixel"}, w1)
	require.False(t, reused1)
	require.NotNil(t, insp1)
	assert.Equal(t, 1, r.Count())

	w2 := &fakeWriter{}
	insp2, reused2 := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp", DeviceName: "Pixel"}, w2)
	assert.True(t, reused2)
	assert.Equal(t, insp1.ID, insp2.ID)
	assert.Equal(t, 1, r.Count(), "second connect for same device+app must not allocate a new row")
	assert.Same(t, w2, insp2.Writer())
}

func TestCreateOrReuseDistinctAppsGetDistinctRows(t *testing.T) {
	t.Parallel()
	r := New()
	insp1, _ := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "AppA"}, &fakeWriter{})
	insp2, _ := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "AppB"}, &fakeWriter{})
	assert.NotEqual(t, insp1.ID, insp2.ID)
	assert.Equal(t, 2, r.Count())
}

func TestWriterSwapPreservesReduxSnapshots(t *testing.T) {
	t.Parallel()
	r := New()
	insp, _ := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp"}, &fakeWriter{})

	r.StoreReduxInstance(insp.ID, ReduxStoreInstance{InstanceID: "store-1", Name: "root", Payload: `{"count":1}`, Timestamp: 100})

	// Reconnect: a fresh writer replaces the old one, but the Redux snapshot
	// must survive the swap (design §4.C invariant).
	newWriter := &fakeWriter{}
	insp2, reused := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp"}, newWriter)
	require.True(t, reused)
	assert.Same(t, newWriter, insp2.Writer())

	stores := r.ReduxStores(insp2.ID)
	require.Len(t, stores, 1)
	assert.Equal(t, `{"count":1}`, stores[0].Payload)
}

func TestUpdateReduxStateMutatesExistingInstance(t *testing.T) {
	t.Parallel()
	r := New()
	insp, _ := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp"}, &fakeWriter{})
	r.StoreReduxInstance(insp.ID, ReduxStoreInstance{InstanceID: "store-1", Payload: `{"count":1}`, Timestamp: 100})

	r.UpdateReduxState(insp.ID, "store-1", `{"count":2}`, 200)

	stores := r.ReduxStores(insp.ID)
	require.Len(t, stores, 1)
	assert.Equal(t, `{"count":2}`, stores[0].Payload)
	assert.Equal(t, int64(200), stores[0].Timestamp)
}

func TestUpdateReduxStateIsNoOpForUnknownInstance(t *testing.T) {
	t.Parallel()
	r := New()
	insp, _ := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp"}, &fakeWriter{})
	r.UpdateReduxState(insp.ID, "nonexistent", `{"count":2}`, 200)
	assert.Empty(t, r.ReduxStores(insp.ID))
}

func TestAssociateSetsBoundClientID(t *testing.T) {
	t.Parallel()
	r := New()
	insp, _ := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp"}, &fakeWriter{})
	r.Associate(insp.ID, "client-7")
	assert.Equal(t, "client-7", r.Get(insp.ID).BoundClientID())
}

func TestRemoveDropsInspectorAndFreesDeviceAppSlot(t *testing.T) {
	t.Parallel()
	r := New()
	insp, _ := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp"}, &fakeWriter{})
	r.Remove(insp.ID)
	assert.Nil(t, r.Get(insp.ID))
	assert.Equal(t, 0, r.Count())

	// A fresh connect for the same device+app now allocates a new row rather
	// than reusing the removed one.
	insp2, reused := r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "MyApp"}, &fakeWriter{})
	assert.False(t, reused)
	assert.NotEqual(t, insp.ID, insp2.ID)
}

func TestAllReturnsEveryInspector(t *testing.T) {
	t.Parallel()
	r := New()
	r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "A"}, &fakeWriter{})
	r.CreateOrReuse(ConnectInfo{DeviceID: "dev-2", AppName: "B"}, &fakeWriter{})
	assert.Len(t, r.All(), 2)
}

func TestClearAllEmptiesRegistry(t *testing.T) {
	t.Parallel()
	r := New()
	r.CreateOrReuse(ConnectInfo{DeviceID: "dev-1", AppName: "A"}, &fakeWriter{})
	r.CreateOrReuse(ConnectInfo{DeviceID: "dev-2", AppName: "B"}, &fakeWriter{})
	r.ClearAll()
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.All())
}

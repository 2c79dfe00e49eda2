package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dev-console/dev-console/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopWS(w http.ResponseWriter, r *http.Request) {}

func TestListClientsReturnsRegisteredClients(t *testing.T) {
	t.Parallel()
	srv := registry.New()
	srv.RegisterClient("client-1", nil)
	router := NewRouter(srv, noopWS)

	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/json/clients")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out []clientSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "client-1", out[0].ID)
}

func TestDescribeClientNotFound(t *testing.T) {
	t.Parallel()
	srv := registry.New()
	router := NewRouter(srv, noopWS)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/json/client/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientJSIsServedAsJavaScript(t *testing.T) {
	t.Parallel()
	router := NewRouter(registry.New(), noopWS)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/client.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
}

func TestListInspectorsReturnsEmptyWhenNoneConnected(t *testing.T) {
	t.Parallel()
	srv := registry.New()
	router := NewRouter(srv, noopWS)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/json/inspectors")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []inspectorSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Empty(t, out)
}

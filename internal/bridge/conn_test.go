// conn_test.go — Tests for the server-readiness polling helpers.
package bridge

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func listenerPort(t *testing.T, ts *httptest.Server) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	if err != nil {
		t.Fatalf("split listener addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse listener port: %v", err)
	}
	return port
}

func TestIsServerRunningTrueWhenJSONEndpointAnswers(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	if !IsServerRunning(listenerPort(t, ts)) {
		t.Error("expected true once /json answers 200")
	}
}

func TestIsServerRunningFalseOnNonOKStatus(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	if IsServerRunning(listenerPort(t, ts)) {
		t.Error("expected false when /json answers non-200")
	}
}

func TestIsServerRunningFalseWhenNothingListening(t *testing.T) {
	t.Parallel()
	// Port 1 is a reserved low port nothing in this test suite binds to.
	if IsServerRunning(1) {
		t.Error("expected false for a port with no listener")
	}
}

func TestWaitForServerReturnsOnceListenerIsReady(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	if !WaitForServer(listenerPort(t, ts), time.Second) {
		t.Error("expected WaitForServer to observe the already-listening server")
	}
}

func TestWaitForServerTimesOutWhenNothingListens(t *testing.T) {
	t.Parallel()
	if WaitForServer(1, 50*time.Millisecond) {
		t.Error("expected WaitForServer to time out with no listener")
	}
}

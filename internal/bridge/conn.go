// Package bridge provides the connection-health helper the lifecycle
// controller polls after binding its listener: does the relay's own
// directory endpoint answer yet.
package bridge

import (
	"fmt"
	"net/http"
	"time"
)

// IsServerRunning checks if a server is answering on the given port via its directory endpoint.
func IsServerRunning(port int) bool {
	client := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/json", port)) // #nosec G704 -- localhost-only readiness probe
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// WaitForServer polls until the server starts accepting connections or the timeout elapses.
func WaitForServer(port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if IsServerRunning(port) {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// Package lifecycle implements the server lifecycle controller (design
// §4.H): start/stop/reset around the relay's HTTP server, with a one-shot
// graceful shutdown signal bounded by a fixed timeout.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dev-console/dev-console/internal/bridge"
	"github.com/dev-console/dev-console/internal/logging"
	"github.com/dev-console/dev-console/internal/registry"
	"golang.org/x/sync/errgroup"
)

// ShutdownStatus reports how a Stop call completed.
type ShutdownStatus int

const (
	// ShutdownNotRunning means Stop was called on a controller that was not running.
	ShutdownNotRunning ShutdownStatus = iota
	// ShutdownGraceful means every connection drained before the timeout.
	ShutdownGraceful
	// ShutdownWithIssues means shutdown completed but at least one close
	// reported an error (still within the timeout).
	ShutdownWithIssues
	// ShutdownTimeout means the graceful window elapsed before draining finished.
	ShutdownTimeout
)

func (s ShutdownStatus) String() string {
	switch s {
	case ShutdownGraceful:
		return "graceful"
	case ShutdownWithIssues:
		return "with_issues"
	case ShutdownTimeout:
		return "timeout"
	default:
		return "not_running"
	}
}

// GracefulTimeout bounds how long Stop waits for the HTTP server to drain
// before it reports ShutdownTimeout (design §4.H).
const GracefulTimeout = 5 * time.Second

// startupWait is how long Start waits for the listener to become reachable
// before reporting failure.
const startupWait = 2 * time.Second

// Controller owns the relay's HTTP server and its start/stop state machine.
type Controller struct {
	mu         sync.Mutex
	httpServer *http.Server
	handler    http.Handler
	port       int
	certPath   string
	keyPath    string
	running    bool
	shutdownCh chan struct{}
	shutOnce   sync.Once
	serveGroup *errgroup.Group
	serveErrCh chan error

	Registry *registry.Server
	Logger   *logging.Logger
}

// New creates a controller bound to the given handler and port. The handler
// typically comes from the HTTP directory endpoints plus the websocket
// upgrade dispatcher (design §4.F, §6). certPath/keyPath are optional; when
// both are set, Start terminates TLS directly instead of serving plain HTTP.
func New(handler http.Handler, port int, reg *registry.Server, log *logging.Logger, certPath, keyPath string) *Controller {
	return &Controller{
		handler:  handler,
		port:     port,
		certPath: certPath,
		keyPath:  keyPath,
		Registry: reg,
		Logger:   log,
	}
}

// IsRunning reports whether the controller believes its server is serving.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start launches the HTTP server in the background and waits for it to
// start accepting connections, returning an error if it never does.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("lifecycle: already running")
	}
	c.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.port),
		Handler:           c.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	c.shutdownCh = make(chan struct{})
	c.shutOnce = sync.Once{}
	c.running = true

	eg := &errgroup.Group{}
	eg.Go(func() error {
		var err error
		if c.certPath != "" && c.keyPath != "" {
			err = c.httpServer.ListenAndServeTLS(c.certPath, c.keyPath)
		} else {
			err = c.httpServer.ListenAndServe()
		}
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	c.serveGroup = eg
	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- eg.Wait() }()
	c.serveErrCh = serveErrCh
	c.mu.Unlock()

	if !bridge.WaitForServer(c.port, startupWait) {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		select {
		case err := <-serveErrCh:
			if err != nil {
				return fmt.Errorf("lifecycle: server failed to start: %w", err)
			}
		default:
		}
		return fmt.Errorf("lifecycle: server did not become ready within %s", startupWait)
	}

	if c.Logger != nil {
		c.Logger.Log(logging.KindServer, "", "started", map[string]any{"port": c.port}, "")
	}
	return nil
}

// Stop signals shutdown exactly once and waits up to GracefulTimeout for the
// HTTP server to drain, after first clearing every registry entry. It does
// not close the websocket connections those entries belonged to.
func (c *Controller) Stop() ShutdownStatus {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ShutdownNotRunning
	}
	c.mu.Unlock()

	c.shutOnce.Do(func() { close(c.shutdownCh) })

	if c.Registry != nil {
		c.Registry.ClearAllConnections()
	}

	ctx, cancel := context.WithTimeout(context.Background(), GracefulTimeout)
	defer cancel()

	err := c.httpServer.Shutdown(ctx)
	if serveErr := <-c.serveErrCh; serveErr != nil && err == nil {
		err = serveErr
	}

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if c.Logger != nil {
		c.Logger.Log(logging.KindServer, "", "stopped", nil, "")
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return ShutdownTimeout
	case err != nil:
		return ShutdownWithIssues
	default:
		return ShutdownGraceful
	}
}

// Reset stops the controller if running (which clears every registry) and
// starts it again (design §4.H).
func (c *Controller) Reset() error {
	if c.IsRunning() {
		c.Stop()
	}
	return c.Start()
}

// ShutdownSignal returns a channel that is closed exactly once, the moment
// Stop is first called, for callers (e.g. the CLI) that want to block until
// shutdown begins.
func (c *Controller) ShutdownSignal() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdownCh
}

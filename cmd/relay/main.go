// Command relay runs the multi-protocol debugging relay server: it bridges
// CDP web clients, React-Native in-process debug agents, and Reactotron
// mobile instrumentation clients to Chrome DevTools frontends over
// websockets (design §1, §4).
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dev-console/dev-console/internal/config"
	"github.com/dev-console/dev-console/internal/httpapi"
	"github.com/dev-console/dev-console/internal/lifecycle"
	"github.com/dev-console/dev-console/internal/logging"
	"github.com/dev-console/dev-console/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port     int
		host     string
		useSSL   bool
		certPath string
		keyPath  string
		devMode  bool
	)

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the multi-protocol debugging relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			explicit := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { explicit[f.Name] = true })
			cfg.ApplyFlags(port, host, useSSL, certPath, keyPath, devMode, explicit)
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 9090, "TCP port to listen on")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "host setting; the listener binds every interface regardless")
	cmd.Flags().BoolVar(&useSSL, "use-ssl", false, "terminate TLS directly")
	cmd.Flags().StringVar(&certPath, "ssl-cert-path", "", "TLS certificate path")
	cmd.Flags().StringVar(&keyPath, "ssl-key-path", "", "TLS key path")
	cmd.Flags().BoolVar(&devMode, "dev-mode", false, "reload client.js from disk on change")

	return cmd
}

func run(cfg config.Config) error {
	log, err := logging.New(cfg.LogEnabled, cfg.LogFilePath, cfg.LogMethods)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Close() }()

	srv := registry.New()
	wsHandler := newUpgradeHandler(srv, log, cfg.EnableReactotronServer)
	router := httpapi.NewRouter(srv, wsHandler)

	certPath, keyPath := "", ""
	if cfg.UseSSL {
		certPath, keyPath = cfg.SSLCertPath, cfg.SSLKeyPath
	}
	controller := lifecycle.New(router, cfg.Port, srv, log, certPath, keyPath)

	if cfg.DevMode {
		stopWatch, err := watchClientJS(log)
		if err != nil {
			log.LogError(logging.KindServer, "", "dev-mode watch failed to start", err)
		} else {
			defer stopWatch()
		}
	}

	if err := controller.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	status := controller.Stop()
	log.Log(logging.KindServer, "", "shutdown complete", map[string]any{"status": status.String()}, "")
	return nil
}

func newUpgradeHandler(srv *registry.Server, log *logging.Logger, reactotronEnabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dispatchUpgrade(w, r, srv, log, reactotronEnabled)
	}
}

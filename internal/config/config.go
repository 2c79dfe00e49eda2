// Package config loads relay configuration from flags and environment
// variables, following the Defaults -> Load -> loadEnvVars -> ApplyFlags ->
// Validate cascade the rest of this codebase uses for its CLI tools.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dev-console/dev-console/internal/state"
)

// Config holds every setting the relay's cmd entrypoint needs to stand up
// the server (design §6, §9 collaborators).
type Config struct {
	Port                   int
	Host                   string
	UseSSL                 bool
	SSLCertPath            string
	SSLKeyPath             string
	LogEnabled             bool
	LogMethods             []string
	LogFilePath            string
	DevMode                bool
	EnableReactotronServer bool
}

// Defaults returns the configuration used when neither an env var nor a
// flag overrides a setting.
func Defaults() Config {
	return Config{
		Port:                   9090,
		Host:                   "0.0.0.0",
		UseSSL:                 false,
		LogEnabled:             true,
		LogFilePath:            "",
		DevMode:                false,
		EnableReactotronServer: true,
	}
}

// Load builds a Config by layering environment variables over the defaults.
// Flags, if any, are applied afterward by ApplyFlags so that an explicit
// flag always wins over an env var.
func Load() (Config, error) {
	cfg := Defaults()
	loadEnvVars(&cfg)
	if cfg.LogEnabled && cfg.LogFilePath == "" {
		if path, err := state.DefaultLogFile(); err == nil {
			cfg.LogFilePath = path
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvVars(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("USE_SSL"); v != "" {
		cfg.UseSSL = parseBool(v, cfg.UseSSL)
	}
	if v := os.Getenv("SSL_CERT_PATH"); v != "" {
		cfg.SSLCertPath = v
	}
	if v := os.Getenv("SSL_KEY_PATH"); v != "" {
		cfg.SSLKeyPath = v
	}
	if v := os.Getenv("LOG_ENABLED"); v != "" {
		cfg.LogEnabled = parseBool(v, cfg.LogEnabled)
	}
	if v := os.Getenv("LOG_METHODS"); v != "" {
		cfg.LogMethods = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		cfg.LogFilePath = v
	}
	if v := os.Getenv("DEV_MODE"); v != "" {
		cfg.DevMode = parseBool(v, cfg.DevMode)
	}
	if v := os.Getenv("ENABLE_REACTOTRON_SERVER"); v != "" {
		cfg.EnableReactotronServer = parseBool(v, cfg.EnableReactotronServer)
	}
}

// ApplyFlags overlays values explicitly set on the command line (flags the
// user actually passed take precedence over both defaults and env vars).
// explicitlySet lists the flag names the caller detected as user-provided.
func (cfg *Config) ApplyFlags(port int, host string, useSSL bool, certPath, keyPath string, devMode bool, explicitlySet map[string]bool) {
	if explicitlySet["port"] {
		cfg.Port = port
	}
	if explicitlySet["host"] {
		cfg.Host = host
	}
	if explicitlySet["use-ssl"] {
		cfg.UseSSL = useSSL
	}
	if explicitlySet["ssl-cert-path"] {
		cfg.SSLCertPath = certPath
	}
	if explicitlySet["ssl-key-path"] {
		cfg.SSLKeyPath = keyPath
	}
	if explicitlySet["dev-mode"] {
		cfg.DevMode = devMode
	}
}

// Validate rejects configurations that would fail at startup in a
// confusing way (design §6 non-goal: no silent misconfiguration).
func (cfg Config) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	if cfg.UseSSL {
		if cfg.SSLCertPath == "" || cfg.SSLKeyPath == "" {
			return fmt.Errorf("config: USE_SSL requires both SSL_CERT_PATH and SSL_KEY_PATH")
		}
	}
	return nil
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

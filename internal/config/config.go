// Package config provides configuration management for go-widgets.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Default listen ports
	DefaultWebPort     = 11980
	DefaultBackendPort = 9000

	// Default backend address used by the API client
	DefaultAPIBaseURL = "http://localhost:9000"

	DefaultAPITimeout = 15 * time.Second

	// EnvPrefix is the prefix for environment overrides, e.g. WIDGETS_API_BASE_URL
	EnvPrefix = "WIDGETS"
)

// MainConfig holds the main configuration for go-widgets
type MainConfig struct {
	// Web interface settings
	Web WebConfig `mapstructure:"web" json:"web"`

	// Backend the web interface and widgetctl talk to
	API APIConfig `mapstructure:"api" json:"api"`

	// Reference REST backend (widget-api)
	Backend BackendConfig `mapstructure:"backend" json:"backend"`

	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`

	AppVersion string `mapstructure:"-" json:"app_version"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort int    `mapstructure:"listen_port" json:"listen_port"`
	SSL        bool   `mapstructure:"ssl" json:"ssl"`
	CertFile   string `mapstructure:"cert_file" json:"cert_file,omitempty"`
	KeyFile    string `mapstructure:"key_file" json:"key_file,omitempty"`
	Debug      bool   `mapstructure:"debug" json:"debug"`

	// Optional HTTP basic auth; disabled while AdminUser is empty
	AdminUser         string `mapstructure:"admin_user" json:"admin_user,omitempty"`
	AdminPasswordHash string `mapstructure:"admin_password_hash" json:"-"` // bcrypt
}

// APIConfig describes how to reach the widget REST backend
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"` // 0 disables the client timeout
}

// BackendConfig holds settings for the reference widget-api server
type BackendConfig struct {
	ListenPort int    `mapstructure:"listen_port" json:"listen_port"`
	DBPath     string `mapstructure:"db_path" json:"db_path"`
}

// TelemetryConfig controls OTLP trace export. An empty endpoint disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint,omitempty"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort: DefaultWebPort,
			SSL:        false,
		},
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: DefaultAPITimeout,
		},
		Backend: BackendConfig{
			ListenPort: DefaultBackendPort,
			DBPath:     "data/widgets.sq3",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "go-widgets",
		},
	}
}

// Load layers an optional config file and WIDGETS_* environment variables on top
// of NewDefaultConfig. An empty path only consults the environment.
func Load(path string) (*MainConfig, error) {
	def := NewDefaultConfig()

	v := viper.New()
	v.SetDefault("web.listen_port", def.Web.ListenPort)
	v.SetDefault("web.ssl", def.Web.SSL)
	v.SetDefault("web.cert_file", def.Web.CertFile)
	v.SetDefault("web.key_file", def.Web.KeyFile)
	v.SetDefault("web.debug", def.Web.Debug)
	v.SetDefault("web.admin_user", def.Web.AdminUser)
	v.SetDefault("web.admin_password_hash", def.Web.AdminPasswordHash)
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout", def.API.Timeout)
	v.SetDefault("backend.listen_port", def.Backend.ListenPort)
	v.SetDefault("backend.db_path", def.Backend.DBPath)
	v.SetDefault("telemetry.otlp_endpoint", def.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.service_name", def.Telemetry.ServiceName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		log.Printf("[CONFIG]: loaded %s", v.ConfigFileUsed())
	}

	cfg := &MainConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppVersion = AppVersion
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ports and the backend address
func (c *MainConfig) Validate() error {
	if c.Web.ListenPort < 1 || c.Web.ListenPort > 65535 {
		return fmt.Errorf("invalid web listen port: %d", c.Web.ListenPort)
	}
	if c.Backend.ListenPort < 1 || c.Backend.ListenPort > 65535 {
		return fmt.Errorf("invalid backend listen port: %d", c.Backend.ListenPort)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url must be set")
	}
	if c.Web.SSL && (c.Web.CertFile == "" || c.Web.KeyFile == "") {
		return fmt.Errorf("SSL enabled but cert_file or key_file not specified in config")
	}
	if c.Web.AdminUser != "" && c.Web.AdminPasswordHash == "" {
		return fmt.Errorf("web admin_user set without admin_password_hash")
	}
	return nil
}

// Package config loads server settings from defaults, an optional
// mcp-server.yaml file and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved server configuration.
type Config struct {
	Host            string
	Port            int
	MCPPath         string
	MCPStateless    bool
	MCPJSONResponse bool
	CORSOrigins     []string
	RateLimitRPS    int
	LogDevelopment  bool
	ShutdownTimeout time.Duration

	// UsedFile is the config file that was read, if any.
	UsedFile string

	v *viper.Viper
}

// Load reads configuration. file may be empty, in which case mcp-server.yaml
// is looked up in ./configs and the working directory.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("mcp-server")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// A variable that is set but empty is taken as is, not as "unset".
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("environment", "production")
	v.SetDefault("mcp.path", "/mcp")
	v.SetDefault("mcp.stateless", true)
	v.SetDefault("mcp.json_response", false)
	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("rate_limit_rps", 0)
	v.SetDefault("log.development", false)
	v.SetDefault("shutdown_timeout", "15s")

	if err := v.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &cfgNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	c := &Config{
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		MCPPath:         v.GetString("mcp.path"),
		MCPStateless:    v.GetBool("mcp.stateless"),
		MCPJSONResponse: v.GetBool("mcp.json_response"),
		CORSOrigins:     splitList(v.GetStringSlice("cors.allow_origins")),
		RateLimitRPS:    v.GetInt("rate_limit_rps"),
		LogDevelopment:  v.GetBool("log.development"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		UsedFile:        v.ConfigFileUsed(),
		v:               v,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Override replaces a loaded value, e.g. from a command-line flag.
func (c *Config) Override(key string, value any) {
	c.v.Set(key, value)
	switch key {
	case "host":
		c.Host = c.v.GetString(key)
	case "port":
		c.Port = c.v.GetInt(key)
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Environment returns the deployment label. It is read on every call so the
// process environment stays authoritative.
func (c *Config) Environment() string {
	return c.v.GetString("environment")
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if !strings.HasPrefix(c.MCPPath, "/") || c.MCPPath == "/" {
		return fmt.Errorf("mcp.path must be a non-root absolute path, got %q", c.MCPPath)
	}
	c.MCPPath = strings.TrimSuffix(c.MCPPath, "/")
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

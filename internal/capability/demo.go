package capability

import (
	"context"
	"math/big"

	"github.com/google/jsonschema-go/jsonschema"
)

// Identity of the demo server.
const (
	ServerName    = "Azure MCP Demo Server"
	ServerVersion = "1.0.0"
	DeployedOn    = "Azure App Service"

	DefaultCity        = "Berlin"
	DefaultEnvironment = "production"
	ConfigResourceURI  = "config://server"
)

// SumInput is the input of calculate_sum. Addends are arbitrary precision.
type SumInput struct {
	A *big.Int `json:"a"`
	B *big.Int `json:"b"`
}

// SumOutput wraps the scalar result so it can travel as structured content.
type SumOutput struct {
	Result *big.Int `json:"result"`
}

// Text renders the bare sum.
func (o SumOutput) Text() string { return o.Result.String() }

func sumSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"a": {Type: "integer", Description: "first addend"},
			"b": {Type: "integer", Description: "second addend"},
		},
		Required: []string{"a", "b"},
	}
}

// WeatherInput is the input of get_weather_info.
type WeatherInput struct {
	City string `json:"city,omitempty" jsonschema:"city to report on"`
}

// WeatherInfo is a fixed demo payload. Only City varies.
type WeatherInfo struct {
	City        string `json:"city"`
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
	Timestamp   string `json:"timestamp"`
}

// ServerConfig is served by the config://server resource.
type ServerConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	DeployedOn  string `json:"deployed_on"`
}

// EnvironmentFunc returns the current deployment environment label.
type EnvironmentFunc func() string

// CalculateSum returns a + b.
func CalculateSum(a, b *big.Int) *big.Int {
	return new(big.Int).Add(a, b)
}

// GetWeatherInfo returns demo weather for city. No lookup happens and city
// is echoed as given.
func GetWeatherInfo(city string) WeatherInfo {
	return WeatherInfo{
		City:        city,
		Temperature: "22°C",
		Condition:   "sonnig",
		Timestamp:   "2024-01-15 14:30:00",
	}
}

// GetServerConfig describes this server for the given environment label.
func GetServerConfig(environment string) ServerConfig {
	return ServerConfig{
		Name:        ServerName,
		Version:     ServerVersion,
		Environment: environment,
		DeployedOn:  DeployedOn,
	}
}

// RegisterDemo registers calculate_sum, get_weather_info and config://server.
// env is consulted on every read of the config resource; a nil env reports
// DefaultEnvironment.
func RegisterDemo(r *Registry, env EnvironmentFunc) error {
	if env == nil {
		env = func() string { return DefaultEnvironment }
	}

	err := RegisterTool(r, "calculate_sum", "Adds two integers together.",
		func(_ context.Context, in SumInput) (SumOutput, error) {
			return SumOutput{Result: CalculateSum(in.A, in.B)}, nil
		})
	if err != nil {
		return err
	}

	err = RegisterTool(r, "get_weather_info", "Returns weather information for a city (demo data).",
		func(_ context.Context, in WeatherInput) (WeatherInfo, error) {
			return GetWeatherInfo(in.City), nil
		},
		WithDefault("city", DefaultCity))
	if err != nil {
		return err
	}

	return r.RegisterResource(ConfigResourceURI, "get_server_config", "Server configuration information.",
		func(context.Context) (any, error) {
			return GetServerConfig(env()), nil
		})
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RETURNALL_"

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Log           LogConfig            `koanf:"log" validate:"required"`
	Body          BodyConfig           `koanf:"body"`
	Observability *ObservabilityConfig `koanf:"observability" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	ShutdownTimeout    int      `koanf:"shutdown_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required,min=1"`
	// MaxBodySize uses echo's BodyLimit syntax, e.g. "10M". Empty disables the limit.
	MaxBodySize string `koanf:"max_body_size"`
	// TrustProxy takes the client host from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `koanf:"trust_proxy"`
}

// LogConfig configures the request log sink.
type LogConfig struct {
	Path    string `koanf:"path" validate:"required"`
	Name    string `koanf:"name" validate:"required"`
	Console bool   `koanf:"console"`
}

type BodyConfig struct {
	// Decompress undoes gzip/deflate/br/zstd Content-Encoding before interpretation.
	Decompress bool `koanf:"decompress"`
}

// Default returns the configuration used for every key the environment leaves unset.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "3006",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			ShutdownTimeout:    10,
			CORSAllowedOrigins: []string{"*"},
			MaxBodySize:        "10M",
		},
		Log: LogConfig{
			Path:    "logs/api.log",
			Name:    "returnAll-api",
			Console: true,
		},
		Body:          BodyConfig{Decompress: true},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadDotEnv loads a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads the configuration from environment variables using koanf.
//
// RETURNALL_SERVER__PORT maps to server.port; a double underscore separates
// levels. The legacy PORT and LOG_PATH variables are honoured but lose to
// their prefixed equivalents.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		switch key {
		case "PORT":
			return "server.port", value
		case "LOG_PATH":
			return "log.path", value
		}
		return "", nil
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load legacy env variables: %w", err)
	}

	err = k.Load(env.Provider(envPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := Default()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	// CORS origins arrive from the environment as one comma separated value.
	if raw := k.String("server.cors_allowed_origins"); raw != "" {
		mainConfig.Server.CORSAllowedOrigins = splitList(raw)
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

// Validate checks struct tags and fills derived observability fields.
func (c *Config) Validate() error {
	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}
	c.Observability.ServiceName = "returnall"
	c.Observability.Environment = c.Primary.Env

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("could not validate the config: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs with env=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Primary.Env, "production")
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

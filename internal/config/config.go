package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	API     APIConfig
	Storage StorageConfig
	Redis   RedisConfig
	Login   LoginConfig
	Log     LogConfig
	Notify  NotifyConfig
}

type ServerConfig struct {
	Host string
	Port int
}

func (s ServerConfig) Addr() string { return net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) }

// Override replaces host and port from a "host:port" address. An empty host
// keeps the configured one.
func (s *ServerConfig) Override(addr string) error {
	const op = "config.ServerConfig.Override"

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%s: invalid port %q", op, portStr)
	}

	if host != "" {
		s.Host = host
	}
	s.Port = port
	return nil
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type StorageDriver string

const (
	StorageMemory StorageDriver = "memory"
	StorageFile   StorageDriver = "file"
	StorageRedis  StorageDriver = "redis"
)

type StorageConfig struct {
	Driver  StorageDriver
	Dir     string
	Profile string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoginConfig struct {
	Limit  int
	Window time.Duration
}

type LogConfig struct {
	Level slog.Level
}

type NotifyConfig struct {
	Default time.Duration
}

// New reads configuration from the environment after loading envFiles
// (".env" when none are given). Missing files are ignored.
func New(envFiles ...string) (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load(envFiles...)

	serverPort, err := intEnv("SERVER_PORT", 8081)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	apiTimeout, err := durationEnv("API_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	driver := StorageDriver(strings.ToLower(stringEnv("STORAGE_DRIVER", string(StorageFile))))
	switch driver {
	case StorageMemory, StorageFile, StorageRedis:
	default:
		return nil, fmt.Errorf("%s: invalid STORAGE_DRIVER %q", op, driver)
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	loginLimit, err := intEnv("LOGIN_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	loginWindow, err := durationEnv("LOGIN_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(stringEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	notifyMS, err := intEnv("NOTIFY_DEFAULT_MS", 3000)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host: stringEnv("SERVER_HOST", "localhost"),
			Port: serverPort,
		},
		API: APIConfig{
			BaseURL: stringEnv("API_BASE_URL", "http://localhost:5000/api/v1"),
			Timeout: apiTimeout,
		},
		Storage: StorageConfig{
			Driver:  driver,
			Dir:     stringEnv("STORAGE_DIR", ".tixclient"),
			Profile: stringEnv("STORAGE_PROFILE", "default"),
		},
		Redis: RedisConfig{
			Addr:     stringEnv("REDIS_ADDR", "localhost:6380"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Login: LoginConfig{
			Limit:  loginLimit,
			Window: loginWindow,
		},
		Log:    LogConfig{Level: level},
		Notify: NotifyConfig{Default: time.Duration(notifyMS) * time.Millisecond},
	}, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := stringEnv(key, "")
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := stringEnv(key, "")
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

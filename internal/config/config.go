package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Identity   IdentityConfig   `json:"identity"`
	Room       RoomConfig       `json:"room"`
	Channel    ChannelConfig    `json:"channel"`
	Filter     FilterConfig     `json:"filter"`
	Navigation NavigationConfig `json:"navigation"`
	Directions DirectionsConfig `json:"directions"`
	Redis      RedisConfig      `json:"redis"`
	Postgres   PostgresConfig   `json:"postgres"`
	InfluxDB   InfluxConfig     `json:"influxdb"`
	Logger     LoggerConfig     `json:"logger"`
	Simulation SimulationConfig `json:"simulation"`
}

type IdentityConfig struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

type RoomConfig struct {
	ID string `json:"id"`
}

type ChannelConfig struct {
	Transport            string        `json:"transport"`
	URL                  string        `json:"url"`
	Token                string        `json:"token"`
	ClientID             string        `json:"client_id"`
	BaseTopic            string        `json:"base_topic"`
	HeartbeatInterval    time.Duration `json:"heartbeat_interval"`
	ReconnectBaseDelay   time.Duration `json:"reconnect_base_delay"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`
	JoinTimeout          time.Duration `json:"join_timeout"`
	ConnectTimeout       time.Duration `json:"connect_timeout"`
}

type FilterConfig struct {
	MaxAccuracy float64 `json:"max_accuracy_meters"`
	MinSpeed    float64 `json:"min_speed_mps"`
}

type NavigationConfig struct {
	ArrivalThreshold float64       `json:"arrival_threshold_meters"`
	AnnounceInterval time.Duration `json:"announce_interval"`
	Enabled          bool          `json:"enabled"`
	OriginLat        float64       `json:"origin_lat"`
	OriginLng        float64       `json:"origin_lng"`
	DestLat          float64       `json:"dest_lat"`
	DestLng          float64       `json:"dest_lng"`
	Mode             string        `json:"mode"`
}

type DirectionsConfig struct {
	BaseURL  string        `json:"base_url"`
	APIKey   string        `json:"api_key"`
	Timeout  time.Duration `json:"timeout"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Dsn      string `json:"dsn"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type InfluxConfig struct {
	URL          string `json:"url"`
	Token        string `json:"token"`
	Organization string `json:"organization"`
	Bucket       string `json:"bucket"`
}

type LoggerConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type SimulationConfig struct {
	Enabled  bool          `json:"enabled"`
	Polyline string        `json:"polyline"`
	SpeedMps float64       `json:"speed_mps"`
	Interval time.Duration `json:"interval"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Identity: IdentityConfig{
			UserID:   getEnv("USER_ID", ""),
			UserName: getEnv("USER_NAME", "waygroup-agent"),
		},
		Room: RoomConfig{
			ID: getEnv("ROOM_ID", ""),
		},
		Channel: ChannelConfig{
			Transport:            getEnv("CHANNEL_TRANSPORT", "websocket"),
			URL:                  getEnv("CHANNEL_URL", "ws://localhost:8080/ws"),
			Token:                getEnv("CHANNEL_TOKEN", ""),
			ClientID:             getEnv("CHANNEL_CLIENT_ID", "waygroup"),
			BaseTopic:            getEnv("CHANNEL_BASE_TOPIC", "waygroup/relay"),
			HeartbeatInterval:    getEnvAsDuration("CHANNEL_HEARTBEAT_INTERVAL", "25s"),
			ReconnectBaseDelay:   getEnvAsDuration("CHANNEL_RECONNECT_BASE_DELAY", "1s"),
			MaxReconnectAttempts: getEnvAsInt("CHANNEL_MAX_RECONNECT_ATTEMPTS", 5),
			JoinTimeout:          getEnvAsDuration("CHANNEL_JOIN_TIMEOUT", "10s"),
			ConnectTimeout:       getEnvAsDuration("CHANNEL_CONNECT_TIMEOUT", "10s"),
		},
		Filter: FilterConfig{
			MaxAccuracy: getEnvAsFloat("FILTER_MAX_ACCURACY", 15.0),
			MinSpeed:    getEnvAsFloat("FILTER_MIN_SPEED", 0.3),
		},
		Navigation: NavigationConfig{
			ArrivalThreshold: getEnvAsFloat("NAV_ARRIVAL_THRESHOLD", 20.0),
			AnnounceInterval: getEnvAsDuration("NAV_ANNOUNCE_INTERVAL", "1s"),
			Enabled:          getEnvAsBool("NAV_ENABLED", false),
			OriginLat:        getEnvAsFloat("NAV_ORIGIN_LAT", 0),
			OriginLng:        getEnvAsFloat("NAV_ORIGIN_LNG", 0),
			DestLat:          getEnvAsFloat("NAV_DEST_LAT", 0),
			DestLng:          getEnvAsFloat("NAV_DEST_LNG", 0),
			Mode:             getEnv("NAV_MODE", "driving"),
		},
		Directions: DirectionsConfig{
			BaseURL:  getEnv("DIRECTIONS_BASE_URL", "https://maps.googleapis.com/maps/api"),
			APIKey:   getEnv("DIRECTIONS_API_KEY", ""),
			Timeout:  getEnvAsDuration("DIRECTIONS_TIMEOUT", "15s"),
			CacheTTL: getEnvAsDuration("DIRECTIONS_CACHE_TTL", "10m"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", ""),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DATABASE", "waygroup"),
			SSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),
		},
		InfluxDB: InfluxConfig{
			URL:          getEnv("INFLUXDB_URL", ""),
			Token:        getEnv("INFLUXDB_TOKEN", ""),
			Organization: getEnv("INFLUXDB_ORG", "waygroup"),
			Bucket:       getEnv("INFLUXDB_BUCKET", "breadcrumbs"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Simulation: SimulationConfig{
			Enabled:  getEnvAsBool("SIM_ENABLED", false),
			Polyline: getEnv("SIM_POLYLINE", ""),
			SpeedMps: getEnvAsFloat("SIM_SPEED", 10.0),
			Interval: getEnvAsDuration("SIM_INTERVAL", "1s"),
		},
	}

	config.Postgres.Dsn = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		config.Postgres.Host, config.Postgres.Port, config.Postgres.User,
		config.Postgres.Password, config.Postgres.Database,
		func() string {
			if config.Postgres.SSLMode == "" {
				return "disable"
			}
			return config.Postgres.SSLMode
		}(),
	)

	return config, config.validate()
}

func (c *Config) validate() error {
	switch c.Channel.Transport {
	case "websocket", "mqtt":
	default:
		return fmt.Errorf("CHANNEL_TRANSPORT must be websocket or mqtt, got %q", c.Channel.Transport)
	}

	if c.Channel.URL == "" {
		return fmt.Errorf("CHANNEL_URL has to be set")
	}

	if c.Filter.MaxAccuracy <= 0 {
		return fmt.Errorf("FILTER_MAX_ACCURACY must be positive")
	}

	if c.Navigation.ArrivalThreshold <= 0 {
		return fmt.Errorf("NAV_ARRIVAL_THRESHOLD must be positive")
	}

	return nil
}

// HasPostgres reports whether the optional local history cache is configured.
func (c *Config) HasPostgres() bool {
	return c.Postgres.Host != ""
}

// HasInflux reports whether the optional breadcrumb writer is configured.
func (c *Config) HasInflux() bool {
	return c.InfluxDB.URL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Audio    AudioConfig    `mapstructure:"audio"`
}

type ServerConfig struct {
	HTTPAddress string   `mapstructure:"http_address"`
	RPCAddress  string   `mapstructure:"rpc_address"`
	Mode        string   `mapstructure:"mode"` // debug, release
	Mounts      []string `mapstructure:"mounts"`
	// ControlMounts may relay authoritative gameState frames from their clients.
	ControlMounts  []string `mapstructure:"control_mounts"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type GatewayConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	CloseTimeout   time.Duration `mapstructure:"close_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type DatabaseConfig struct {
	// Driver selects the tier store: "gorm", "sql" or "memory".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TierTTL  time.Duration `mapstructure:"tier_ttl"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type AudioConfig struct {
	CatalogPath string        `mapstructure:"catalog_path"`
	ProviderURL string        `mapstructure:"provider_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Workers     int           `mapstructure:"workers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.mounts", []string{"/acey", "/helm"})
	v.SetDefault("server.control_mounts", []string{"/helm"})
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("gateway.ping_interval", 30*time.Second)
	v.SetDefault("gateway.read_timeout", 60*time.Second)
	v.SetDefault("gateway.write_timeout", 10*time.Second)
	v.SetDefault("gateway.idle_timeout", 5*time.Minute)
	v.SetDefault("gateway.close_timeout", 2*time.Second)
	v.SetDefault("gateway.max_message_size", 64*1024)
	v.SetDefault("gateway.send_buffer", 256)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.dbname", "overlay")

	v.SetDefault("redis.tier_ttl", 5*time.Minute)

	v.SetDefault("nats.subject_prefix", "engine")

	v.SetDefault("audio.timeout", 20*time.Second)
	v.SetDefault("audio.workers", 4)
}

// LoadConfig reads config.yaml from path. A missing file is not an error:
// defaults plus OVERLAY_* environment variables are used instead.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("overlay")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

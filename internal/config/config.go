package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// MQTTConfig MQTT 配置（记录变化通知）
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	// CommandTopic 接收 {"action":"refresh"} 指令，空串表示不订阅
	CommandTopic string
	QoS          byte
}

// Config breakdown-records 服务配置
type Config struct {
	HTTP struct {
		Addr string
	}
	RecordStore struct {
		Backend         string // postgres | http | memory
		URL             string
		APIKey          string
		Timeout         time.Duration
		Collection      string
		LoadTimeout     time.Duration
		MutationTimeout time.Duration
	}
	Database   DatabaseConfig
	LocalCache struct {
		Backend string // redis | sqlite
		Path    string
		Key     string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	MQTT           MQTTConfig
	MetricsEnabled bool
}

// Load 从环境变量加载配置；当前目录存在 .env 时先加载（不覆盖已有环境变量）
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.RecordStore.Backend = getEnv("RECORD_STORE_BACKEND", "postgres")
	cfg.RecordStore.URL = getEnv("RECORD_STORE_URL", "http://localhost:9090")
	cfg.RecordStore.APIKey = getEnv("RECORD_STORE_API_KEY", "")
	cfg.RecordStore.Timeout = parseDuration(getEnv("RECORD_STORE_TIMEOUT", "10s"), 10*time.Second)
	cfg.RecordStore.Collection = getEnv("COLLECTION_NAME", "breakdownRecords")
	cfg.RecordStore.LoadTimeout = parseDuration(getEnv("LOAD_TIMEOUT", "5s"), 5*time.Second)
	cfg.RecordStore.MutationTimeout = parseDuration(getEnv("MUTATION_TIMEOUT", "10s"), 10*time.Second)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "coalmine")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.LocalCache.Backend = getEnv("LOCAL_CACHE_BACKEND", "redis")
	cfg.LocalCache.Path = getEnv("LOCAL_CACHE_PATH", "breakdown-cache.db")
	cfg.LocalCache.Key = getEnv("LOCAL_CACHE_KEY", "coalMineBreakdownData")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// MQTT 变化通知（默认禁用）
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "breakdown-records")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "coalmine/breakdown-records/events")
	cfg.MQTT.CommandTopic = getEnv("MQTT_COMMAND_TOPIC", "coalmine/breakdown-records/commands")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.MetricsEnabled = getEnv("METRICS_ENABLED", "true") == "true"

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

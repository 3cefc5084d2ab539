package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MySQL   MySQLConfig   `mapstructure:"mysql"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	ETCD    ETCDConfig    `mapstructure:"etcd"`
	Lock    LockConfig    `mapstructure:"lock"`
	Sync    SyncConfig    `mapstructure:"sync"`
	GraphQL GraphQLConfig `mapstructure:"graphql"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin运行模式: debug/release/test
}

type MySQLConfig struct {
	Master       string `mapstructure:"master"`
	Slave        string `mapstructure:"slave"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	// 数据存储Redis
	DataAddress string        `mapstructure:"data_address"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// Redlock使用的Redis节点
	LockAddresses []string `mapstructure:"lock_addresses"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	GroupID    string   `mapstructure:"group_id"`
	NumWorkers int      `mapstructure:"num_workers"`
}

type ETCDConfig struct {
	Endpoints      []string      `mapstructure:"endpoints"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

type LockConfig struct {
	// Backend 分布式锁实现: etcd 或 redis
	Backend    string `mapstructure:"backend"`
	RetryCount int    `mapstructure:"retry_count"`
}

type SyncConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

type GraphQLConfig struct {
	Path string `mapstructure:"path"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	NoTLS    bool   `mapstructure:"no_tls"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.timeout", 3*time.Second)
	v.SetDefault("kafka.topic", "campusvote-notifications")
	v.SetDefault("kafka.group_id", "campusvote-notifier")
	v.SetDefault("kafka.num_workers", 4)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.request_timeout", 3*time.Second)
	v.SetDefault("etcd.session_ttl", 10*time.Second)
	v.SetDefault("lock.backend", "etcd")
	v.SetDefault("lock.retry_count", 3)
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.lock_timeout", 10*time.Second)
	v.SetDefault("graphql.path", "/graphql")
	v.SetDefault("smtp.port", 587)
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("CAMPUSVOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验必填配置
func (c *Config) Validate() error {
	if c.MySQL.Master == "" {
		return fmt.Errorf("配置缺失: mysql.master")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("配置错误: sync.interval 必须大于0")
	}
	switch c.Lock.Backend {
	case "etcd", "redis":
	default:
		return fmt.Errorf("配置错误: 不支持的锁实现 %q", c.Lock.Backend)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var Cfg *Config

// Config 应用配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Mode    string `mapstructure:"mode"`
	Port    int    `mapstructure:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig 数据库配置（站点注册表与插件配置存储）
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

// RedisConfig Redis 配置（用户名缓存，可选）
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProxyConfig 代理配置
// 是否启用由引擎用户配置项 use_proxy 控制，这里只提供代理端点
type ProxyConfig struct {
	URL string `mapstructure:"url"`
}

// BrowserConfig 无头浏览器配置
type BrowserConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	ExecPath string `mapstructure:"exec_path"`
}

// NotifyConfig 通知下沉配置
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// KafkaConfig 运行结果外发配置（可选）
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// JWTConfig 管理API鉴权配置
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"`
}

// Load 加载配置文件
// 如果 configPath 为空，则根据环境变量 APP_ENV 自动选择配置文件
func Load(configPath string) error {
	if configPath == "" {
		env := os.Getenv("APP_ENV")
		switch env {
		case "prod", "production":
			configPath = "config/config.prod.yaml"
		case "test", "testing":
			configPath = "config/config.test.yaml"
		default:
			configPath = "config/config.yaml"
		}
	}

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configPath)

	setDefaults()

	// 支持环境变量覆盖配置
	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败 [%s]: %w", configPath, err)
	}

	Cfg = &Config{}
	if err := viper.Unmarshal(Cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	return nil
}

// setDefaults 设置默认值
func setDefaults() {
	viper.SetDefault("app.name", "golang-chatmsg-core")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.port", 8092)
	viper.SetDefault("app.mode", "release")
	viper.SetDefault("database.path", "data/chatmsg.db")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("jwt.expire", 7200)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

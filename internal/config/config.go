package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/OnellHernandez/studio/internal/crypto"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 INVENTORY_SERVER_PORT
const EnvPrefix = "INVENTORY"

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // sqlite | postgres
	Path            string        `mapstructure:"path"`              // sqlite 数据库文件路径
	DSN             string        `mapstructure:"dsn"`               // postgres 连接串
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大生命周期
	AutoMigrate     bool          `mapstructure:"auto_migrate"`      // 是否自动迁移
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"` // debug | release | test
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // trace|debug|info|warning|error
	Format string `mapstructure:"format"` // text|json
}

// AuthConfig 登录会话配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// ObfuscationConfig 名称混淆配置
type ObfuscationConfig struct {
	Passphrase         string   `mapstructure:"passphrase"`
	LegacyPassphrases  []string `mapstructure:"legacy_passphrases"` // 迁移期间仍需解码的旧口令
	MigrationBatchSize int      `mapstructure:"migration_batch_size"`
}

// Config 应用配置
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logs        LogConfig         `mapstructure:"logs"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Obfuscation ObfuscationConfig `mapstructure:"obfuscation"`
}

// setDefaults 默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/inventory.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "text")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("obfuscation.passphrase", "")
	v.SetDefault("obfuscation.legacy_passphrases", []string{crypto.LegacyPassphrase})
	v.SetDefault("obfuscation.migration_batch_size", 200)
}

// LoadConfig 加载配置
// 优先级：环境变量 > 配置文件 > 默认值；configPath 为空时依次读取 CONFIG_FILE、./config.yaml
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_FILE")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/inventory")
	}

	// 配置文件可选
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 环境变量中的列表用逗号分隔
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)
	cfg.Obfuscation.LegacyPassphrases = splitList(cfg.Obfuscation.LegacyPassphrases)

	return &cfg, nil
}

// Validate 校验运行服务所需的配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path must be set for sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.dsn must be set for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver: %q", c.Database.Driver)
	}

	if len(strings.TrimSpace(c.Auth.JWTSecret)) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}

	if err := crypto.ValidatePassphrase(c.Obfuscation.Passphrase); err != nil {
		return fmt.Errorf("obfuscation.passphrase: %w", err)
	}

	return nil
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

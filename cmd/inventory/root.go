package main

import (
	"fmt"

	"github.com/OnellHernandez/studio/internal/config"
	"github.com/OnellHernandez/studio/internal/crypto"
	"github.com/OnellHernandez/studio/internal/db"
	"github.com/OnellHernandez/studio/internal/logs"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const (
	// Version 项目版本
	Version = "0.1.0"
	// AppName 应用名称
	AppName = "inventory"
)

var cfgFile string

// rootCmd 不带子命令时输出帮助
var rootCmd = &cobra.Command{
	Use:           AppName,
	Short:         "Computer inventory and Windows 11 compatibility service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or $CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateNamesCmd)
	rootCmd.AddCommand(genkeyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// loadConfig 加载并校验配置，同时初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	logs.Init(logs.Options{Level: cfg.Logs.Level, Format: cfg.Logs.Format})
	return cfg, nil
}

// openDatabase 连接数据库并按配置迁移
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	database, err := db.InitDatabase(&cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(database); err != nil {
			db.CloseDatabase(database)
			return nil, err
		}
	}
	return database, nil
}

func newObfuscator(cfg *config.Config) (*crypto.Obfuscator, error) {
	return crypto.NewObfuscator(cfg.Obfuscation.Passphrase, cfg.Obfuscation.LegacyPassphrases...)
}

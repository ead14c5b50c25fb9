package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/OnellHernandez/studio/internal/api"
	"github.com/OnellHernandez/studio/internal/db"
	"github.com/OnellHernandez/studio/internal/events"
	"github.com/OnellHernandez/studio/internal/logs"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		gin.SetMode(cfg.Server.Mode)

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.CloseDatabase(database)

		obfuscator, err := newObfuscator(cfg)
		if err != nil {
			return err
		}

		broker := events.NewBroker()
		router := api.SetupRouter(database, cfg, obfuscator, broker)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logs.Logger.WithFields(logrus.Fields{
				"addr":    srv.Addr,
				"mode":    cfg.Server.Mode,
				"version": Version,
			}).Infof("%s 启动", AppName)

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("HTTP 服务异常退出: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logs.Logger.Info("正在关闭服务")

		// 先关闭订阅，结束所有 SSE 连接
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭服务失败: %w", err)
		}

		logs.Logger.Info("服务已关闭")
		return nil
	},
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/app"
	"github.com/vladislavdragonenkov/farmstand/internal/version"
)

const envLogLevel = "FARMSTAND_LOG_LEVEL"

// setupLogger настраивает формат и уровень логирования для киоска.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(logLevel(os.Getenv(envLogLevel)))
}

func logLevel(raw string) log.Level {
	level, err := log.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// readConfig формирует конфигурацию из переменных окружения FARMSTAND_*.
func readConfig() app.Config {
	cfg, warnings := app.ConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}
	return cfg
}

func main() {
	setupLogger()
	cfg := readConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"build":          version.Current().String(),
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"api_base_url":   cfg.ResolvedAPIBaseURL(),
		"storage_driver": cfg.StorageDriver,
	}).Info("запускаем киоск витрины")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("киоск завершился с ошибкой")
	}

	log.Info("киоск остановлен")
}

// Command mock-backend поднимает in-memory бэкенд витрины для локального запуска киоска.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/farmstand/internal/mockapi"
)

const (
	envLogLevel = "FARMSTAND_LOG_LEVEL"
	// envPassword пароль персонала; без него генерируется случайный и пишется в лог.
	envPassword = "FARMSTAND_MOCK_PASSWORD"

	shutdownTimeout = 5 * time.Second
)

func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(strings.TrimSpace(os.Getenv(envLogLevel)))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "127.0.0.1:3000", "listen address")
	flag.Parse()

	setupLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}
	if err := serve(ctx, lis, os.Getenv(envPassword)); err != nil {
		log.WithError(err).Fatal("mock backend failed")
	}
}

// serve обслуживает lis до отмены ctx.
func serve(ctx context.Context, lis net.Listener, password string) error {
	logger := log.WithField("component", "mock-backend")
	backend := mockapi.New(
		mockapi.WithLogger(logger),
		mockapi.WithPassword(strings.TrimSpace(password)),
	)

	srv := &http.Server{Handler: backend.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("mock backend слушает http://%s", lis.Addr())
		errCh <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("mock backend остановлен")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

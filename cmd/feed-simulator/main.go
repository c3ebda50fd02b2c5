package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	feedsim "github.com/radieske/sports-bet-settlement/internal/feed-simulator"
	"github.com/radieske/sports-bet-settlement/internal/shared/config"
	"github.com/radieske/sports-bet-settlement/internal/shared/logger"
	"github.com/radieske/sports-bet-settlement/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "feed-simulator"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prometheus.MustRegister(feedsim.WSConnections, feedsim.WSMessagesSent)

	catalog := feedsim.NewCatalog(cfg.Sports, 8, cfg.HistoryDays, time.Now().UnixNano())
	hub := feedsim.NewHub(log)
	srv := feedsim.NewServer(log, catalog, hub)

	// Cada tick avança 5 minutos de jogo e publica as mudanças no /ws
	go srv.Run(ctx, 3*time.Second)

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, nil)

	publicSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("feed simulator (public) running",
			zap.String("addr", publicSrv.Addr),
			zap.Strings("sports", catalog.Sports()),
			zap.String("paths", "/{sport}/home,/{sport}/d-{n},/ws"),
		)
		if err := publicSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("public server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = publicSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("feed simulator stopped")
}

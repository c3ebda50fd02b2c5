package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
	"github.com/radieske/sports-bet-settlement/internal/settlement/engine"
	"github.com/radieske/sports-bet-settlement/internal/settlement/feed"
	adminhttp "github.com/radieske/sports-bet-settlement/internal/settlement/http"
	"github.com/radieske/sports-bet-settlement/internal/settlement/lock"
	"github.com/radieske/sports-bet-settlement/internal/settlement/notify"
	"github.com/radieske/sports-bet-settlement/internal/settlement/outcome"
	"github.com/radieske/sports-bet-settlement/internal/settlement/repo"
	sharedcache "github.com/radieske/sports-bet-settlement/internal/shared/cache"
	"github.com/radieske/sports-bet-settlement/internal/shared/config"
	"github.com/radieske/sports-bet-settlement/internal/shared/db"
	"github.com/radieske/sports-bet-settlement/internal/shared/kafka"
	"github.com/radieske/sports-bet-settlement/internal/shared/logger"
	"github.com/radieske/sports-bet-settlement/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	push, err := outcome.ParsePushPolicy(cfg.PushPolicy)
	if err != nil {
		log.Fatal("invalid SETTLEMENT_PUSH_POLICY", zap.Error(err))
	}

	// Dependências: Postgres (ledger) e Redis (cache de finais, lock, broadcast)
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// Kafka: bet_settled + DLQ
	if cfg.Env == "local" || cfg.Env == "dev" {
		tctx, tcancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopics(tctx, cfg.KafkaBrokers, cfg.TopicBetSettled, cfg.TopicSettlementDLQ); err != nil {
			log.Warn("kafka topics not ensured", zap.Error(err))
		}
		tcancel()
	}
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSettlementDLQ)
	defer dlqWriter.Close()

	kafkaPub := notify.NewKafkaPublisher(settledWriter, dlqWriter, log)
	publisher := notify.Multi{kafkaPub, notify.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)}

	// Métricas Prometheus do ciclo de liquidação
	passes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_passes_total", Help: "ciclos de liquidação por resultado"}, []string{"result"})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_settled_total", Help: "apostas liquidadas por estado"}, []string{"state"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "settlement_pass_duration_seconds", Help: "duração do ciclo", Buckets: prometheus.DefBuckets})
	placeholders := prometheus.NewGauge(prometheus.GaugeOpts{Name: "settlement_placeholder_legs", Help: "pernas com id sintético que nunca serão liquidadas"})
	prometheus.MustRegister(passes, settled, errorsBy, duration, placeholders)

	// Fonte de resultados: cache de finais no Redis -> feed HTTP do fornecedor
	client := feed.NewClient(cfg.FeedBaseURL,
		feed.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		feed.WithRateLimit(cfg.FeedRateLimit, 1+int(cfg.FeedRateLimit)),
	)
	source := feed.NewSource(log, client, feed.NewRedisFinalCache(redisClient, cfg.FinalCacheTTL), cfg.HistoryDays)

	opts := []engine.Option{
		engine.WithFetchTimeout(cfg.FetchTimeout),
		engine.WithSports(cfg.Sports...),
		engine.WithPublisher(publisher),
		engine.WithFailureSink(kafkaPub),
		engine.WithHooks(engine.Hooks{
			OnPass: func(r engine.Report, d time.Duration, err error) {
				result := "success"
				if err != nil {
					result = "failure"
				}
				passes.WithLabelValues(result).Inc()
				duration.Observe(d.Seconds())
			},
			OnSettled:     func(s domain.BetState) { settled.WithLabelValues(string(s)).Inc() },
			OnError:       func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
			OnPlaceholder: func(n int) { placeholders.Set(float64(n)) },
		}),
	}
	if cfg.DistributedLock {
		opts = append(opts, engine.WithLocker(lock.NewRedisLocker(redisClient), cfg.LockTTL))
	}

	eng := engine.New(log, repo.NewPostgres(pg), source, outcome.NewResolver(log, push), opts...)
	svc := engine.NewService(log, eng, cfg.CheckInterval)
	if err := svc.Start(ctx); err != nil {
		log.Fatal("settlement service start", zap.Error(err))
	}

	// Push do feed: liquida assim que uma partida chega ao status final
	if cfg.FeedWSURL != "" {
		w := &feed.Watcher{
			URL: cfg.FeedWSURL,
			Log: log,
			OnFinal: func(ctx context.Context, m domain.Match) {
				fctx, fcancel := context.WithTimeout(ctx, 30*time.Second)
				defer fcancel()
				if _, err := svc.ForceSettle(fctx, m.Sport, m.ID); err != nil && !errors.Is(err, engine.ErrPassInProgress) {
					log.Warn("push settle finished with errors", zap.String("match_id", m.ID), zap.Error(err))
				}
			},
		}
		go w.Start(ctx)
	}

	// Métricas/health e API administrativa
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	adminSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           adminhttp.NewServer(log, svc).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("settlement admin listening", zap.String("addr", adminSrv.Addr))
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin srv", zap.Error(err))
			cancel()
		}
	}()

	log.Info("settlement-worker started",
		zap.Strings("sports", cfg.Sports),
		zap.Duration("interval", cfg.CheckInterval),
		zap.String("push_policy", cfg.PushPolicy),
		zap.Bool("distributed_lock", cfg.DistributedLock),
	)
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Warn("settlement service stop", zap.Error(err))
	}
	_ = adminSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")
}

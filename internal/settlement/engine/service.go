package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Status é o retrato exposto em GET /settlement/status
type Status struct {
	Running       bool       `json:"running"`
	CheckInterval string     `json:"checkInterval"`
	TotalChecks   int64      `json:"totalChecks"`
	SuccessCount  int64      `json:"successCount"`
	FailureCount  int64      `json:"failureCount"`
	LastError     string     `json:"lastError,omitempty"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	LastDuration  string     `json:"lastDuration,omitempty"`
	LastReport    *Report    `json:"lastReport,omitempty"`
}

// Service é dono do ciclo de vida do worker: agenda os ciclos e guarda os contadores.
// Criado uma vez no main e passado para quem precisa de status.
type Service struct {
	log      *zap.Logger
	engine   *Engine
	interval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	wg      sync.WaitGroup
	running bool
	status  Status
}

func NewService(log *zap.Logger, engine *Engine, interval time.Duration) *Service {
	if interval < time.Second {
		interval = time.Second // resolução mínima do @every
	}
	return &Service{log: log, engine: engine, interval: interval}
}

// Start agenda um ciclo a cada intervalo e dispara o primeiro imediatamente
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("settlement service already running")
	}

	cl := cronLogger{s.log.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc("@every "+s.interval.String(), func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule settlement: %w", err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.log.Info("settlement service started", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(ctx)
	}()
	return nil
}

// Stop deixa de agendar e espera o ciclo em andamento (ou o ctx expirar)
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	cronDone := c.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("settlement service stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ForceSettle liquida agora as apostas de uma partida (admin / push do feed)
func (s *Service) ForceSettle(ctx context.Context, sport, matchID string) (Report, error) {
	return s.engine.SettleMatch(ctx, sport, matchID)
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.running
	st.CheckInterval = s.interval.String()
	return st
}

func (s *Service) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	r, err := s.engine.RunPass(ctx)
	if errors.Is(err, ErrPassInProgress) {
		s.log.Debug("settlement pass skipped", zap.Error(err))
		return
	}
	s.record(r, err, start, time.Since(start))
}

func (s *Service) record(r Report, err error, at time.Time, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.TotalChecks++
	if err != nil {
		s.status.FailureCount++
		s.status.LastError = err.Error()
		s.log.Warn("settlement pass finished with errors", zap.Error(err))
	} else {
		s.status.SuccessCount++
	}
	at = at.UTC()
	s.status.LastRunAt = &at
	s.status.LastDuration = d.String()
	s.status.LastReport = &r
}

// cronLogger adapta o zap ao cron.Logger
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

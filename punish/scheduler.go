package punish

import (
	"context"
	"fmt"
	"modbot/metrics"
	"modbot/model"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Expirer reverses due entries of one punishment kind.
type Expirer interface {
	Kind() model.Kind
	Queue() *ExpirationQueue
	Expire(ctx context.Context, entry model.ActivePunishment) error
}

// Scheduler moves due punishments from the expiration queues onto the undo
// queue and drains the undo queue at a limited rate.
type Scheduler struct {
	cfg      model.SchedulerConfig
	gate     *Gate
	undo     *UndoQueue
	audit    AuditLog
	now      Clock
	limiter  *rate.Limiter
	order    []model.Kind
	services map[model.Kind]Expirer
	dropped  atomic.Int64
}

// NewScheduler creates a scheduler over the given services. Zero config values fall back to defaults.
func NewScheduler(cfg model.SchedulerConfig, gate *Gate, undo *UndoQueue, audit AuditLog, clock Clock, services ...Expirer) *Scheduler {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Second
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = 3 * time.Second
	}
	if cfg.DrainBurst <= 0 {
		cfg.DrainBurst = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 5 * time.Second
	}
	if cfg.RetryMax < cfg.RetryBase {
		cfg.RetryMax = cfg.RetryBase
	}
	if clock == nil {
		clock = time.Now
	}

	s := &Scheduler{
		cfg:      cfg,
		gate:     gate,
		undo:     undo,
		audit:    audit,
		now:      clock,
		// Ticks wake a little unevenly; the limiter allows for that without
		// letting more than one tick's worth through.
		limiter:  rate.NewLimiter(rate.Every(cfg.DrainInterval*9/10), cfg.DrainBurst),
		services: make(map[model.Kind]Expirer, len(services)),
	}
	for _, svc := range services {
		s.order = append(s.order, svc.Kind())
		s.services[svc.Kind()] = svc
	}
	return s
}

// ScanOnce moves every entry due at now onto the undo queue and returns how many moved.
func (s *Scheduler) ScanOnce(now time.Time) int {
	moved := 0
	for _, kind := range s.order {
		for _, entry := range s.services[kind].Queue().Tick(now) {
			s.undo.Push(UndoEntry{ActivePunishment: entry})
			moved++
			log.Debug().Str("kind", string(kind)).Str("user", entry.MemberID).Str("guild", entry.GuildID).Msg("punishment expired")
		}
	}
	return moved
}

// DrainOnce reverses pending entries while the rate limit allows and returns how many were attempted.
func (s *Scheduler) DrainOnce(ctx context.Context, now time.Time) int {
	attempted := 0
	for ctx.Err() == nil {
		entry, ok := s.undo.PopIf(now, func() bool { return s.limiter.AllowN(now, 1) })
		if !ok {
			break
		}
		attempted++
		s.dispatch(ctx, now, entry)
	}
	return attempted
}

// Dropped returns the number of reversals abandoned after exhausting retries.
func (s *Scheduler) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Scheduler) dispatch(ctx context.Context, now time.Time, entry UndoEntry) {
	svc, ok := s.services[entry.Kind]
	if !ok {
		log.Error().Str("kind", string(entry.Kind)).Msg("no service for expired punishment, dropping")
		return
	}

	err := svc.Expire(ctx, entry.ActivePunishment)
	if err == nil {
		return
	}

	if entry.Attempts < s.cfg.MaxRetries {
		entry.Attempts++
		delay := retryDelay(entry.Attempts, s.cfg.RetryBase, s.cfg.RetryMax)
		entry.NotBefore = now.Add(delay)
		s.undo.Push(entry)
		metrics.ReversalRetries.WithLabelValues(string(entry.Kind)).Inc()
		log.Warn().Err(err).
			Str("kind", string(entry.Kind)).
			Str("user", entry.MemberID).
			Str("guild", entry.GuildID).
			Int("attempt", entry.Attempts).
			Dur("retry_in", delay).
			Msg("automatic reversal failed, will retry")
		return
	}

	s.dropped.Add(1)
	metrics.ReversalsDropped.WithLabelValues(string(entry.Kind)).Inc()
	log.Error().Err(err).
		Str("kind", string(entry.Kind)).
		Str("user", entry.MemberID).
		Str("guild", entry.GuildID).
		Int("attempts", entry.Attempts+1).
		Msg("automatic reversal abandoned")
	if s.audit != nil {
		s.audit.Log(ctx, entry.GuildID, fmt.Sprintf(
			"Failed to automatically lift %s for %s after %d attempts. The record stays active and will be retried on next startup",
			entry.Kind, entry.MemberID, entry.Attempts+1))
	}
}

// Run waits for the gate, then scans and drains on their own tickers until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	select {
	case <-s.gate.Done():
	case <-ctx.Done():
		return nil
	}
	log.Info().Dur("scan", s.cfg.ScanInterval).Dur("drain", s.cfg.DrainInterval).Msg("punishment scheduler started")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.ScanOnce(s.now())
			case <-ctx.Done():
				return nil
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.DrainOnce(ctx, s.now())
			case <-ctx.Done():
				return nil
			}
		}
	})
	err := g.Wait()
	log.Info().Msg("punishment scheduler stopped")
	return err
}

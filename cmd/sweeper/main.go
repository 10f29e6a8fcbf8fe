package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hairfit/internal/adapter/repo"
	"hairfit/internal/domain"
	"hairfit/internal/infra"
	"hairfit/internal/ledger"
)

const staleMessage = "generation timed out while processing"

type staleReaper interface {
	ReapStale(ctx context.Context, olderThan time.Duration, limit int, message string) ([]repo.StaleGeneration, error)
}

type refunder interface {
	OutstandingCharge(ctx context.Context, userID, generationID string) (int, error)
	Grant(ctx context.Context, req ledger.GrantRequest) (string, error)
}

type sweeper struct {
	generations staleReaper
	ledger      refunder
	logger      infra.Logger
	staleAfter  time.Duration
	interval    time.Duration
	batchSize   int
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "sweeper").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweeper: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	s := &sweeper{
		generations: repo.NewGenerationRepository(runner),
		ledger:      ledger.New(runner),
		logger:      logger,
		staleAfter:  cfg.SweepStaleAfter,
		interval:    cfg.SweepInterval,
		batchSize:   cfg.SweepBatchSize,
	}

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("sweeper: stopped with error")
	}
	logger.Info().Msg("sweeper: stopped")
}

func (s *sweeper) Run(ctx context.Context) error {
	s.logger.Info().Dur("stale_after", s.staleAfter).Dur("interval", s.interval).Msg("sweeper: started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.sweepOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweeper: sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sweepOnce fails one batch of stuck generations and refunds what they were charged.
// It returns the number of refunds written.
func (s *sweeper) sweepOnce(ctx context.Context) (int, error) {
	stale, err := s.generations.ReapStale(ctx, s.staleAfter, s.batchSize, staleMessage)
	if err != nil {
		return 0, err
	}
	refunded := 0
	for _, g := range stale {
		log := s.logger.With().Str("generation_id", g.ID).Str("user_id", g.UserID).Logger()
		amount, err := s.ledger.OutstandingCharge(ctx, g.UserID, g.ID)
		if err != nil {
			log.Error().Err(err).Msg("sweeper: load outstanding charge failed")
			continue
		}
		if amount <= 0 {
			log.Info().Msg("sweeper: failed stale generation without outstanding charge")
			continue
		}
		generationID := g.ID
		ledgerID, err := s.ledger.Grant(ctx, ledger.GrantRequest{
			UserID:       g.UserID,
			Amount:       amount,
			EntryType:    domain.LedgerRefund,
			Reason:       domain.ReasonStaleRefund,
			GenerationID: &generationID,
			Metadata:     map[string]any{"reason": domain.ReasonStaleRefund},
		})
		if err != nil {
			log.Error().Err(err).Msg("sweeper: refund failed")
			continue
		}
		refunded++
		log.Info().Str("ledger_id", ledgerID).Int("amount", amount).Msg("sweeper: refunded stale generation")
	}
	return refunded, nil
}

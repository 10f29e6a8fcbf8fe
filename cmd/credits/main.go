package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"hairfit/internal/domain"
	"hairfit/internal/infra"
	"hairfit/internal/ledger"
)

func main() {
	_ = godotenv.Load()

	var (
		userFlag   string
		amountFlag int
		reasonFlag string
	)
	flag.StringVar(&userFlag, "user", "", "user ID to credit")
	flag.IntVar(&amountFlag, "amount", 0, "credits to grant (positive integer)")
	flag.StringVar(&reasonFlag, "reason", domain.ReasonOperatorGrant, "ledger reason recorded with the grant")
	flag.Parse()

	userID := strings.TrimSpace(userFlag)
	if userID == "" {
		exitWithError(errors.New("-user is required"))
	}
	if amountFlag <= 0 {
		exitWithError(errors.New("-amount must be a positive integer"))
	}
	reason := strings.TrimSpace(reasonFlag)
	if reason == "" {
		reason = domain.ReasonOperatorGrant
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "credits").Logger()
	credits := ledger.New(infra.NewSQLRunner(pool, logger))

	ledgerID, err := credits.Grant(ctx, ledger.GrantRequest{
		UserID:    userID,
		Amount:    amountFlag,
		EntryType: domain.LedgerGrant,
		Reason:    reason,
		Metadata:  map[string]any{"source": "cmd/credits"},
	})
	if err != nil {
		exitWithError(fmt.Errorf("grant credits: %w", err))
	}
	balance, err := credits.Balance(ctx, userID)
	if err != nil {
		exitWithError(fmt.Errorf("load balance: %w", err))
	}

	fmt.Printf("granted %d credits to %s (ledger %s); balance is now %d\n", amountFlag, userID, ledgerID, balance)
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "credits: %v\n", err)
	os.Exit(1)
}

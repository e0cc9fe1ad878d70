package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEvaluate_Thresholds(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	ctx := context.Background()

	t.Run("below every threshold", func(t *testing.T) {
		ledger := NewInMemoryLedger(clock)
		for i := 0; i < 4; i++ {
			ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
		}
		svc := NewThreatService(ledger, testSecurityConfig(), clock, discardLogger())

		flags := svc.Evaluate(ctx, "victim@example.com", "10.0.0.1")

		assert.False(t, flags.Account)
		assert.False(t, flags.IP)
		assert.False(t, flags.Global)
		assert.Equal(t, 4, flags.AccountCount)
	})

	t.Run("account threshold is inclusive at exactly five", func(t *testing.T) {
		ledger := NewInMemoryLedger(clock)
		for i := 0; i < 5; i++ {
			ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
		}
		svc := NewThreatService(ledger, testSecurityConfig(), clock, discardLogger())

		flags := svc.Evaluate(ctx, "victim@example.com", "10.0.0.1")

		assert.True(t, flags.Account)
		assert.False(t, flags.IP)
		assert.False(t, flags.Global)
	})

	t.Run("ip threshold counts across accounts", func(t *testing.T) {
		ledger := NewInMemoryLedger(clock)
		for i := 0; i < 30; i++ {
			ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
		}
		svc := NewThreatService(ledger, testSecurityConfig(), clock, discardLogger())

		flags := svc.Evaluate(ctx, "other@example.com", "10.0.0.1")

		assert.True(t, flags.IP)
		assert.False(t, flags.Account)
		assert.Equal(t, 30, flags.IPCount)
	})

	t.Run("global threshold counts everything", func(t *testing.T) {
		ledger := NewInMemoryLedger(clock)
		for i := 0; i < 500; i++ {
			ledger.Insert("someone@example.com", "10.0.0.1", now.Add(-time.Minute))
		}
		svc := NewThreatService(ledger, testSecurityConfig(), clock, discardLogger())

		flags := svc.Evaluate(ctx, "other@example.com", "192.168.1.1")

		assert.True(t, flags.Global)
		assert.False(t, flags.IP)
		assert.False(t, flags.Account)
		assert.Equal(t, 500, flags.GlobalCount)
	})
}

func TestEvaluate_WindowBoundary(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}
	ctx := context.Background()

	ledger := NewInMemoryLedger(clock)
	// Four failures just inside the window plus one exactly on its edge:
	// the record at now-300s still counts, the one at now-301s does not.
	for i := 0; i < 4; i++ {
		ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
	}
	ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-300*time.Second))
	ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-301*time.Second))

	svc := NewThreatService(ledger, testSecurityConfig(), clock, discardLogger())
	flags := svc.Evaluate(ctx, "victim@example.com", "10.0.0.1")

	assert.Equal(t, 5, flags.AccountCount)
	assert.True(t, flags.Account)
}

func TestEvaluate_LedgerErrorFailsOpen(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	ledger := NewInMemoryLedger(clock)
	for i := 0; i < 100; i++ {
		ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
	}
	ledger.CountErr = errors.New("connection refused")

	svc := NewThreatService(ledger, testSecurityConfig(), clock, discardLogger())
	flags := svc.Evaluate(context.Background(), "victim@example.com", "10.0.0.1")

	assert.False(t, flags.IP)
	assert.False(t, flags.Account)
	assert.False(t, flags.Global)
}

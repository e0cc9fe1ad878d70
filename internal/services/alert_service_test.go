package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdavison/bastion/internal/metrics"
	pkglogger "github.com/mdavison/bastion/pkg/logger"
)

func newAlertFixture(t *testing.T, clock fixedClock) (*AlertService, *InMemoryLedger, *MockEmailService) {
	t.Helper()
	cfg := testSecurityConfig()
	logger := discardLogger()
	ledger := NewInMemoryLedger(clock)
	threats := NewThreatService(ledger, cfg, clock, logger)
	email := &MockEmailService{}
	svc := NewAlertService(threats, email, cfg, logger, pkglogger.NewAuditLogger(logger), metrics.New(prometheus.NewRegistry()))
	return svc, ledger, email
}

func TestMaybeAlert_NoThresholdExceeded(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc, ledger, email := newAlertFixture(t, fixedClock{now: now})

	for i := 0; i < 4; i++ {
		ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
	}

	svc.MaybeAlert(context.Background(), "10.0.0.1", "victim@example.com")

	assert.Zero(t, email.SentCount())
}

func TestMaybeAlert_AccountThreshold(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc, ledger, email := newAlertFixture(t, fixedClock{now: now})

	// Five failures against one account, four distinct IPs: below the IP
	// threshold, so the account category is chosen.
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.1"}
	for _, ip := range ips {
		ledger.Insert("victim@example.com", ip, now.Add(-time.Minute))
	}

	svc.MaybeAlert(context.Background(), "10.0.0.1", "victim@example.com")

	require.Equal(t, 1, email.SentCount())
	assert.Equal(t, "Brute Force Alert", email.Sent[0].Subject)
	assert.Equal(t, []string{"security-team@yourcompany.com"}, email.Sent[0].Recipients)
	assert.Contains(t, email.Sent[0].TextBody, "victim@example.com")
	assert.Contains(t, email.Sent[0].TextBody, "5 failed logins")
}

func TestMaybeAlert_IPWinsOverLowerSeverity(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc, ledger, email := newAlertFixture(t, fixedClock{now: now})

	// 31 failures from one IP against one account, plus enough background
	// noise to trip the global threshold too. Exactly one alert goes out
	// and it is the IP category.
	for i := 0; i < 31; i++ {
		ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
	}
	for i := 0; i < 570; i++ {
		ledger.Insert("other@example.com", "192.168.0.1", now.Add(-time.Minute))
	}

	svc.MaybeAlert(context.Background(), "10.0.0.1", "victim@example.com")

	require.Equal(t, 1, email.SentCount())
	assert.Equal(t, "Credential Stuffing Alert", email.Sent[0].Subject)
	assert.Contains(t, email.Sent[0].TextBody, "10.0.0.1")
}

func TestMaybeAlert_GlobalOnly(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc, ledger, email := newAlertFixture(t, fixedClock{now: now})

	// Failures spread thin: no single account or IP trips its threshold
	// but the system-wide count does.
	for i := 0; i < 500; i++ {
		ledger.Insert("", "", now.Add(-time.Minute))
	}

	svc.MaybeAlert(context.Background(), "10.0.0.1", "victim@example.com")

	require.Equal(t, 1, email.SentCount())
	assert.Equal(t, "Global Attack Alert", email.Sent[0].Subject)
}

func TestMaybeAlert_DeliveryFailureSwallowed(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc, ledger, email := newAlertFixture(t, fixedClock{now: now})
	email.SendErr = errors.New("ses unavailable")

	for i := 0; i < 31; i++ {
		ledger.Insert("victim@example.com", "10.0.0.1", now.Add(-time.Minute))
	}

	// Must not panic or surface the error
	svc.MaybeAlert(context.Background(), "10.0.0.1", "victim@example.com")

	assert.Zero(t, email.SentCount())
}

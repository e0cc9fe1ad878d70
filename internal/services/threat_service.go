package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdavison/bastion/internal/config"
	"github.com/mdavison/bastion/internal/models"
)

// FailureLedger defines the interface for the failed-login ledger
type FailureLedger interface {
	Record(ctx context.Context, email, ip, userAgent string) error
	CountForEmail(ctx context.Context, email string, since time.Time) (int, error)
	CountForIP(ctx context.Context, ip string, since time.Time) (int, error)
	CountGlobal(ctx context.Context, since time.Time) (int, error)
	ListAll(ctx context.Context) ([]*models.FailedLogin, error)
}

// ThreatFlags holds the three independent threat indicators derived from
// recent failure counts. The flags are deliberately separate booleans rather
// than a composite score: each axis feeds a different alert severity and
// friction penalty, and keeping them apart keeps the decisions auditable.
type ThreatFlags struct {
	IP      bool
	Account bool
	Global  bool

	IPCount      int
	AccountCount int
	GlobalCount  int
}

// ThreatService derives threat indicators from the failure ledger. It holds
// no state of its own; every evaluation is a fresh read over the trailing
// window ending at the current clock time.
type ThreatService struct {
	ledger FailureLedger
	cfg    config.SecurityConfig
	clock  Clock
	logger *slog.Logger
}

func NewThreatService(ledger FailureLedger, cfg config.SecurityConfig, clock Clock, logger *slog.Logger) *ThreatService {
	return &ThreatService{
		ledger: ledger,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// Evaluate computes the three threat flags for the given attempt. A ledger
// read error degrades that axis to false rather than failing the login:
// the throttle is defense in depth, not a hard gate.
func (s *ThreatService) Evaluate(ctx context.Context, email, ip string) ThreatFlags {
	since := s.clock.Now().Add(-s.cfg.Window)

	var flags ThreatFlags

	ipCount, err := s.ledger.CountForIP(ctx, ip, since)
	if err != nil {
		s.logger.Error("failed to count recent failures for ip",
			slog.String("ip", ip),
			slog.Any("error", err))
	} else {
		flags.IPCount = ipCount
		flags.IP = ipCount >= s.cfg.IPFailThreshold
	}

	accountCount, err := s.ledger.CountForEmail(ctx, email, since)
	if err != nil {
		s.logger.Error("failed to count recent failures for email", slog.Any("error", err))
	} else {
		flags.AccountCount = accountCount
		flags.Account = accountCount >= s.cfg.AccountFailThreshold
	}

	globalCount, err := s.ledger.CountGlobal(ctx, since)
	if err != nil {
		s.logger.Error("failed to count recent global failures", slog.Any("error", err))
	} else {
		flags.GlobalCount = globalCount
		flags.Global = globalCount >= s.cfg.GlobalFailThreshold
	}

	return flags
}

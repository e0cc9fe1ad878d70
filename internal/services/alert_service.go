package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mdavison/bastion/internal/config"
	"github.com/mdavison/bastion/internal/metrics"
	"github.com/mdavison/bastion/internal/models"
	pkglogger "github.com/mdavison/bastion/pkg/logger"
)

// AlertService notifies the security team when failure thresholds are
// exceeded. At most one alert is dispatched per failed-login event, chosen
// by severity IP > account > global, so a single flood that trips all three
// thresholds does not produce three notifications for one underlying event.
type AlertService struct {
	threats     *ThreatService
	email       EmailService
	cfg         config.SecurityConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	metrics     *metrics.Metrics
}

func NewAlertService(threats *ThreatService, email EmailService, cfg config.SecurityConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, m *metrics.Metrics) *AlertService {
	return &AlertService{
		threats:     threats,
		email:       email,
		cfg:         cfg,
		logger:      logger,
		auditLogger: auditLogger,
		metrics:     m,
	}
}

// MaybeAlert evaluates the threat signals for a failed attempt and sends at
// most one categorized alert. Delivery failures are logged and swallowed:
// the next triggering event re-attempts naturally, and the authentication
// flow must never see an error from here.
func (s *AlertService) MaybeAlert(ctx context.Context, ip, email string) {
	flags := s.threats.Evaluate(ctx, email, ip)

	var alert *models.SecurityAlert
	switch {
	case flags.IP:
		alert = &models.SecurityAlert{
			Category:   models.AlertIPFlood,
			Identifier: ip,
			Count:      flags.IPCount,
		}
	case flags.Account:
		alert = &models.SecurityAlert{
			Category:   models.AlertAccountBruteForce,
			Identifier: email,
			Count:      flags.AccountCount,
		}
	case flags.Global:
		alert = &models.SecurityAlert{
			Category:   models.AlertGlobalAttack,
			Count:      flags.GlobalCount,
		}
	default:
		return
	}

	s.dispatch(ctx, alert)
}

func (s *AlertService) dispatch(ctx context.Context, alert *models.SecurityAlert) {
	subject, body := s.compose(alert)

	s.logger.Warn("security alert triggered",
		slog.String("category", alert.Category.String()),
		slog.String("identifier", alert.Identifier),
		slog.Int("count", alert.Count))
	s.auditLogger.LogSecurityAlert(alert.Category.String(), alert.Identifier, alert.Count)
	s.metrics.IncrementAlertsSent(alert.Category.String())

	if err := s.email.Send(ctx, subject, s.cfg.AlertRecipients, body, ""); err != nil {
		s.logger.Error("failed to deliver security alert",
			slog.String("category", alert.Category.String()),
			slog.Any("error", err))
	}
}

func (s *AlertService) compose(alert *models.SecurityAlert) (subject, body string) {
	window := s.cfg.Window

	switch alert.Category {
	case models.AlertIPFlood:
		subject = "Credential Stuffing Alert"
		body = fmt.Sprintf("High number of failures from IP %s: %d in %s.", alert.Identifier, alert.Count, window)
	case models.AlertAccountBruteForce:
		subject = "Brute Force Alert"
		body = fmt.Sprintf("Account %s had %d failed logins in %s.", alert.Identifier, alert.Count, window)
	case models.AlertGlobalAttack:
		subject = "Global Attack Alert"
		body = fmt.Sprintf("System-wide failures: %d in %s.", alert.Count, window)
	}

	return subject, body
}

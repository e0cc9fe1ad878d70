package services

import (
	"time"

	"github.com/mdavison/bastion/internal/config"
)

// Additive penalties applied on top of the exponential backoff when a
// threat axis is flagged. Uncapped: they can stack with each other and
// with the base in the same computation.
const (
	ipPenalty      = 5 * time.Second
	accountPenalty = 5 * time.Second
	globalPenalty  = 10 * time.Second
)

// FrictionService computes the deliberate delay imposed before a login
// outcome is revealed: exponential per-account backoff plus additive
// penalties for each flagged threat axis.
type FrictionService struct {
	cfg     config.SecurityConfig
	sleeper Sleeper
}

func NewFrictionService(cfg config.SecurityConfig, sleeper Sleeper) *FrictionService {
	return &FrictionService{
		cfg:     cfg,
		sleeper: sleeper,
	}
}

// ComputeDelay returns the delay for an attempt given the account's failure
// counter as read before this attempt's outcome is known.
//
// Base is min(2^failedAttempts, cap) seconds. Note the first attempt at
// failedAttempts=0 already incurs 2^0 = 1 second; that is the intended
// behavior, not an off-by-one.
func (s *FrictionService) ComputeDelay(failedAttempts int, flags ThreatFlags) time.Duration {
	delay := time.Duration(s.backoffSeconds(failedAttempts)) * time.Second

	if flags.IP {
		delay += ipPenalty
	}
	if flags.Account {
		delay += accountPenalty
	}
	if flags.Global {
		delay += globalPenalty
	}

	return delay
}

// Apply blocks the current request's goroutine for the computed duration.
// No cancellation: once entered, the wait runs to completion.
func (s *FrictionService) Apply(d time.Duration) {
	if d <= 0 {
		return
	}
	s.sleeper.Sleep(d)
}

// backoffSeconds is min(2^n, cap), computed without overflow for large n.
func (s *FrictionService) backoffSeconds(failedAttempts int) int {
	limit := s.cfg.MaxBackoffSeconds
	if failedAttempts < 0 {
		failedAttempts = 0
	}
	seconds := 1
	for i := 0; i < failedAttempts; i++ {
		seconds *= 2
		if seconds >= limit {
			return limit
		}
	}
	if seconds > limit {
		return limit
	}
	return seconds
}

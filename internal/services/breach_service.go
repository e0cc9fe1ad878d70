package services

import (
	"bufio"
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// BreachChecker defines the interface for the breached-password lookup
type BreachChecker interface {
	IsBreached(ctx context.Context, password string) (bool, error)
}

// HIBPChecker queries the Have I Been Pwned range API using k-anonymity:
// only the first five hex characters of the password's SHA-1 ever leave the
// process.
type HIBPChecker struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

func NewHIBPChecker(logger *slog.Logger) *HIBPChecker {
	return &HIBPChecker{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: "https://api.pwnedpasswords.com",
		logger:  logger,
	}
}

// NewHIBPCheckerWithBaseURL is used by tests to point at a local server.
func NewHIBPCheckerWithBaseURL(baseURL string, logger *slog.Logger) *HIBPChecker {
	c := NewHIBPChecker(logger)
	c.baseURL = baseURL
	return c
}

func (c *HIBPChecker) IsBreached(ctx context.Context, password string) (bool, error) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(fmt.Sprintf("%x", sum))
	prefix, suffix := digest[:5], digest[5:]

	url := fmt.Sprintf("%s/range/%s", c.baseURL, prefix)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build breach lookup request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("breach lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("breach lookup returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if s, _, found := strings.Cut(line, ":"); found && s == suffix {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("failed to read breach lookup response: %w", err)
	}

	return false, nil
}

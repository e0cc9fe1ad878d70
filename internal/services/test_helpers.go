package services

import (
	"context"
	"sync"
	"time"

	"github.com/mdavison/bastion/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc              func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc           func(ctx context.Context, email string) (*models.User, error)
	CreateFunc               func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFailedAttemptsFunc func(ctx context.Context, id string, failedAttempts int) error
	UpdatePasswordFunc       func(ctx context.Context, id, passwordHash string) error
	ListFunc                 func(ctx context.Context, limit, offset int) ([]*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateFailedAttempts(ctx context.Context, id string, failedAttempts int) error {
	if m.UpdateFailedAttemptsFunc != nil {
		return m.UpdateFailedAttemptsFunc(ctx, id, failedAttempts)
	}
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

// InMemoryLedger implements FailureLedger against a slice, with an optional
// error to inject for storage-failure paths.
type InMemoryLedger struct {
	mu      sync.Mutex
	records []*models.FailedLogin
	clock   Clock

	RecordErr error
	CountErr  error
}

func NewInMemoryLedger(clock Clock) *InMemoryLedger {
	return &InMemoryLedger{clock: clock}
}

func (l *InMemoryLedger) Record(ctx context.Context, email, ip, userAgent string) error {
	if l.RecordErr != nil {
		return l.RecordErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, &models.FailedLogin{
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: l.clock.Now(),
	})
	return nil
}

// Insert adds a record with an explicit timestamp for window-boundary tests
func (l *InMemoryLedger) Insert(email, ip string, createdAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, &models.FailedLogin{
		Email:     email,
		IP:        ip,
		CreatedAt: createdAt,
	})
}

func (l *InMemoryLedger) CountForEmail(ctx context.Context, email string, since time.Time) (int, error) {
	if l.CountErr != nil {
		return 0, l.CountErr
	}
	return l.count(func(r *models.FailedLogin) bool { return r.Email == email }, since), nil
}

func (l *InMemoryLedger) CountForIP(ctx context.Context, ip string, since time.Time) (int, error) {
	if l.CountErr != nil {
		return 0, l.CountErr
	}
	return l.count(func(r *models.FailedLogin) bool { return r.IP == ip }, since), nil
}

func (l *InMemoryLedger) CountGlobal(ctx context.Context, since time.Time) (int, error) {
	if l.CountErr != nil {
		return 0, l.CountErr
	}
	return l.count(func(r *models.FailedLogin) bool { return true }, since), nil
}

func (l *InMemoryLedger) ListAll(ctx context.Context) ([]*models.FailedLogin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.FailedLogin, len(l.records))
	copy(out, l.records)
	return out, nil
}

func (l *InMemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func (l *InMemoryLedger) count(match func(*models.FailedLogin) bool, since time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if match(r) && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

// MockEmailService records sent emails instead of delivering them
type MockEmailService struct {
	mu   sync.Mutex
	Sent []SentEmail

	SendErr error
}

type SentEmail struct {
	Subject    string
	Recipients []string
	TextBody   string
}

func (m *MockEmailService) Send(ctx context.Context, subject string, recipients []string, textBody, htmlBody string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{Subject: subject, Recipients: recipients, TextBody: textBody})
	return nil
}

func (m *MockEmailService) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockBreachChecker implements BreachChecker for testing
type MockBreachChecker struct {
	Breached bool
	Err      error
}

func (m *MockBreachChecker) IsBreached(ctx context.Context, password string) (bool, error) {
	return m.Breached, m.Err
}

// fixedClock returns a constant time
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// recordingSleeper captures requested sleep durations without blocking
type recordingSleeper struct {
	mu     sync.Mutex
	slept  []time.Duration
}

func (s *recordingSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
}

func (s *recordingSleeper) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t time.Duration
	for _, d := range s.slept {
		t += d
	}
	return t
}

// NewTestUser builds a user for tests
func NewTestUser(id, email string, failedAttempts int) *models.User {
	now := time.Now()
	return &models.User{
		ID:             id,
		Email:          email,
		FirstName:      "Test",
		LastName:       "User",
		FailedAttempts: failedAttempts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

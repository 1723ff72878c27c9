package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"useraccount/internal/repository/memory"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	kind  string
	email string
	link  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) SendVerification(_ context.Context, email string, link string) error {
	return n.record("verification", email, link)
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, email string, link string) error {
	return n.record("password_reset", email, link)
}

func (n *fakeNotifier) record(kind, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind: kind, email: email, link: link})
	return nil
}

func (n *fakeNotifier) last(kind string) (sentMail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i], true
		}
	}
	return sentMail{}, false
}

type publishedEvent struct {
	subject string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{subject: subject, payload: payload})
	return nil
}

func (p *fakePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	subjects := make([]string, 0, len(p.events))
	for _, e := range p.events {
		subjects = append(subjects, e.subject)
	}
	return subjects
}

type fakeStorage struct {
	saved []string
	err   error
}

func (s *fakeStorage) Save(_ context.Context, filename string, _ string, body io.Reader, _ int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	path := "photos/" + filename
	s.saved = append(s.saved, path)
	return path, nil
}

var errBoom = errors.New("boom")

type authFixture struct {
	svc           *AuthService
	users         *memory.UserRepository
	verifications *memory.VerificationTokenRepository
	audits        *memory.AuditLogRepository
	notifier      *fakeNotifier
	events        *fakePublisher
	clock         *fakeClock
	tokens        JWTTokenIssuer
	config        AuthConfig
	logs          *test.Hook
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	clock := newFakeClock()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &authFixture{
		users:         memory.NewUserRepository(),
		verifications: memory.NewVerificationTokenRepository(clock.Now),
		audits:        memory.NewAuditLogRepository(),
		notifier:      &fakeNotifier{},
		events:        &fakePublisher{},
		clock:         clock,
		tokens:        JWTTokenIssuer{Issuer: "useraccount-test", Clock: clock},
		config: AuthConfig{
			AccessTokenKey:  []byte("access-key"),
			RefreshTokenKey: []byte("refresh-key"),
			BaseURL:         "http://localhost:8080/",
		},
		logs: hook,
	}
	f.svc = NewAuthService(
		f.users,
		f.verifications,
		f.audits,
		f.notifier,
		BcryptPasswordHasher{Cost: bcrypt.MinCost},
		f.tokens,
		f.events,
		clock,
		logger,
		f.config,
	)
	return f
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	parts := strings.SplitN(link, "token=", 2)
	if len(parts) != 2 || parts[1] == "" {
		t.Fatalf("link %q carries no token", link)
	}
	return parts[1]
}

// registerVerified creates an account and confirms its email through the
// emailed link.
func (f *authFixture) registerVerified(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.Register(ctx, RegisterInput{Email: email, Password: password}); err != nil {
		t.Fatalf("register: %v", err)
	}
	mail, ok := f.notifier.last("verification")
	if !ok {
		t.Fatal("no verification mail sent")
	}
	if err := f.svc.VerifyEmail(ctx, tokenFromLink(t, mail.link), nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

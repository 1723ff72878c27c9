package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"useraccount/internal/entity"
	"useraccount/internal/repository"
	"useraccount/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	VerifyEmailPath   = "/users/verify-email"
	ResetPasswordPath = "/users/reset-password"
)

type AuthService struct {
	users         repository.UserRepository
	verifications repository.VerificationTokenRepository

	notifier     Notifier
	passwordHash PasswordHasher
	tokens       TokenIssuer
	clock        Clock
	config       AuthConfig
	activity     activity
	logger       logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
	pending   sync.WaitGroup
}

func NewAuthService(
	users repository.UserRepository,
	verifications repository.VerificationTokenRepository,
	audits repository.AuditLogRepository,
	notifier Notifier,
	passwordHash PasswordHasher,
	tokens TokenIssuer,
	events EventPublisher,
	clock Clock,
	logger logrus.FieldLogger,
	config AuthConfig,
) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		users:         users,
		verifications: verifications,
		notifier:      notifier,
		passwordHash:  passwordHash,
		tokens:        tokens,
		clock:         clock,
		config:        config,
		activity:      newActivity(audits, events, logger),
		logger:        logger,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, internalError(err)
	}

	now := s.now()
	user := &entity.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  hash,
		PhoneNumber:   strings.TrimSpace(input.PhoneNumber),
		EmailVerified: false,
		RoleID:        entity.UserRoleUser,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// the lookup above is only a fast path; the unique index decides races
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, internalError(err)
	}

	s.activity.audit(ctx, &user.ID, input.IPAddress, entity.AuditRegister, nil)
	s.activity.publish(ctx, SubjectUserRegistered, user, now)

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("verification email after registration not sent")
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		_ = s.passwordHash.Verify(s.dummyPasswordHash(), input.Password)
		s.activity.audit(ctx, nil, input.IPAddress, entity.AuditLoginFailed, map[string]any{"email": email, "reason": "unknown_email"})
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		s.activity.audit(ctx, &user.ID, input.IPAddress, entity.AuditLoginFailed, map[string]any{"reason": "email_not_verified"})
		return nil, ErrEmailNotVerified
	}

	if !s.passwordHash.Verify(user.PasswordHash, input.Password) {
		s.activity.audit(ctx, &user.ID, input.IPAddress, entity.AuditLoginFailed, map[string]any{"reason": "password_mismatch"})
		return nil, ErrInvalidCredentials
	}

	result, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.activity.audit(ctx, &user.ID, input.IPAddress, entity.AuditLoginSuccess, nil)
	return result, nil
}

// Refresh exchanges a valid refresh token for a new access/refresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidInput
	}

	claims, err := s.tokens.Parse(refreshToken, s.config.RefreshTokenKey, utils.PurposeRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, accountID)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return s.issueSession(user)
}

// SendVerification emails a verification link to an unverified account.
func (s *AuthService) SendVerification(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return internalError(err)
	}
	if user == nil {
		return ErrEmailNotRegistered
	}
	if user.EmailVerified {
		return ErrEmailAlreadyVerified
	}
	return s.sendVerification(ctx, user)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string, ipAddress *string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}

	record, claims, err := s.findSingleUse(ctx, token, utils.PurposeEmailVerify, entity.EmailVerify)
	if err != nil {
		return err
	}
	now := s.now()
	err = s.consume(ctx, record, func() error {
		return s.users.MarkEmailVerified(ctx, record.UserID, now)
	})
	if err != nil {
		return err
	}

	s.activity.audit(ctx, &record.UserID, ipAddress, entity.AuditEmailVerified, nil)
	s.activity.publish(ctx, SubjectUserVerified, &entity.User{ID: record.UserID, Email: claims.Email}, now)
	return nil
}

// ForgotPassword mints a one-hour reset token and hands the link to the
// notifier in the background. The ticket is returned so the caller decides
// whether the link may be shown.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, ipAddress *string) (*PasswordResetTicket, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, ErrEmailNotRegistered
	}
	if s.notifier == nil {
		return nil, internalError(errors.New("notifier not configured"))
	}

	token, expiresAt, err := s.issueSingleUse(ctx, user, utils.PurposePasswordReset, entity.PasswordReset, s.resetTokenTTL())
	if err != nil {
		return nil, err
	}

	link := s.link(ResetPasswordPath, token)
	recipient := user.Email
	s.deliver(ctx, "password_reset", func(ctx context.Context) error {
		return s.notifier.SendPasswordReset(ctx, recipient, link)
	})

	s.activity.audit(ctx, &user.ID, ipAddress, entity.AuditPasswordResetRequested, nil)
	return &PasswordResetTicket{Token: token, Link: link, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string, ipAddress *string) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}

	record, _, err := s.findSingleUse(ctx, token, utils.PurposePasswordReset, entity.PasswordReset)
	if err != nil {
		return err
	}

	hash, err := s.passwordHash.Hash(newPassword)
	if err != nil {
		return internalError(err)
	}
	err = s.consume(ctx, record, func() error {
		return s.users.UpdatePassword(ctx, record.UserID, hash, s.now())
	})
	if err != nil {
		return err
	}

	s.activity.audit(ctx, &record.UserID, ipAddress, entity.AuditPasswordReset, nil)
	return nil
}

// Wait blocks until every background delivery has finished.
func (s *AuthService) Wait() {
	s.pending.Wait()
}

func (s *AuthService) issueSession(user *entity.User) (*LoginResult, error) {
	claims := utils.Claims{AccountID: user.ID.String(), Email: user.Email}

	access := claims
	access.Purpose = utils.PurposeAccess
	accessToken, accessExpiresAt, err := s.tokens.Sign(access, s.config.AccessTokenKey, s.accessTokenTTL())
	if err != nil {
		return nil, internalError(err)
	}

	refresh := claims
	refresh.Purpose = utils.PurposeRefresh
	refreshToken, refreshExpiresAt, err := s.tokens.Sign(refresh, s.config.RefreshTokenKey, s.refreshTokenTTL())
	if err != nil {
		return nil, internalError(err)
	}

	return &LoginResult{
		User:             StripSensitive(user),
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// StripSensitive returns a copy without the password hash, role and
// timestamps.
func StripSensitive(user *entity.User) *entity.User {
	stripped := *user
	stripped.PasswordHash = ""
	stripped.RoleID = ""
	stripped.CreatedAt = time.Time{}
	stripped.UpdatedAt = time.Time{}
	return &stripped
}

func (s *AuthService) sendVerification(ctx context.Context, user *entity.User) error {
	if s.notifier == nil {
		return internalError(errors.New("notifier not configured"))
	}
	token, _, err := s.issueSingleUse(ctx, user, utils.PurposeEmailVerify, entity.EmailVerify, s.verificationTokenTTL())
	if err != nil {
		return err
	}
	if err := s.notifier.SendVerification(ctx, user.Email, s.link(VerifyEmailPath, token)); err != nil {
		return internalError(err)
	}
	return nil
}

func (s *AuthService) issueSingleUse(
	ctx context.Context,
	user *entity.User,
	purpose utils.TokenPurpose,
	typeValue entity.VerificationType,
	ttl time.Duration,
) (string, time.Time, error) {
	claims := utils.Claims{AccountID: user.ID.String(), Email: user.Email, Purpose: purpose}
	token, expiresAt, err := s.tokens.Sign(claims, s.config.AccessTokenKey, ttl)
	if err != nil {
		return "", time.Time{}, internalError(err)
	}

	record := &entity.VerificationToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: utils.HashToken(token),
		Type:      typeValue,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	if err := s.verifications.Create(ctx, record); err != nil {
		return "", time.Time{}, internalError(err)
	}
	return token, expiresAt, nil
}

func (s *AuthService) findSingleUse(
	ctx context.Context,
	token string,
	purpose utils.TokenPurpose,
	typeValue entity.VerificationType,
) (*entity.VerificationToken, *utils.Claims, error) {
	claims, err := s.tokens.Parse(token, s.config.AccessTokenKey, purpose)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	record, err := s.verifications.FindValid(ctx, utils.HashToken(token), typeValue)
	if err != nil {
		return nil, nil, internalError(err)
	}
	if record == nil || record.UserID != accountID {
		return nil, nil, ErrInvalidToken
	}
	return record, claims, nil
}

// consume claims the ledger row and then applies the account change. The
// claim comes first so two concurrent requests cannot both apply it; when the
// account write fails the claim is released and the token stays usable.
func (s *AuthService) consume(ctx context.Context, record *entity.VerificationToken, apply func() error) error {
	if err := s.verifications.MarkUsed(ctx, record.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return internalError(err)
	}

	err := apply()
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if releaseErr := s.verifications.Release(context.WithoutCancel(ctx), record.ID); releaseErr != nil {
		s.logger.WithError(releaseErr).WithField("token_id", record.ID).Error("consumed token not released")
	}
	return internalError(err)
}

func (s *AuthService) deliver(ctx context.Context, kind string, send func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deliveryTimeout())
		defer cancel()
		if err := send(deliveryCtx); err != nil {
			s.logger.WithError(err).WithField("notification", kind).Error("notification delivery failed")
		}
	}()
}

func (s *AuthService) link(path string, token string) string {
	base := strings.TrimRight(s.config.BaseURL, "/")
	return base + path + "?token=" + url.QueryEscape(token)
}

// dummyPasswordHash is compared against on unknown emails so both failure
// paths cost one bcrypt verification.
func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.passwordHash.Hash(uuid.NewString())
		if err != nil {
			s.logger.WithError(err).Warn("dummy password hash not generated")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *AuthService) accessTokenTTL() time.Duration {
	if s.config.AccessTokenTTL > 0 {
		return s.config.AccessTokenTTL
	}
	return 24 * time.Hour
}

func (s *AuthService) refreshTokenTTL() time.Duration {
	if s.config.RefreshTokenTTL > 0 {
		return s.config.RefreshTokenTTL
	}
	return 48 * time.Hour
}

func (s *AuthService) verificationTokenTTL() time.Duration {
	if s.config.VerificationTokenTTL > 0 {
		return s.config.VerificationTokenTTL
	}
	return 24 * time.Hour
}

func (s *AuthService) resetTokenTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return time.Hour
}

func (s *AuthService) deliveryTimeout() time.Duration {
	if s.config.DeliveryTimeout > 0 {
		return s.config.DeliveryTimeout
	}
	return 30 * time.Second
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/inspecthq/fieldreport/internal/audit"
	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/platform/mailer"
	"github.com/inspecthq/fieldreport/internal/repo/filestore"
	"github.com/inspecthq/fieldreport/internal/throttle"
	"github.com/inspecthq/fieldreport/pkg/auth"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type LoginResult struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int64            `json:"expires_in"`
	User        *domain.UserInfo `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, addr, phone, password, email string) (*LoginResult, error)
	Login(ctx context.Context, addr, phone, password string) (*LoginResult, error)
	RequestEmailCode(ctx context.Context, addr, phone, email, password string) error
	VerifyEmailCode(ctx context.Context, addr, phone, code string) (*LoginResult, error)
	GetUser(ctx context.Context, userID int64) (*domain.UserRecord, error)
	UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate) (*domain.UserRecord, error)
}

type authService struct {
	users   filestore.UserRepository
	mailer  mailer.Service
	limiter *throttle.Limiter
	lockout *throttle.Lockout
	audit   audit.Sink

	jwtSecret       string
	accessTokenTTL  time.Duration
	verificationTTL time.Duration
}

func NewAuthService(
	users filestore.UserRepository,
	mail mailer.Service,
	limiter *throttle.Limiter,
	lockout *throttle.Lockout,
	sink audit.Sink,
	jwtSecret string,
	accessTokenTTL, verificationTTL time.Duration,
) AuthService {
	return &authService{
		users:           users,
		mailer:          mail,
		limiter:         limiter,
		lockout:         lockout,
		audit:           sink,
		jwtSecret:       jwtSecret,
		accessTokenTTL:  accessTokenTTL,
		verificationTTL: verificationTTL,
	}
}

func (s *authService) allow(action, addr, phone string) error {
	retryAfter, ok := s.limiter.Allow(throttle.Key(action, addr, phone))
	if !ok {
		return domain.Throttled(domain.ErrRateLimited, retryAfter)
	}
	return nil
}

func (s *authService) token(user *domain.UserRecord) (*LoginResult, error) {
	accessToken, err := auth.NewAccessToken(user.UserID, user.Phone, s.jwtSecret, s.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	return &LoginResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.accessTokenTTL.Seconds()),
		User:        user.ToUserInfo(),
	}, nil
}

func (s *authService) Register(ctx context.Context, addr, phone, password, email string) (*LoginResult, error) {
	if err := s.allow("register", addr, phone); err != nil {
		return nil, err
	}

	phone = domain.NormalizePhone(phone)
	email = domain.NormalizeEmail(email)
	if email != "" && !domain.IsValidEmail(email) {
		return nil, domain.ErrInvalidEmail
	}

	passwordHash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(phone, passwordHash, email)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, user.UserID, "REGISTER", map[string]any{"phone": user.Phone, "email": user.Email})
	return s.token(user)
}

func (s *authService) Login(ctx context.Context, addr, phone, password string) (*LoginResult, error) {
	if err := s.allow("login", addr, phone); err != nil {
		return nil, err
	}

	phone = domain.NormalizePhone(phone)
	if remaining, locked := s.lockout.IsLocked(addr, phone); locked {
		return nil, domain.Throttled(domain.ErrLocked, remaining)
	}

	user, err := s.users.GetByPhone(phone)
	if err != nil || !s.verifyPassword(user, password) {
		s.lockout.RecordFailure(addr, phone)
		if user != nil {
			s.audit.Record(ctx, user.UserID, "LOGIN_FAILED", map[string]any{"phone": phone})
		}
		return nil, domain.ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, domain.ErrNotVerified
	}

	s.lockout.Clear(addr, phone)
	s.audit.Record(ctx, user.UserID, "LOGIN_SUCCESS", map[string]any{"phone": user.Phone})
	return s.token(user)
}

func (s *authService) verifyPassword(user *domain.UserRecord, password string) bool {
	if user == nil {
		return false
	}
	match, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		logger.Warn("password hash comparison failed", "user_id", user.UserID, "error", err)
		return false
	}
	return match
}

// RequestEmailCode issues a 6-digit verification code. An unknown phone is
// registered on the fly; an existing unverified user must present the right
// password and may rotate it in the same call.
func (s *authService) RequestEmailCode(ctx context.Context, addr, phone, email, password string) error {
	if err := s.allow("request_email_code", addr, phone); err != nil {
		return err
	}

	phone = domain.NormalizePhone(phone)
	email = domain.NormalizeEmail(email)
	if !domain.IsValidEmail(email) {
		return domain.ErrInvalidEmail
	}

	user, err := s.users.GetByPhone(phone)
	switch {
	case err == nil:
		if user.Verified {
			return domain.ErrAlreadyVerified
		}
		if !s.verifyPassword(user, password) {
			return domain.ErrWrongPassword
		}
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	passwordHash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if user == nil {
		if user, err = s.users.Create(phone, passwordHash, email); err != nil {
			return err
		}
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	codeHash, err := argon2id.CreateHash(code, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	expiresAt := time.Now().Add(s.verificationTTL)
	if _, err := s.users.SetVerification(phone, email, passwordHash, codeHash, expiresAt); err != nil {
		return err
	}

	s.audit.Record(ctx, user.UserID, "REQUEST_EMAIL_CODE", map[string]any{"phone": phone, "email": email})

	if err := s.mailer.SendVerificationCode(email, code); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	return nil
}

func (s *authService) VerifyEmailCode(ctx context.Context, addr, phone, code string) (*LoginResult, error) {
	if err := s.allow("verify_email", addr, phone); err != nil {
		return nil, err
	}

	phone = domain.NormalizePhone(phone)
	user, err := s.users.GetByPhone(phone)
	if err != nil || user.VerificationCodeHash == "" {
		return nil, domain.ErrNoCodeRequested
	}

	if user.VerificationExpiresAt != "" {
		expiresAt, parseErr := domain.ParseTimestamp(user.VerificationExpiresAt)
		if parseErr == nil && time.Now().UTC().After(expiresAt) {
			return nil, domain.ErrCodeExpired
		}
	}

	match, err := argon2id.ComparePasswordAndHash(code, user.VerificationCodeHash)
	if err != nil || !match {
		return nil, domain.ErrInvalidCode
	}

	verified, err := s.users.MarkVerified(phone)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, verified.UserID, "VERIFY_EMAIL", map[string]any{"phone": verified.Phone, "email": verified.Email})
	return s.token(verified)
}

func (s *authService) GetUser(ctx context.Context, userID int64) (*domain.UserRecord, error) {
	return s.users.GetByID(userID)
}

func (s *authService) UpdateProfile(ctx context.Context, userID int64, upd domain.ProfileUpdate) (*domain.UserRecord, error) {
	user, err := s.users.UpdateProfile(userID, upd)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, "UPDATE_PROFILE", nil)
	return user, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

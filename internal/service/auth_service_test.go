package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inspecthq/fieldreport/internal/audit"
	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/repo/filestore"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/internal/throttle"
	"github.com/inspecthq/fieldreport/pkg/auth"
)

type captureMailer struct {
	lastEmail string
	lastCode  string
}

func (m *captureMailer) SendVerificationCode(toEmail, code string) error {
	m.lastEmail = toEmail
	m.lastCode = code
	return nil
}

func newTestAuthService(t *testing.T) (AuthService, *captureMailer) {
	t.Helper()
	paths := storage.NewPaths(t.TempDir())
	mail := &captureMailer{}
	svc := NewAuthService(
		filestore.NewUserRepository(paths),
		mail,
		throttle.NewLimiter(time.Minute, 100),
		throttle.NewLockout(10*time.Minute, 5, 10*time.Minute),
		audit.NopSink{},
		"test-secret",
		time.Hour,
		10*time.Minute,
	)
	return svc, mail
}

func verifiedUser(t *testing.T, svc AuthService, mail *captureMailer, phone, password string) *LoginResult {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.RequestEmailCode(ctx, "1.2.3.4", phone, "user@example.com", password))
	result, err := svc.VerifyEmailCode(ctx, "1.2.3.4", phone, mail.lastCode)
	require.NoError(t, err)
	return result
}

func TestRequestAndVerifyEmailCode(t *testing.T) {
	svc, mail := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestEmailCode(ctx, "1.2.3.4", "+15550001", "user@example.com", "hunter22"))
	assert.Equal(t, "user@example.com", mail.lastEmail)
	assert.Len(t, mail.lastCode, 6)

	result, err := svc.VerifyEmailCode(ctx, "1.2.3.4", "+15550001", mail.lastCode)
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.True(t, result.User.Verified)

	claims, err := auth.Parse(result.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, result.User.UserID, claims.Sub)
}

func TestVerifyEmailCodeWrongCode(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestEmailCode(ctx, "1.2.3.4", "+15550001", "user@example.com", "hunter22"))

	_, err := svc.VerifyEmailCode(ctx, "1.2.3.4", "+15550001", "000000")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestVerifyEmailCodeWithoutRequest(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.VerifyEmailCode(context.Background(), "1.2.3.4", "+15550001", "123456")
	assert.ErrorIs(t, err, domain.ErrNoCodeRequested)
}

func TestRequestEmailCodeRejectsInvalidEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	err := svc.RequestEmailCode(context.Background(), "1.2.3.4", "+15550001", "not-an-email", "hunter22")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestRequestEmailCodeAlreadyVerified(t *testing.T) {
	svc, mail := newTestAuthService(t)
	verifiedUser(t, svc, mail, "+15550001", "hunter22")

	err := svc.RequestEmailCode(context.Background(), "1.2.3.4", "+15550001", "user@example.com", "hunter22")
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestRequestEmailCodeWrongPasswordForExistingUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestEmailCode(ctx, "1.2.3.4", "+15550001", "user@example.com", "hunter22"))

	err := svc.RequestEmailCode(ctx, "1.2.3.4", "+15550001", "user@example.com", "other-password")
	assert.ErrorIs(t, err, domain.ErrWrongPassword)
}

func TestLoginSuccess(t *testing.T) {
	svc, mail := newTestAuthService(t)
	verifiedUser(t, svc, mail, "+15550001", "hunter22")

	result, err := svc.Login(context.Background(), "1.2.3.4", "+15550001", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mail := newTestAuthService(t)
	verifiedUser(t, svc, mail, "+15550001", "hunter22")

	_, err := svc.Login(context.Background(), "1.2.3.4", "+15550001", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnverifiedUser(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestEmailCode(ctx, "1.2.3.4", "+15550001", "user@example.com", "hunter22"))

	_, err := svc.Login(ctx, "1.2.3.4", "+15550001", "hunter22")
	assert.ErrorIs(t, err, domain.ErrNotVerified)
}

func TestLoginUnknownPhone(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "1.2.3.4", "+15550001", "hunter22")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	svc, mail := newTestAuthService(t)
	verifiedUser(t, svc, mail, "+15550001", "hunter22")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "1.2.3.4", "+15550001", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	_, err := svc.Login(ctx, "1.2.3.4", "+15550001", "hunter22")
	require.ErrorIs(t, err, domain.ErrLocked)

	var throttled *domain.ThrottledError
	require.ErrorAs(t, err, &throttled)
	assert.Greater(t, throttled.RetryAfter, time.Duration(0))
}

func TestLoginRateLimited(t *testing.T) {
	paths := storage.NewPaths(t.TempDir())
	svc := NewAuthService(
		filestore.NewUserRepository(paths),
		&captureMailer{},
		throttle.NewLimiter(time.Minute, 2),
		throttle.NewLockout(10*time.Minute, 5, 10*time.Minute),
		audit.NopSink{},
		"test-secret",
		time.Hour,
		10*time.Minute,
	)
	ctx := context.Background()

	svc.Login(ctx, "1.2.3.4", "+15550001", "x")
	svc.Login(ctx, "1.2.3.4", "+15550001", "x")

	_, err := svc.Login(ctx, "1.2.3.4", "+15550001", "x")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestUpdateProfile(t *testing.T) {
	svc, mail := newTestAuthService(t)
	result := verifiedUser(t, svc, mail, "+15550001", "hunter22")
	ctx := context.Background()

	name := "Dana Levi"
	role := "Site Engineer"
	user, err := svc.UpdateProfile(ctx, result.User.UserID, domain.ProfileUpdate{
		FullName:  &name,
		RoleTitle: &role,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana Levi", user.FullName)
	assert.Equal(t, "Site Engineer", user.RoleTitle)

	fetched, err := svc.GetUser(ctx, result.User.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Dana Levi", fetched.FullName)
}

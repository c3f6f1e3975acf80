package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{verify: map[string]string{}, reset: map[string]string{}}
}

func (m *recordingMailer) SendVerificationCode(email, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verify[email] = code
}

func (m *recordingMailer) SendPasswordResetCode(email, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = code
}

func newAuthService(t *testing.T, admins ...string) (*AuthService, *recordingMailer, *TokenService) {
	t.Helper()
	gdb := newTestDB(t)
	tokens, err := NewTokenService("test-secret-key", time.Hour)
	require.NoError(t, err)
	mailer := newRecordingMailer()
	return NewAuthService(gdb, logger.Nop(), tokens, mailer, admins), mailer, tokens
}

func TestSignupVerifyLogin(t *testing.T) {
	auth, mailer, tokens := newAuthService(t)
	ctx := context.Background()
	creds := Credentials{Email: " Alice@Example.com ", Password: "hunter22"}

	require.NoError(t, auth.Signup(ctx, creds))
	code := mailer.verify["alice@example.com"]
	require.Len(t, code, 6)

	_, err := auth.Login(ctx, creds)
	assert.EqualError(t, err, "Please verify your email")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = auth.VerifyOTP(ctx, VerifyOTPInput{Email: "alice@example.com", OTP: wrong})
	assert.EqualError(t, err, "Invalid or expired OTP")

	res, err := auth.VerifyOTP(ctx, VerifyOTPInput{Email: "alice@example.com", OTP: code})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	// 验证码只能使用一次
	_, err = auth.VerifyOTP(ctx, VerifyOTPInput{Email: "alice@example.com", OTP: code})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	res, err = auth.Login(ctx, creds)
	require.NoError(t, err)
	claims, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, claims.ID)
	assert.Equal(t, models.RoleUser, claims.Role)

	_, err = auth.Login(ctx, Credentials{Email: "alice@example.com", Password: "wrong-pass"})
	assert.EqualError(t, err, "Invalid credentials")

	err = auth.Signup(ctx, Credentials{Email: "alice@example.com", Password: "another1"})
	assert.EqualError(t, err, "Signup failed")
}

func TestSignupAssignsConfiguredAdmin(t *testing.T) {
	auth, mailer, _ := newAuthService(t, "Boss@Example.com")
	ctx := context.Background()

	require.NoError(t, auth.Signup(ctx, Credentials{Email: "boss@example.com", Password: "secret1"}))
	res, err := auth.VerifyOTP(ctx, VerifyOTPInput{Email: "boss@example.com", OTP: mailer.verify["boss@example.com"]})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.Role)
}

func TestOTPExpires(t *testing.T) {
	auth, mailer, _ := newAuthService(t)
	ctx := context.Background()
	now := time.Now()
	auth.now = func() time.Time { return now }

	require.NoError(t, auth.Signup(ctx, Credentials{Email: "late@example.com", Password: "secret1"}))
	now = now.Add(otpTTL + time.Second)

	_, err := auth.VerifyOTP(ctx, VerifyOTPInput{Email: "late@example.com", OTP: mailer.verify["late@example.com"]})
	assert.EqualError(t, err, "Invalid or expired OTP")
}

func TestForgotAndResetPassword(t *testing.T) {
	auth, mailer, _ := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, auth.ForgotPassword(ctx, "ghost@example.com"))
	assert.Empty(t, mailer.reset)

	require.NoError(t, auth.Signup(ctx, Credentials{Email: "bob@example.com", Password: "oldpass"}))
	require.NoError(t, auth.ForgotPassword(ctx, "bob@example.com"))
	code := mailer.reset["bob@example.com"]
	require.Len(t, code, 6)

	// 注册验证码已被重置验证码替换
	_, err := auth.VerifyOTP(ctx, VerifyOTPInput{Email: "bob@example.com", OTP: mailer.verify["bob@example.com"]})
	assert.Error(t, err)

	err = auth.ResetPassword(ctx, ResetPasswordInput{Email: "bob@example.com", OTP: code, NewPassword: "123"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	require.NoError(t, auth.ResetPassword(ctx, ResetPasswordInput{Email: "bob@example.com", OTP: code, NewPassword: "newpass"}))
	_, err = auth.Login(ctx, Credentials{Email: "bob@example.com", Password: "newpass"})
	require.NoError(t, err)
}

func TestGoogleLoginLinksAndCreates(t *testing.T) {
	auth, _, _ := newAuthService(t)
	ctx := context.Background()

	require.NoError(t, auth.Signup(ctx, Credentials{Email: "carol@example.com", Password: "secret1"}))
	linked, err := auth.GoogleLogin(ctx, &GoogleProfile{ID: "g-1", Email: "Carol@example.com", VerifiedEmail: true})
	require.NoError(t, err)

	var carol models.User
	require.NoError(t, auth.db.First(&carol, "email = ?", "carol@example.com").Error)
	assert.Equal(t, carol.ID, linked.UserID)
	require.NotNil(t, carol.GoogleID)
	assert.Equal(t, "g-1", *carol.GoogleID)
	assert.True(t, carol.IsVerified)

	created, err := auth.GoogleLogin(ctx, &GoogleProfile{ID: "g-2", Email: "dave@example.com", VerifiedEmail: true})
	require.NoError(t, err)
	assert.NotEqual(t, linked.UserID, created.UserID)

	_, err = auth.Login(ctx, Credentials{Email: "dave@example.com", Password: "anything"})
	assert.EqualError(t, err, "This account uses Google login. Please sign in with Google.")

	_, err = auth.GoogleLogin(ctx, &GoogleProfile{ID: "g-3", Email: "eve@example.com"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

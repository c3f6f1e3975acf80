package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oaforum/internal/apperror"
	"oaforum/internal/logger"
	"oaforum/internal/models"
	"oaforum/internal/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	otpTTL            = 5 * time.Minute
	otpLength         = 6
	minPasswordLength = 6
)

type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPInput struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type ResetPasswordInput struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// AuthResult 登录成功后返回给客户端
type AuthResult struct {
	Token  string `json:"token"`
	Role   string `json:"role"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type AuthService struct {
	db     *gorm.DB
	log    *logger.Logger
	tokens *TokenService
	mailer CodeMailer
	admins map[string]bool
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, log *logger.Logger, tokens *TokenService, mailer CodeMailer, adminEmails []string) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = true
	}
	return &AuthService{
		db:     db,
		log:    log,
		tokens: tokens,
		mailer: mailer,
		admins: admins,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) newUser(email string) models.User {
	role := models.RoleUser
	if s.admins[email] {
		role = models.RoleAdmin
	}
	return models.User{
		Email:             email,
		Role:              role,
		NotificationPrefs: datatypes.NewJSONType(models.DefaultNotificationPrefs()),
	}
}

// Signup 创建未验证账号并发送验证码。邮箱已存在时返回笼统的错误，不暴露账号是否存在
func (s *AuthService) Signup(ctx context.Context, in Credentials) error {
	email := normalizeEmail(in.Email)
	if len(in.Password) < minPasswordLength {
		return apperror.ValidationFailed("password", "Password must be at least 6 characters")
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperror.BadRequest("Signup failed")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := s.newUser(email)
	user.Password = hash
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	code, err := s.issueOTP(ctx, email, models.OTPPurposeVerify)
	if err != nil {
		return err
	}
	s.mailer.SendVerificationCode(email, code)
	s.log.Info("User signed up", "user_id", user.ID)
	return nil
}

// VerifyOTP 校验注册验证码，成功后直接登录
func (s *AuthService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := s.consumeOTP(ctx, email, models.OTPPurposeVerify, in.OTP); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.BadRequest("Invalid or expired OTP")
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("is_verified", true).Error; err != nil {
		return nil, err
	}
	return s.result(&user)
}

// Login 邮箱密码登录。仅绑定 Google 的账号没有密码，需走 Google 登录
func (s *AuthService) Login(ctx context.Context, in Credentials) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.BadRequest("Invalid credentials")
		}
		return nil, err
	}
	if user.Password == "" && user.GoogleID != nil {
		return nil, apperror.BadRequest("This account uses Google login. Please sign in with Google.")
	}
	if !user.IsVerified {
		return nil, apperror.BadRequest("Please verify your email")
	}
	if !utils.CheckPasswordHash(in.Password, user.Password) {
		return nil, apperror.BadRequest("Invalid credentials")
	}
	return s.result(&user)
}

// ForgotPassword 无论邮箱是否存在都返回成功，只在账号存在时发送验证码
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	code, err := s.issueOTP(ctx, email, models.OTPPurposeReset)
	if err != nil {
		return err
	}
	s.mailer.SendPasswordResetCode(email, code)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if len(in.NewPassword) < minPasswordLength {
		return apperror.ValidationFailed("newPassword", "Password must be at least 6 characters")
	}
	email := normalizeEmail(in.Email)
	if err := s.consumeOTP(ctx, email, models.OTPPurposeReset, in.OTP); err != nil {
		return err
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	// 能收到邮件说明邮箱属于本人，顺带标记为已验证
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Updates(map[string]any{"password": hash, "is_verified": true}).Error
}

// GoogleLogin 先按 googleId 查找，再按邮箱关联已有账号，都没有则创建已验证账号
func (s *AuthService) GoogleLogin(ctx context.Context, profile *GoogleProfile) (*AuthResult, error) {
	if profile.ID == "" || profile.Email == "" {
		return nil, apperror.BadRequest("Google account has no email")
	}
	if !profile.VerifiedEmail {
		return nil, apperror.BadRequest("Google email is not verified")
	}
	email := normalizeEmail(profile.Email)

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ?", profile.ID).Or("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = s.newUser(email)
			user.GoogleID = &profile.ID
			user.IsVerified = true
			return tx.Create(&user).Error
		case err != nil:
			return err
		case user.GoogleID == nil:
			user.GoogleID = &profile.ID
			user.IsVerified = true
			return tx.Model(&user).Updates(map[string]any{"google_id": profile.ID, "is_verified": true}).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("google login: %w", err)
	}
	return s.result(&user)
}

func (s *AuthService) result(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Role: user.Role, UserID: user.ID, Email: user.Email}, nil
}

// issueOTP 生成新验证码并删除该邮箱之前的验证码
func (s *AuthService) issueOTP(ctx context.Context, email, purpose string) (string, error) {
	code, err := utils.GenerateRandomCode(otpLength)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Delete(&models.OTP{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.OTP{
			Email:     email,
			Purpose:   purpose,
			Code:      code,
			ExpiresAt: s.now().Add(otpTTL),
		}).Error
	})
	if err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// consumeOTP 校验成功后删除该邮箱的所有验证码
func (s *AuthService) consumeOTP(ctx context.Context, email, purpose, code string) error {
	var otp models.OTP
	err := s.db.WithContext(ctx).
		Where("email = ? AND purpose = ? AND code = ?", email, purpose, code).
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.BadRequest("Invalid or expired OTP")
		}
		return err
	}
	if otp.Expired(s.now()) {
		return apperror.BadRequest("Invalid or expired OTP")
	}
	return s.db.WithContext(ctx).Where("email = ?", email).Delete(&models.OTP{}).Error
}

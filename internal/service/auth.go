package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/client"
	"storefront-backend/internal/config"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"
	"storefront-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	// RequestPasswordReset answers uniformly whether or not the email is
	// registered, so the endpoint cannot be used to probe accounts.
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, req *dto.PasswordResetConfirmRequest) error
}

type authServiceImpl struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	mail     client.MailClient
	jwtCfg   config.JWT
	logger   *slog.Logger
}

func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	mail client.MailClient,
	jwtCfg config.JWT,
	logger *slog.Logger,
) AuthService {
	return &authServiceImpl{
		db:       db,
		userRepo: userRepo,
		mail:     mail,
		jwtCfg:   jwtCfg,
		logger:   logger,
	}
}

func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	expiresAt := time.Now().Add(time.Duration(s.jwtCfg.TTLMinutes) * time.Minute)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	})

	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &dto.LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *authServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Uniform response; nothing reveals whether the email exists.
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.userRepo.CreateResetToken(ctx, newResetToken(user.ID, token)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	// Fire-and-forget: a mail failure never blocks the reset flow.
	if err := s.mail.Send(ctx, user.Email, "Password reset",
		"Use this token to reset your password: "+token); err != nil {
		s.logger.Error("password reset mail failed", "user_id", user.ID, "error", err)
	}

	return nil
}

func (s *authServiceImpl) ConfirmPasswordReset(ctx context.Context, req *dto.PasswordResetConfirmRequest) error {
	if len(req.NewPassword) < 8 {
		return apperr.Validation("invalid password", map[string]string{"new_password": "must be at least 8 characters"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tokenHash := hashResetToken(req.Token)

	var userID string
	// Token consumption and the password update are one transaction; a
	// token can never be spent without the password actually changing.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := s.userRepo.ConsumeResetToken(ctx, tx, tokenHash, time.Now())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("invalid or expired token", nil)
			}
			return fmt.Errorf("consume reset token: %w", err)
		}
		userID = token.UserID

		return s.userRepo.UpdatePassword(ctx, tx, token.UserID, string(hash))
	})
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err == nil {
		if err := s.mail.Send(ctx, user.Email, "Password changed",
			"Your password was just changed. If this wasn't you, contact support."); err != nil {
			s.logger.Error("password changed mail failed", "user_id", userID, "error", err)
		}
	}

	return nil
}

func newResetToken(userID, token string) *model.PasswordResetToken {
	return &model.PasswordResetToken{
		UserID:    userID,
		TokenHash: hashResetToken(token),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

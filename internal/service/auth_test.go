package service

import (
	"context"
	"strings"
	"testing"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/config"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"
	"storefront-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeMail struct {
	sent []string
}

func (f *fakeMail) Send(ctx context.Context, toEmail, subject, textBody string) error {
	f.sent = append(f.sent, textBody)
	return nil
}

const testJWTSecret = "test-secret"

func newAuthService(t *testing.T, db *gorm.DB, mail *fakeMail) AuthService {
	t.Helper()
	return NewAuthService(db, repository.NewUserRepository(db), mail,
		config.JWT{Secret: testJWTSecret, TTLMinutes: 60}, discardLogger())
}

func seedUserWithPassword(t *testing.T, db *gorm.DB, password string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "Test Customer",
		PasswordHash: string(hash),
		Role:         model.RoleCustomer,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, &fakeMail{})
	ctx := context.Background()

	user := seedUserWithPassword(t, db, "correct horse")

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "correct horse"})
	require.NoError(t, err)

	parsed, err := jwt.Parse(resp.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, model.RoleCustomer, claims["role"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, &fakeMail{})
	ctx := context.Background()

	user := seedUserWithPassword(t, db, "correct horse")

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "wrong"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "x"})
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	db := newTestDB(t)
	mail := &fakeMail{}
	svc := newAuthService(t, db, mail)
	ctx := context.Background()

	user := seedUserWithPassword(t, db, "old password")

	require.NoError(t, svc.RequestPasswordReset(ctx, user.Email))
	require.Len(t, mail.sent, 1)

	idx := strings.LastIndex(mail.sent[0], ": ")
	require.Greater(t, idx, 0)
	token := mail.sent[0][idx+2:]

	require.NoError(t, svc.ConfirmPasswordReset(ctx, &dto.PasswordResetConfirmRequest{
		Token:       token,
		NewPassword: "new password",
	}))

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "new password"})
	require.NoError(t, err)

	// A spent token cannot be replayed.
	err = svc.ConfirmPasswordReset(ctx, &dto.PasswordResetConfirmRequest{
		Token:       token,
		NewPassword: "another password",
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	db := newTestDB(t)
	mail := &fakeMail{}
	svc := newAuthService(t, db, mail)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, mail.sent)
}

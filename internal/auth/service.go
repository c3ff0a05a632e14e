// Package auth implements email/password authentication with one-time
// codes: registration, login, OTP issuance and verification, and the
// current-user lookup.
//
// Import Path: novostudio.tech/foundation/internal/auth
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"novostudio.tech/foundation/internal/api/middleware"
	"novostudio.tech/foundation/internal/entity"
	"novostudio.tech/foundation/internal/notification"
	"novostudio.tech/foundation/internal/pkg/logger"
	"novostudio.tech/foundation/internal/pkg/worker"
)

// Service-level sentinel errors. Handlers translate these; anything else
// bubbles to the error middleware untouched.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidOTP         = errors.New("auth: invalid or expired code")
	ErrUserNotFound       = errors.New("auth: user not found")
)

// Config holds the authentication knobs.
type Config struct {
	TokenTTL   time.Duration
	OTPTTL     time.Duration
	OTPLength  int
	BcryptCost int
}

// Service implements the authentication flows over the users and otp_codes
// tables.
type Service struct {
	db     *sqlx.DB
	jwtCfg middleware.JWTConfig
	cfg    Config
	sender notification.Sender
	pools  *worker.Pools
}

// NewService wires the authentication service.
func NewService(db *sqlx.DB, jwtCfg middleware.JWTConfig, cfg Config, sender notification.Sender, pools *worker.Pools) *Service {
	return &Service{db: db, jwtCfg: jwtCfg, cfg: cfg, sender: sender, pools: pools}
}

var (
	userColumns = strings.Join(entity.Users.Columns, ", ")
	otpColumns  = strings.Join(entity.OTPCodes.Columns, ", ")
)

// Register creates a user and queues an email-verification code. The unique
// index on email surfaces duplicate registrations as a database conflict.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*entity.User, error) {
	email = NormalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT INTO users (email, password_hash, display_name) VALUES ($1, $2, $3) RETURNING %s",
		userColumns,
	)
	var user entity.User
	if err := s.db.QueryRowxContext(ctx, query, email, string(hash), displayName).StructScan(&user); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.issueOTP(ctx, &user, entity.OTPPurposeEmailVerify)
	return &user, nil
}

// Login verifies the password and returns the user with a signed token.
// Disabled accounts and unknown emails fail the same way as a wrong
// password.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, string, time.Time, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if !user.Enabled {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	s.touchLastLogin(ctx, user.ID)

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, user.ID, user.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// RequestOTP issues a fresh code for the account, if one exists. The result
// is identical either way so the endpoint cannot be used to probe for
// registered emails.
func (s *Service) RequestOTP(ctx context.Context, email, purpose string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			logger.Warn("otp requested for unknown email")
			return nil
		}
		return err
	}
	if !user.Enabled {
		logger.Warn("otp requested for disabled account", zap.String("user_id", user.ID))
		return nil
	}
	s.issueOTP(ctx, user, purpose)
	return nil
}

// VerifyOTP consumes a pending code and returns the user with a signed
// token. An email_verify code also flips the email_verified flag.
func (s *Service) VerifyOTP(ctx context.Context, email, code, purpose string) (*entity.User, string, time.Time, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", time.Time{}, ErrInvalidOTP
		}
		return nil, "", time.Time{}, err
	}
	if !user.Enabled {
		return nil, "", time.Time{}, ErrInvalidOTP
	}

	consumeQuery := fmt.Sprintf(
		"UPDATE otp_codes SET consumed_at = now() WHERE id = ("+
			"SELECT id FROM otp_codes WHERE user_id = $1 AND purpose = $2 AND code = $3 "+
			"AND consumed_at IS NULL AND expires_at > now() "+
			"ORDER BY created_at DESC LIMIT 1) RETURNING %s",
		otpColumns,
	)
	var otp entity.OTPCode
	if err := s.db.QueryRowxContext(ctx, consumeQuery, user.ID, purpose, code).StructScan(&otp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", time.Time{}, ErrInvalidOTP
		}
		return nil, "", time.Time{}, fmt.Errorf("consume otp: %w", err)
	}

	if purpose == entity.OTPPurposeEmailVerify && !user.EmailVerified {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE users SET email_verified = true, updated_at = now() WHERE id = $1", user.ID,
		); err != nil {
			return nil, "", time.Time{}, fmt.Errorf("mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	s.touchLastLogin(ctx, user.ID)

	token, expiresAt, err := middleware.GenerateToken(s.jwtCfg, user.ID, user.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user entity.User
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &user, nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	var user entity.User
	if err := s.db.GetContext(ctx, &user, query, NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// issueOTP stores a fresh code and queues the delivery mail. Storage
// failures are logged, not returned: the caller's flow (registration, OTP
// request) must not break because a code could not be written.
func (s *Service) issueOTP(ctx context.Context, user *entity.User, purpose string) {
	code, err := generateCode(s.cfg.OTPLength)
	if err != nil {
		logger.Error("otp generation failed", zap.Error(err))
		return
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO otp_codes (user_id, code, purpose, expires_at) VALUES ($1, $2, $3, $4)",
		user.ID, code, purpose, time.Now().Add(s.cfg.OTPTTL),
	)
	if err != nil {
		logger.Error("otp store failed", zap.Error(err), zap.String("user_id", user.ID))
		return
	}

	subject := "Your login code"
	if purpose == entity.OTPPurposeEmailVerify {
		subject = "Verify your email"
	}
	notification.Dispatch(s.pools, s.sender, notification.Message{
		To:      user.Email,
		Subject: subject,
		Body:    fmt.Sprintf("Your code is %s. It expires in %s.", code, s.cfg.OTPTTL),
	})
}

func (s *Service) touchLastLogin(ctx context.Context, userID string) {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = now() WHERE id = $1", userID,
	); err != nil {
		logger.Warn("last_login_at update failed", zap.Error(err), zap.String("user_id", userID))
	}
}

// NormalizeEmail lowercases and trims an email address; all storage and
// lookups go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateCode produces a numeric one-time code of the given length.
// Leading zeros are valid; each digit is drawn independently.
func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("crypto/rand: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

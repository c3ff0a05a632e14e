package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"novostudio.tech/foundation/internal/api/middleware"
	"novostudio.tech/foundation/internal/entity"
	"novostudio.tech/foundation/internal/notification"
	"novostudio.tech/foundation/internal/pkg/logger"
	"novostudio.tech/foundation/internal/pkg/worker"
)

func TestMain(m *testing.M) {
	logger.Init("error", "console")
	m.Run()
}

var (
	userCols = strings.Join(entity.Users.Columns, ", ")
	otpCols  = strings.Join(entity.OTPCodes.Columns, ", ")
)

const testPassword = "correct-horse-battery"

func testHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func userRow(t *testing.T, id, email string, enabled, verified bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"created_at", "display_name", "email", "email_verified",
		"enabled", "id", "last_login_at", "password_hash", "updated_at",
	}).AddRow(now, "Test User", email, verified, enabled, id, nil, testHash(t), now)
}

func otpRow(id, userID, code, purpose string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"code", "consumed_at", "created_at", "expires_at", "id", "purpose", "user_id",
	}).AddRow(code, now, now, now.Add(10*time.Minute), id, purpose, userID)
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pools, err := worker.NewPools(context.Background(), worker.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	svc := NewService(
		sqlx.NewDb(db, "pgx"),
		middleware.JWTConfig{
			SigningKey: []byte("0123456789abcdef0123456789abcdef"),
			Issuer:     "foundation-test",
			ExpiresIn:  time.Hour,
		},
		Config{
			TokenTTL:   time.Hour,
			OTPTTL:     10 * time.Minute,
			OTPLength:  6,
			BcryptCost: bcrypt.MinCost,
		},
		notification.LogSender{},
		pools,
	)
	return svc, mock
}

func TestRegister(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("INSERT INTO users (email, password_hash, display_name) VALUES ($1, $2, $3) RETURNING "+userCols).
		WithArgs("new@example.com", sqlmock.AnyArg(), "New User").
		WillReturnRows(userRow(t, "u1", "new@example.com", true, false))
	mock.ExpectExec("INSERT INTO otp_codes (user_id, code, purpose, expires_at) VALUES ($1, $2, $3, $4)").
		WithArgs("u1", sqlmock.AnyArg(), entity.OTPPurposeEmailVerify, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := svc.Register(context.Background(), "  NEW@example.com ", testPassword, "New User")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.False(t, user.EmailVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
		WithArgs("a@example.com").
		WillReturnRows(userRow(t, "u1", "a@example.com", true, true))
	mock.ExpectExec("UPDATE users SET last_login_at = now() WHERE id = $1").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, token, expiresAt, err := svc.Login(context.Background(), "a@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_Rejections(t *testing.T) {
	t.Run("wrong password", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
			WithArgs("a@example.com").
			WillReturnRows(userRow(t, "u1", "a@example.com", true, true))

		_, _, _, err := svc.Login(context.Background(), "a@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
			WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, _, _, err := svc.Login(context.Background(), "ghost@example.com", testPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
			WithArgs("off@example.com").
			WillReturnRows(userRow(t, "u2", "off@example.com", false, true))

		_, _, _, err := svc.Login(context.Background(), "off@example.com", testPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRequestOTP(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
		WithArgs("a@example.com").
		WillReturnRows(userRow(t, "u1", "a@example.com", true, true))
	mock.ExpectExec("INSERT INTO otp_codes (user_id, code, purpose, expires_at) VALUES ($1, $2, $3, $4)").
		WithArgs("u1", sqlmock.AnyArg(), entity.OTPPurposeLogin, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.RequestOTP(context.Background(), "a@example.com", entity.OTPPurposeLogin)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestOTP_UnknownEmailSilent(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.RequestOTP(context.Background(), "ghost@example.com", entity.OTPPurposeLogin)
	assert.NoError(t, err, "unknown emails are not distinguishable")
	assert.NoError(t, mock.ExpectationsWereMet(), "no code is stored")
}

const consumeQuery = "UPDATE otp_codes SET consumed_at = now() WHERE id = (" +
	"SELECT id FROM otp_codes WHERE user_id = $1 AND purpose = $2 AND code = $3 " +
	"AND consumed_at IS NULL AND expires_at > now() " +
	"ORDER BY created_at DESC LIMIT 1) RETURNING "

func TestVerifyOTP_Login(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
		WithArgs("a@example.com").
		WillReturnRows(userRow(t, "u1", "a@example.com", true, true))
	mock.ExpectQuery(consumeQuery+otpCols).
		WithArgs("u1", entity.OTPPurposeLogin, "123456").
		WillReturnRows(otpRow("o1", "u1", "123456", entity.OTPPurposeLogin))
	mock.ExpectExec("UPDATE users SET last_login_at = now() WHERE id = $1").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, token, _, err := svc.VerifyOTP(context.Background(), "a@example.com", "123456", entity.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NotEmpty(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTP_EmailVerifyFlipsFlag(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
		WithArgs("a@example.com").
		WillReturnRows(userRow(t, "u1", "a@example.com", true, false))
	mock.ExpectQuery(consumeQuery+otpCols).
		WithArgs("u1", entity.OTPPurposeEmailVerify, "654321").
		WillReturnRows(otpRow("o2", "u1", "654321", entity.OTPPurposeEmailVerify))
	mock.ExpectExec("UPDATE users SET email_verified = true, updated_at = now() WHERE id = $1").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET last_login_at = now() WHERE id = $1").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, _, _, err := svc.VerifyOTP(context.Background(), "a@example.com", "654321", entity.OTPPurposeEmailVerify)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTP_BadCode(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE email = $1").
		WithArgs("a@example.com").
		WillReturnRows(userRow(t, "u1", "a@example.com", true, true))
	mock.ExpectQuery(consumeQuery+otpCols).
		WithArgs("u1", entity.OTPPurposeLogin, "000000").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, _, err := svc.VerifyOTP(context.Background(), "a@example.com", "000000", entity.OTPPurposeLogin)
	assert.ErrorIs(t, err, ErrInvalidOTP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE id = $1").
		WithArgs("u1").
		WillReturnRows(userRow(t, "u1", "a@example.com", true, true))

	user, err := svc.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	mock.ExpectQuery("SELECT "+userCols+" FROM users WHERE id = $1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = svc.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@example.com", NormalizeEmail("  A@Example.COM "))
}

func TestGenerateCode(t *testing.T) {
	for _, length := range []int{4, 6, 10} {
		code, err := generateCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q must be numeric", code)
		}
	}
}

package entity

import "time"

// OTP purposes.
const (
	OTPPurposeLogin       = "login"
	OTPPurposeEmailVerify = "email_verify"
)

// OTPCode is a single-use numeric code mailed to a user. Consumed codes
// stay around until the cleanup job purges them.
type OTPCode struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Code       string     `db:"code" json:"-"`
	Purpose    string     `db:"purpose" json:"purpose"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// OTPCodes is the descriptor for OTPCode. Not mounted in the admin panel;
// the descriptor exists for the repository and the cleanup job.
var OTPCodes = MustDescribe(&OTPCode{}, "otp-codes", "otp_codes", "code", "user_id", "purpose", "expires_at", "consumed_at")

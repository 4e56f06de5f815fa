package domain

// OtpPurpose identifies what a one-time code proves when redeemed.
type OtpPurpose string

const (
	PurposeEmailVerification OtpPurpose = "email_verification"
	PurposePasswordReset     OtpPurpose = "password_reset"
	PurposeTwoFactor         OtpPurpose = "two_factor"
)

// ValidOtpPurpose reports whether p is one of the recognized purposes.
func ValidOtpPurpose(p OtpPurpose) bool {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset, PurposeTwoFactor:
		return true
	}
	return false
}

// OtpCode is a single-use verification code.
// PK: user_id, SK: purpose — issuing a new code for the same (user, purpose)
// overwrites the prior item, so at most one active code exists per purpose.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type OtpCode struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Purpose   string `json:"purpose" dynamodbav:"purpose"`
	Code      string `json:"-" dynamodbav:"code"`
	IssuedAt  int64  `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Consumed  bool   `json:"consumed" dynamodbav:"consumed"`
	Attempts  int    `json:"attempts" dynamodbav:"attempts"`
}

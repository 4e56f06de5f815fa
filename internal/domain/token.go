package domain

import "time"

// RefreshTokenRecord is the revocation-set entry for an issued refresh token.
// The token itself is a JWT; only its jti and revocation state live in the store.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL so dead entries age out.
type RefreshTokenRecord struct {
	TokenID   string    `json:"id" dynamodbav:"token_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Revoked   bool      `json:"revoked" dynamodbav:"revoked"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

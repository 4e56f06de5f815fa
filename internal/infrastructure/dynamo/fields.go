package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable         = "enable"
	fieldRole           = "role"
	fieldPasswordHash   = "password_hash"
	fieldEmailConfirmed = "email_confirmed"
	fieldConsumed       = "consumed"
	fieldCode           = "code"
	fieldAttempts       = "attempts"
	fieldRevoked        = "revoked"
	fieldUpdatedAt      = "updated_at"
)

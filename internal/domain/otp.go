package domain

import "time"

// OtpRecord is the pending email verification code for a user.
// PK: user_id — there is at most one record per user; issuing or
// resending replaces any earlier one wholesale.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type OtpRecord struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Code      string    `json:"code" dynamodbav:"code"`
	Verified  bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

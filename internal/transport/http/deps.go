package http

import (
	"context"
	"time"

	"github.com/go-otp-gate/internal/domain"
)

// UserRepository is the minimal interface the router requires from the user store.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	SetValidation(ctx context.Context, userID string, at time.Time) error
}

// OtpRepository is the minimal interface the router requires from the OTP store.
type OtpRepository interface {
	Put(ctx context.Context, rec *domain.OtpRecord) error
	Find(ctx context.Context, userID, otpCode string) (*domain.OtpRecord, error)
	MarkVerified(ctx context.Context, userID string) (bool, error)
	DeleteForUser(ctx context.Context, userID string) error
}

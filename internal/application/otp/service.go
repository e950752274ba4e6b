package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/clock"
	"github.com/go-otp-gate/internal/pkg/code"
)

// Outcome is the result of a verification attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeInvalid covers a wrong code, a missing record, an expired
	// code and an already-consumed code — deliberately indistinguishable
	// to the caller.
	OutcomeInvalid
	OutcomeMissingInput
)

// Message returns the user-facing text for the outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeSuccess:
		return "Your email has been verified!"
	case OutcomeMissingInput:
		return "Missing data."
	default:
		return "Invalid OTP."
	}
}

type Service interface {
	// Issue generates and delivers a code for a freshly registered user.
	// A missing account is a silent no-op: the registration hook must not
	// fail the caller over it.
	Issue(ctx context.Context, userID string) error
	// Resend replaces any previous code with a new one. Unlike Issue, a
	// missing account surfaces as domain.ErrNotFound.
	Resend(ctx context.Context, userID string) error
	// Verify checks a submitted code and, on success, stamps the
	// account-level validation flag.
	Verify(ctx context.Context, userID, otpCode string) (Outcome, error)
}

type otpStore interface {
	Put(ctx context.Context, rec *domain.OtpRecord) error
	Find(ctx context.Context, userID, otpCode string) (*domain.OtpRecord, error)
	MarkVerified(ctx context.Context, userID string) (bool, error)
	DeleteForUser(ctx context.Context, userID string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	SetValidation(ctx context.Context, userID string, at time.Time) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	otpRepo  otpStore
	userRepo userStore
	mailer   mailer
	clock    clock.Clock
	codeTTL  time.Duration
}

type ServiceDeps struct {
	OtpRepo  otpStore
	UserRepo userStore
	Mailer   mailer
	Clock    clock.Clock
	CodeTTL  time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		otpRepo:  deps.OtpRepo,
		userRepo: deps.UserRepo,
		mailer:   deps.Mailer,
		clock:    deps.Clock,
		codeTTL:  deps.CodeTTL,
	}
}

func (s *service) Issue(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("otp issue skipped, user not found", "user_id", userID)
			return nil
		}
		return err
	}
	return s.sendCode(ctx, u, "Your OTP Code", "Your verification code is")
}

func (s *service) Resend(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	// Explicit delete-first keeps the one-record invariant even on
	// backends without native upsert.
	if err := s.otpRepo.DeleteForUser(ctx, userID); err != nil {
		return err
	}
	return s.sendCode(ctx, u, "Your New OTP Code", "Your new verification code is")
}

func (s *service) sendCode(ctx context.Context, u *domain.User, subject, intro string) error {
	otpCode, err := code.New()
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	rec := &domain.OtpRecord{
		UserID:    u.UserID,
		Email:     u.Email,
		Code:      otpCode,
		Verified:  false,
		CreatedAt: now,
		ExpiresAt: now.Add(s.codeTTL).Unix(),
	}
	if err := s.otpRepo.Put(ctx, rec); err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s,\n\n%s: %s\n\nIt expires in %d minutes.",
		u.DisplayName(), intro, otpCode, int(s.codeTTL.Minutes()))
	if err := s.mailer.SendEmail(u.Email, subject, body); err != nil {
		slog.Error("otp email delivery failed", "user_id", u.UserID, "err", err)
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

func (s *service) Verify(ctx context.Context, userID, otpCode string) (Outcome, error) {
	if userID == "" || otpCode == "" {
		return OutcomeMissingInput, nil
	}
	rec, err := s.otpRepo.Find(ctx, userID, otpCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return OutcomeInvalid, nil
		}
		return OutcomeInvalid, err
	}
	if rec.Verified {
		return OutcomeInvalid, nil
	}
	if s.clock.Now().Unix() >= rec.ExpiresAt {
		return OutcomeInvalid, nil
	}
	flipped, err := s.otpRepo.MarkVerified(ctx, userID)
	if err != nil {
		return OutcomeInvalid, err
	}
	if !flipped {
		// Lost the race to a concurrent verify: the record is already
		// consumed, same as a re-submitted code.
		return OutcomeInvalid, nil
	}
	if err := s.userRepo.SetValidation(ctx, userID, s.clock.Now()); err != nil {
		return OutcomeInvalid, err
	}
	return OutcomeSuccess, nil
}

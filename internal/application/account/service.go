package account

import (
	"context"
	"fmt"
	"time"

	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/id"
)

type Service interface {
	// Register creates an unverified account. The caller fires the OTP
	// issuer afterwards, mirroring a registration hook.
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	// Login resolves an account by email and returns a bearer token for it.
	Login(ctx context.Context, email string) (string, *domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type jwtSigner interface {
	Sign(userID string) (string, error)
}

type service struct {
	repo        userStore
	jwtProvider jwtSigner
}

type ServiceDeps struct {
	UserRepo    userStore
	JWTProvider jwtSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo, jwtProvider: deps.JWTProvider}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:    id.New(),
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Nickname:  req.Nickname,
		Enable:    1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email string) (string, *domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	bearer, err := s.jwtProvider.Sign(u.UserID)
	if err != nil {
		return "", nil, err
	}
	return bearer, u, nil
}

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-otp-gate/internal/config"
	"github.com/go-otp-gate/internal/domain"
	jwtinfra "github.com/go-otp-gate/internal/infrastructure/jwt"
	"github.com/go-otp-gate/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (r *fakeUserRepo) Put(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.UserID] = &cp
	return nil
}

func (r *fakeUserRepo) SetValidation(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	u.Validation = &domain.ValidationFlag{ValidationTime: at.Unix()}
	return nil
}

type fakeOtpRepo struct {
	mu      sync.Mutex
	records map[string]*domain.OtpRecord
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{records: map[string]*domain.OtpRecord{}}
}

func (r *fakeOtpRepo) Put(_ context.Context, rec *domain.OtpRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.UserID] = &cp
	return nil
}

func (r *fakeOtpRepo) Find(_ context.Context, userID, otpCode string) (*domain.OtpRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok || rec.Code != otpCode {
		return nil, fmt.Errorf("otp record not found: %w", domain.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeOtpRepo) MarkVerified(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID]
	if !ok || rec.Verified {
		return false, nil
	}
	rec.Verified = true
	return true, nil
}

func (r *fakeOtpRepo) DeleteForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
	return nil
}

type captureMailer struct {
	mu       sync.Mutex
	lastTo   string
	lastSubj string
	lastBody string
	sent     int
}

func (m *captureMailer) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo, m.lastSubj, m.lastBody = to, subject, body
	m.sent++
	return nil
}

// --- harness ---

func testConfig() *config.Config {
	return &config.Config{
		AppPort:       "0",
		JWTSecret:     "test-secret",
		JWTExpiryDays: 1,
		OTPCodeTTL:    10 * time.Minute,
		Gate: config.GateConfig{
			LoginPath:       "/tds-login-register/",
			AccountPath:     "/tds-my-account/",
			OTPPath:         "/verify-otp/",
			RestrictedSlugs: []string{"tds-my-account"},
			PlanParam:       "selected_plan",
		},
		AllowedOrigins: []string{"*"},
	}
}

type harness struct {
	router http.Handler
	users  *fakeUserRepo
	otps   *fakeOtpRepo
	mailer *captureMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig()
	provider, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)

	h := &harness{
		users:  newFakeUserRepo(),
		otps:   newFakeOtpRepo(),
		mailer: &captureMailer{},
	}
	h.router = NewRouter(cfg, &Deps{
		UserRepo:    h.users,
		OtpRepo:     h.otps,
		Mailer:      h.mailer,
		JWTProvider: provider,
		Clock:       clock.New(),
	})
	return h
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) register(t *testing.T, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":"tester","email":%q,"first_name":"Terry"}`, email)
	req := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		User *domain.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NotNil(t, env.User)
	return env.User.UserID
}

func (h *harness) login(t *testing.T, email string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/login", strings.NewReader(fmt.Sprintf(`{"email":%q}`, email)))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env struct {
		Bearer string `json:"Bearer"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NotEmpty(t, env.Bearer)
	return env.Bearer
}

func (h *harness) verifyOTP(t *testing.T, userID, otpCode string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	form := url.Values{"user_id": {userID}, "otp_code": {otpCode}}
	req := httptest.NewRequest(http.MethodPost, "/v1/otp/verify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := h.do(t, req)

	var env struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env.Success
}

func (h *harness) storedCode(userID string) string {
	h.otps.mu.Lock()
	defer h.otps.mu.Unlock()
	if rec, ok := h.otps.records[userID]; ok {
		return rec.Code
	}
	return ""
}

// --- end to end ---

func TestEndToEnd_RegisterVerifyAndPassGate(t *testing.T) {
	h := newHarness(t)

	userID := h.register(t, "a@b.com")

	// Registration stored a pending six-digit code and emailed it.
	otpCode := h.storedCode(userID)
	require.Len(t, otpCode, 6)
	assert.Equal(t, "a@b.com", h.mailer.lastTo)
	assert.Equal(t, "Your OTP Code", h.mailer.lastSubj)
	assert.Contains(t, h.mailer.lastBody, otpCode)

	bearer := h.login(t, "a@b.com")

	// Unverified: the gate bounces the account page to the OTP page.
	req := httptest.NewRequest(http.MethodGet, "/tds-my-account/", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := h.do(t, req)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/verify-otp/?user_id="+userID, rec.Header().Get("Location"))

	// Submit the code.
	rec, success := h.verifyOTP(t, userID, otpCode)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, success)

	// The account-level flag is set.
	u, err := h.users.Get(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u.Validation)
	assert.Greater(t, u.Validation.ValidationTime, int64(0))

	// Verified: the account page now passes through.
	req = httptest.NewRequest(http.MethodGet, "/tds-my-account/", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec = h.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// And the OTP page redirects home.
	req = httptest.NewRequest(http.MethodGet, "/verify-otp/", nil)
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec = h.do(t, req)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/tds-my-account/", rec.Header().Get("Location"))
}

func TestEndToEnd_ReplaySameCodeFails(t *testing.T) {
	h := newHarness(t)
	userID := h.register(t, "a@b.com")
	otpCode := h.storedCode(userID)

	_, success := h.verifyOTP(t, userID, otpCode)
	require.True(t, success)

	rec, success := h.verifyOTP(t, userID, otpCode)
	assert.False(t, success)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEndToEnd_ResendInvalidatesOldCode(t *testing.T) {
	h := newHarness(t)
	userID := h.register(t, "a@b.com")
	oldCode := h.storedCode(userID)

	form := url.Values{"user_id": {userID}}
	req := httptest.NewRequest(http.MethodPost, "/v1/otp/resend", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := h.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your New OTP Code", h.mailer.lastSubj)

	newCode := h.storedCode(userID)
	require.NotEmpty(t, newCode)

	if oldCode != newCode {
		_, success := h.verifyOTP(t, userID, oldCode)
		assert.False(t, success, "old code must be rejected after resend")
	}

	_, success := h.verifyOTP(t, userID, newCode)
	assert.True(t, success)
}

func TestEndToEnd_AnonymousBrowsingUnaffected(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/tds-my-account/", nil)
	rec := h.do(t, req)
	// Rule 2: anonymous users are not the gate's concern.
	assert.NotEqual(t, http.StatusFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/verify-otp/", nil)
	rec = h.do(t, req)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/tds-login-register/", rec.Header().Get("Location"))
}

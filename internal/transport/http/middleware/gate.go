package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"github.com/go-otp-gate/internal/config"
	"github.com/go-otp-gate/internal/domain"
)

type gateUserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Gate enforces email verification on every page view. Rules, in order,
// first match wins:
//
//  1. OTP page, not logged in        → redirect to the login page
//  2. not logged in                  → pass through (anonymous browsing)
//  3. restricted page, not verified  → redirect to the OTP page
//  4. OTP page, already verified     → redirect to the account page
//  5. otherwise                      → pass through
type Gate struct {
	cfg        config.GateConfig
	users      gateUserStore
	restricted []*regexp.Regexp
	otpRe      *regexp.Regexp
}

func NewGate(cfg config.GateConfig, users gateUserStore) *Gate {
	g := &Gate{cfg: cfg, users: users}
	for _, slug := range cfg.RestrictedSlugs {
		if slug == "" {
			continue
		}
		g.restricted = append(g.restricted, slugPattern(slug))
	}
	g.otpRe = slugPattern(pathSlug(cfg.OTPPath))
	return g
}

// slugPattern matches /<slug> followed by a slash, a query string or
// end-of-path, so /tds-my-account does not also match /tds-my-account-extra.
func slugPattern(slug string) *regexp.Regexp {
	return regexp.MustCompile("/" + regexp.QuoteMeta(slug) + `(/|\?|$)`)
}

func pathSlug(p string) string {
	return regexp.MustCompile(`^/+|/+$`).ReplaceAllString(p, "")
}

func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.RequestURI()
		isOTPPage := g.otpRe.MatchString(uri)
		claims, loggedIn := ClaimsFromContext(r.Context())

		if isOTPPage && !loggedIn {
			http.Redirect(w, r, g.cfg.LoginPath, http.StatusFound)
			return
		}
		if !loggedIn {
			next.ServeHTTP(w, r)
			return
		}

		isRestricted := false
		for _, re := range g.restricted {
			if re.MatchString(uri) {
				isRestricted = true
				break
			}
		}

		verified := false
		if isRestricted || isOTPPage {
			u, err := g.users.Get(r.Context(), claims.UserID)
			if err != nil {
				slog.Error("gate could not load user", "user_id", claims.UserID, "err", err)
				writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
			verified = u.IsVerified()
		}

		if isRestricted && !verified {
			dest := g.cfg.OTPPath + "?user_id=" + url.QueryEscape(claims.UserID)
			if ref := r.URL.Query().Get("ref_url"); ref != "" {
				dest += "&ref_url=" + url.QueryEscape(ref)
			}
			http.Redirect(w, r, dest, http.StatusFound)
			return
		}
		if verified && isOTPPage {
			http.Redirect(w, r, g.cfg.AccountPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cityprint/api/internal/platform/httpx"
)

const defaultStaffLeeway = 30 * time.Second

// StaffClaims is the JWT claim set issued to back-office operators.
type StaffClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// StaffVerifier validates HMAC-signed staff tokens issued by the admin console.
type StaffVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// StaffOption customises StaffVerifier behaviour.
type StaffOption func(*StaffVerifier)

// WithStaffLeeway adjusts the allowed clock skew for expiry checks.
func WithStaffLeeway(d time.Duration) StaffOption {
	return func(v *StaffVerifier) {
		if d >= 0 {
			v.leeway = d
		}
	}
}

// WithStaffClock overrides the time source, used by tests.
func WithStaffClock(now func() time.Time) StaffOption {
	return func(v *StaffVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewStaffVerifier constructs a StaffVerifier with the shared signing secret.
func NewStaffVerifier(secret, issuer string, opts ...StaffOption) (*StaffVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: staff jwt secret is required")
	}
	v := &StaffVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		leeway: defaultStaffLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify parses and validates the token string, returning the staff identity.
// The parser checks the signature only; expiry, not-before and issuer are
// validated here so the verifier's clock and leeway apply.
func (v *StaffVerifier) Verify(tokenStr string) (*Identity, error) {
	if v == nil {
		return nil, errors.New("auth: staff verifier not initialised")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &StaffClaims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: staff token invalid: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: staff token invalid")
	}
	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(claims.Roles))
	for _, role := range claims.Roles {
		normalised := normaliseRole(role)
		if normalised != "" {
			roles = append(roles, normalised)
		}
	}
	if len(roles) == 0 {
		roles = []string{RoleStaff}
	}

	return &Identity{
		UID:   claims.Subject,
		Roles: roles,
	}, nil
}

// validateClaims enforces the temporal and issuer constraints on a token whose
// signature already checked out. Staff tokens must carry an expiry.
func (v *StaffVerifier) validateClaims(claims *StaffClaims) error {
	now := v.now()

	if claims.ExpiresAt == nil {
		return errors.New("auth: staff token has no expiry")
	}
	if now.After(claims.ExpiresAt.Time.Add(v.leeway)) {
		return errors.New("auth: staff token expired")
	}
	if claims.NotBefore != nil && now.Add(v.leeway).Before(claims.NotBefore.Time) {
		return errors.New("auth: staff token not yet valid")
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return fmt.Errorf("auth: staff token issuer %q not trusted", claims.Issuer)
	}
	return nil
}

// RequireStaffAuth rejects requests whose bearer token is not a valid staff JWT.
func (v *StaffVerifier) RequireStaffAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "authorization header missing or invalid", http.StatusUnauthorized))
				return
			}

			identity, err := v.Verify(tokenStr)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "staff token invalid", http.StatusUnauthorized))
				return
			}
			if !identity.IsStaff() {
				httpx.WriteError(ctx, w, httpx.NewError("unauthorized", "staff role required", http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

package auth

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ErrMissingSubject is returned for valid tokens without a sub claim
var ErrMissingSubject = errors.New("token has no subject")

// JWTCfg holds JWT authentication configuration
type JWTCfg struct {
	HS256Secret string // HMAC secret for HS256 tokens
	Issuer      string // Expected iss claim; empty skips the check
}

// Enabled reports whether tokens are checked at all
func (c JWTCfg) Enabled() bool {
	return c.HS256Secret != ""
}

// ValidateToken verifies an HS256 token and returns its subject
func ValidateToken(tok string, cfg JWTCfg) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		// Verify signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.HS256Secret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", jwt.ErrTokenSignatureInvalid
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", ErrMissingSubject
	}
	return sub, nil
}

// Middleware creates HTTP middleware requiring a valid Bearer token.
// Requests without one are rejected with 401 before reaching the handler.
func Middleware(cfg JWTCfg) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			tok := ""
			if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
				tok = h[7:]
			}

			if tok == "" {
				log.Ctx(r.Context()).Warn().Msg("missing bearer token")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sub, err := ValidateToken(tok, cfg)
			if err != nil {
				log.Ctx(r.Context()).Warn().Err(err).Msg("jwt validation failed")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// Tag every later log line of this request with the subject
			logger := log.Ctx(r.Context()).With().Str("sub", sub).Logger()
			ctx := logger.WithContext(r.Context())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

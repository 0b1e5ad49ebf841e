package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Service validates bearer tokens issued by the retail platform's identity
// service. This service never issues tokens itself.
type Service struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Claims is the identity extracted from a validated staff token.
type Claims struct {
	StaffID string
	Roles   []string
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ParseToken verifies the signature and standard claims of a staff token and
// extracts the subject and role list.
func (s *Service) ParseToken(raw string) (Claims, error) {
	if s == nil || len(s.Secret) == 0 {
		return Claims{}, errors.New("auth: service not configured")
	}
	if raw == "" {
		return Claims{}, unauthorized("missing token", nil)
	}

	options := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, s.Secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	}
	if s.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(s.ClockSkew))
	}
	if s.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.Issuer))
	}
	if s.Audience != "" {
		options = append(options, jwt.WithAudience(s.Audience))
	}

	tok, err := jwt.ParseString(raw, options...)
	if err != nil {
		return Claims{}, unauthorized("invalid or expired token", err)
	}

	sub := tok.Subject()
	if sub == "" {
		return Claims{}, unauthorized("token missing subject", nil)
	}
	return Claims{StaffID: sub, Roles: rolesClaim(tok)}, nil
}

func rolesClaim(tok jwt.Token) []string {
	raw, ok := tok.Get("roles")
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

func unauthorized(message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

// RoleAdmin gates the audit trail endpoints.
const RoleAdmin = "admin"

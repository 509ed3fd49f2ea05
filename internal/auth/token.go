package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/toko-promo/internal/common"
)

// VerifierConfig configures access token verification.
type VerifierConfig struct {
	Secret    string
	Issuer    string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Verifier checks HS256 access tokens issued by the account service. The
// token subject carries the numeric user id that owns the coupons.
type Verifier struct {
	secret []byte
	issuer string
	skew   time.Duration
	now    func() time.Time
}

// NewVerifier builds a Verifier from the shared signing secret.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: secret is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		issuer: strings.TrimSpace(cfg.Issuer),
		skew:   cfg.ClockSkew,
		now:    now,
	}, nil
}

// ParseAccessToken verifies the signature and time claims of token and
// returns the user id in its subject. Every failure is a 401 AppError.
func (v *Verifier) ParseAccessToken(token string) (int64, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return 0, common.Unauthorized("missing token", nil)
	}
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(v.now)),
		jwt.WithAcceptableSkew(v.skew),
		jwt.WithRequiredClaim(jwt.SubjectKey),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseString(trimmed, opts...)
	if err != nil {
		return 0, common.Unauthorized("invalid token", err)
	}
	id, err := strconv.ParseInt(parsed.Subject(), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Unauthorized("invalid token subject", fmt.Errorf("subject %q is not a user id", parsed.Subject()))
	}
	return id, nil
}

// Issue signs a token for the given user. promoctl uses it to call the API
// in development without the account service.
func (v *Verifier) Issue(userID int64, ttl time.Duration) (string, error) {
	now := v.now()
	builder := jwt.NewBuilder().
		Subject(strconv.FormatInt(userID, 10)).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(ttl))
	if v.issuer != "" {
		builder = builder.Issuer(v.issuer)
	}
	token, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

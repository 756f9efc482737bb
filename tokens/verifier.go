package tokens

import (
	"context"
	"errors"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken   = errors.New("invalid or unknown token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrTokenNotFound  = errors.New("unknown token")
	ErrWrongTokenType = errors.New("token type does not match the operation")
)

// RevocationChecker answers whether a jti has been blacklisted
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type TokenVerifier struct {
	log         *zap.Logger
	issuer      *TokenIssuer
	revocations RevocationChecker
}

func NewTokenVerifier(log *zap.Logger,
	issuer *TokenIssuer,
	revocations RevocationChecker) *TokenVerifier {
	return &TokenVerifier{
		log:         log,
		issuer:      issuer,
		revocations: revocations,
	}
}

// parse checks signature and registered claims, nothing else
func (t *TokenVerifier) parse(raw string) (*SessionClaims, error) {
	if len(t.issuer.parseOptions) == 0 {
		return nil, errors.New("no valid JWT parsing options")
	}
	token, err := jwt.Parse([]byte(raw), t.issuer.parseOptions...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired()):
			return nil, ErrTokenExpired
		default:
			return nil, ErrInvalidToken
		}
	}
	return sessionClaimsFromJWT(token)
}

// ValidateAccessToken checks signature, expiry, token type and the
// revocation blacklist. Access tokens are stateless, the database is
// only consulted for the blacklist.
func (t *TokenVerifier) ValidateAccessToken(
	ctx context.Context,
	accessToken string,
) (*SessionClaims, error) {
	claims, err := t.parse(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Type() != TypeAccess {
		return nil, ErrWrongTokenType
	}
	revoked, err := t.revocations.IsTokenRevoked(ctx, claims.JTI())
	if err != nil {
		t.log.Error("could not check token revocation", zap.Error(err))
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// ParseRefreshToken checks signature, expiry and token type. The
// rotation state lives in the database and is checked by the rotator.
func (t *TokenVerifier) ParseRefreshToken(refreshToken string) (*SessionClaims, error) {
	claims, err := t.parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type() != TypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

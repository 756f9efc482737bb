package tokens

import (
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	// ClaimEmail is the claim storing the email
	ClaimEmail = "email"
	// ClaimTokenType distinguishes access from refresh tokens
	ClaimTokenType = "typ"

	// TypeAccess marks a short lived access token
	TypeAccess = "access"
	// TypeRefresh marks a rotating refresh token
	TypeRefresh = "refresh"
)

// TokenPair is what a successful login or rotation hands out
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// SessionClaims is the validated claim set of a parsed session token
type SessionClaims struct {
	jti        string
	userID     uuid.UUID
	email      string
	tokenType  string
	issuedAt   time.Time
	expiration time.Time
	issuer     string
	audience   []string
}

func (c *SessionClaims) JTI() string {
	return c.jti
}

func (c *SessionClaims) UserID() uuid.UUID {
	return c.userID
}

func (c *SessionClaims) Email() string {
	return c.email
}

func (c *SessionClaims) Type() string {
	return c.tokenType
}

func (c *SessionClaims) IssuedAt() time.Time {
	return c.issuedAt
}

func (c *SessionClaims) Expiration() time.Time {
	return c.expiration
}

func (c *SessionClaims) Issuer() string {
	return c.issuer
}

func (c *SessionClaims) Audience() []string {
	return c.audience
}

func sessionClaimsFromJWT(token jwt.Token) (*SessionClaims, error) {
	userID, err := uuid.Parse(token.Subject())
	if err != nil {
		return nil, ErrInvalidToken
	}
	c := &SessionClaims{
		jti:        token.JwtID(),
		userID:     userID,
		issuedAt:   token.IssuedAt(),
		expiration: token.Expiration(),
		issuer:     token.Issuer(),
		audience:   token.Audience(),
	}
	if email, ok := token.Get(ClaimEmail); ok {
		c.email, _ = email.(string)
	}
	if typ, ok := token.Get(ClaimTokenType); ok {
		c.tokenType, _ = typ.(string)
	}
	if c.jti == "" || c.tokenType == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}

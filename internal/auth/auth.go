package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsledger/opsledger/internal/core/roles"
)

// Principal is the verified identity an action is performed as. It is
// built from decoded token claims; the rest of the system trusts it
// without re-verifying the credential.
type Principal struct {
	ID       int64     `json:"id"`
	Email    string    `json:"email"`
	Roles    roles.Set `json:"roles"`
	Approved bool      `json:"approved"`
}

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// CredentialStore is what the auth service needs from user storage.
type CredentialStore interface {
	GetCredentials(email string) (*StoredCredentials, error)
}

// StoredCredentials is the minimal slice of a user row needed to log in.
type StoredCredentials struct {
	UserID       int64
	Email        string
	PasswordHash string
	Roles        []string
	Approved     bool
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Claims struct {
	UserID   int64    `json:"user_id"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	Approved bool     `json:"approved"`
	// TokenType distinguishes access from refresh tokens; a token is
	// only valid for the purpose it was minted for.
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Principal converts decoded claims into the identity used downstream.
func (c *Claims) Principal() *Principal {
	set, _ := roles.Parse(c.Roles)
	return &Principal{
		ID:       c.UserID,
		Email:    c.Email,
		Roles:    set,
		Approved: c.Approved,
	}
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(creds *StoredCredentials) (string, error)
	GenerateRefreshToken(creds *StoredCredentials) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

// PrincipalFromContext returns the authenticated principal placed in the
// request context by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ContextPrincipalKey).(*Principal)
	return p, ok
}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opsledger/opsledger/internal"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Service authenticates credentials and issues tokens. Approval gates
// authentication itself: an unapproved account never reaches an
// authenticated state.
type Service struct {
	store          CredentialStore
	tokenGenerator TokenGeneratorAPI
}

func NewService(store CredentialStore, tokenGen TokenGeneratorAPI) *Service {
	return &Service{
		store:          store,
		tokenGenerator: tokenGen,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Authenticate validates credentials and returns tokens.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.store.GetCredentials(dto.Email)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(creds.PasswordHash, dto.Password); err != nil {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	if !creds.Approved {
		return AuthTokens{}, internal.ErrUserNotApproved
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(creds)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(creds)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshTokens validates a refresh token and reissues both tokens from
// the current stored state, so role or approval changes take effect.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	if claims.TokenType != tokenTypeRefresh {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	creds, err := s.store.GetCredentials(claims.Email)
	if err != nil {
		return AuthTokens{}, internal.ErrInvalidToken
	}

	if !creds.Approved {
		return AuthTokens{}, internal.ErrUserNotApproved
	}

	accessToken, err := s.tokenGenerator.GenerateAccessToken(creds)
	if err != nil {
		return AuthTokens{}, err
	}

	newRefreshToken, err := s.tokenGenerator.GenerateRefreshToken(creds)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// ValidateAccessToken validates an access token and returns its claims.
// A refresh token is not an access credential and is rejected here.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != tokenTypeAccess {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

func (j *JWTTokenGenerator) newClaims(creds *StoredCredentials, ttl time.Duration, tokenType string) *Claims {
	now := time.Now()
	return &Claims{
		UserID:    creds.UserID,
		Email:     creds.Email,
		Roles:     creds.Roles,
		Approved:  creds.Approved,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", creds.UserID),
		},
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(creds *StoredCredentials) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, j.newClaims(creds, j.AccessTokenTTL, tokenTypeAccess))
	return token.SignedString(j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(creds *StoredCredentials) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, j.newClaims(creds, j.RefreshTokenTTL, tokenTypeRefresh))
	return token.SignedString(j.RefreshTokenSecret)
}

// ValidateToken verifies a token's signature and returns its claims. The
// secret is chosen by the declared token type; a token lying about its
// type fails signature verification against the other secret.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		if claims, ok := token.Claims.(*Claims); ok && claims.TokenType == tokenTypeRefresh {
			return j.RefreshTokenSecret, nil
		}
		return j.AccessTokenSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}

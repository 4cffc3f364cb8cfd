package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	ClaimUserID = "user_id"
	ClaimType   = "type"

	TokenTypeAccess = "access"
)

var ErrInvalidToken = errors.New("invalid token")

type Service interface {
	GenerateAccessToken(reviewerID string) (token string, expiresAt int64, err error)
	// ReviewerID extracts the reviewer from verified access token claims.
	ReviewerID(claims map[string]interface{}) (string, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) (Service, error) {
	expDuration, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, err
	}
	if expDuration <= 0 {
		return nil, errors.New("access token expiration must be positive")
	}
	return &JWTService{
		accessTokenExpirationTime: expDuration,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}, nil
}

func (j *JWTService) GenerateAccessToken(reviewerID string) (token string, expiresAt int64, err error) {
	if reviewerID == "" {
		return "", 0, errors.New("reviewer id is required")
	}
	expiresAt = j.now().Add(j.accessTokenExpirationTime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		ClaimUserID: reviewerID,
		ClaimType:   TokenTypeAccess,
		"exp":       expiresAt,
	})
	return tokenString, expiresAt, err
}

func (j *JWTService) ReviewerID(claims map[string]interface{}) (string, error) {
	tokenType, ok := claims[ClaimType].(string)
	if !ok || tokenType != TokenTypeAccess {
		return "", ErrInvalidToken
	}
	reviewerID, ok := claims[ClaimUserID].(string)
	if !ok || reviewerID == "" {
		return "", ErrInvalidToken
	}
	return reviewerID, nil
}

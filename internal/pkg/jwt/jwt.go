package jwt

import (
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const sseTokenTTL = 5 * time.Minute

// Service verifies access tokens issued by the HR core and mints the
// short-lived tokens used by the payroll event stream.
type Service interface {
	GenerateAccessToken(principal auth.Principal) (token string, expiresAt int64, err error)
	GenerateSSEToken(channel string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (channel string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
}

func NewJWTService(secretKey string, accessTokenExpiration time.Duration) Service {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateAccessToken issues a token with the same claims the HR core uses.
func (j *JWTService) GenerateAccessToken(principal auth.Principal) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpiration).Unix()

	claims := map[string]interface{}{
		"user_id":     principal.UserID,
		"employee_id": nil,
		"role":        string(principal.Role),
		"is_admin":    principal.IsAdmin,
		"type":        "access",
		"exp":         expiresAt,
	}
	if principal.EmployeeID != nil {
		claims["employee_id"] = *principal.EmployeeID
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(channel string) (token string, expiresIn int, err error) {
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"channel": channel,
		"type":    "sse",
		"exp":     time.Now().Add(sseTokenTTL).Unix(),
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(sseTokenTTL / time.Second), nil
}

// ValidateSSEToken validates an SSE token and returns its channel
func (j *JWTService) ValidateSSEToken(tokenString string) (channel string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return "", jwt.ErrInvalidJWT()
	}

	channelVal, ok := token.Get("channel")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	channel, ok = channelVal.(string)
	if !ok || channel == "" {
		return "", jwt.ErrInvalidJWT()
	}

	return channel, nil
}

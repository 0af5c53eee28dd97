package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_AccessTokenClaims(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	employeeID := "emp-1"

	token, expiresAt, err := svc.GenerateAccessToken(auth.Principal{
		UserID:     "user-1",
		EmployeeID: &employeeID,
		Role:       auth.RoleManager,
	})
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	claims, err := decoded.AsMap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "access", claims["type"])
	assert.Equal(t, "emp-1", claims["employee_id"])
	assert.Equal(t, "manager", claims["role"])
	assert.Equal(t, false, claims["is_admin"])
}

func TestJWTService_SSEToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, expiresIn, err := svc.GenerateSSEToken("emp-1")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	channel, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", channel)

	access, _, err := svc.GenerateAccessToken(auth.Principal{UserID: "user-1"})
	require.NoError(t, err)
	_, err = svc.ValidateSSEToken(access)
	assert.Error(t, err)

	_, err = svc.ValidateSSEToken("not-a-token")
	assert.Error(t, err)
}

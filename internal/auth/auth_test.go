package auth

import (
	"context"
	"testing"
	"time"

	"driver_ledger/internal/db"
	"driver_ledger/internal/domain"
	"driver_ledger/internal/repository"
	"driver_ledger/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testSecret = "test-secret"

type AuthTestSuite struct {
	suite.Suite
	ctx     context.Context
	mr      *miniredis.Miniredis
	service *Service
}

func (suite *AuthTestSuite) SetupTest() {
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), db.Migrate(gdb))
	suite.T().Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	suite.ctx = context.Background()
	suite.mr = miniredis.RunT(suite.T())
	cache := utils.NewRedisCache(redis.NewClient(&redis.Options{Addr: suite.mr.Addr()}))
	suite.service = NewService(repository.NewUserRepository(gdb), cache, Options{
		Secret:            testSecret,
		SessionLifetime:   30 * time.Minute,
		PasswordMinLength: 6,
	})
}

func (suite *AuthTestSuite) TestRegisterValidation() {
	tests := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{"empty username", "", "secret123", "username"},
		{"blank username", "   ", "secret123", "username"},
		{"short password", "maria", "12345", "password"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.Register(suite.ctx, tt.username, tt.password)
			var verr *domain.ValidationError
			require.ErrorAs(suite.T(), err, &verr)
			assert.Equal(suite.T(), tt.field, verr.Field)
		})
	}
}

func (suite *AuthTestSuite) TestRegisterAndAuthenticate() {
	user, err := suite.service.Register(suite.ctx, "  maria ", "secret123")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "maria", user.Username)
	assert.NotEqual(suite.T(), "secret123", user.PasswordHash)

	_, err = suite.service.Register(suite.ctx, "maria", "another1")
	assert.ErrorIs(suite.T(), err, domain.ErrDuplicateUser)

	got, token, err := suite.service.Authenticate(suite.ctx, "maria", "secret123")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, got.ID)

	claims, err := suite.service.Verify(suite.ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, claims.UserID)
	assert.Equal(suite.T(), "maria", claims.Username)
	assert.WithinDuration(suite.T(), time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func (suite *AuthTestSuite) TestInvalidCredentials() {
	_, err := suite.service.Register(suite.ctx, "joao", "secret123")
	require.NoError(suite.T(), err)

	_, _, err = suite.service.Authenticate(suite.ctx, "joao", "wrong-pass")
	assert.ErrorIs(suite.T(), err, domain.ErrInvalidCredentials)

	_, _, err = suite.service.Authenticate(suite.ctx, "nobody", "secret123")
	assert.ErrorIs(suite.T(), err, domain.ErrInvalidCredentials)
}

func (suite *AuthTestSuite) TestLogoutRevokesToken() {
	_, err := suite.service.Register(suite.ctx, "ana", "secret123")
	require.NoError(suite.T(), err)
	_, token, err := suite.service.Authenticate(suite.ctx, "ana", "secret123")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.service.Logout(suite.ctx, token))
	_, err = suite.service.Verify(suite.ctx, token)
	assert.ErrorIs(suite.T(), err, ErrTokenRevoked)

	// The revocation entry disappears once the token would have expired
	claims, err := utils.ParseJWT(token, testSecret)
	require.NoError(suite.T(), err)
	ttl := suite.mr.TTL(revokedKey(claims.ID))
	assert.True(suite.T(), ttl > 29*time.Minute && ttl <= 30*time.Minute, "ttl %s", ttl)

	// A second session of the same user is unaffected
	_, other, err := suite.service.Authenticate(suite.ctx, "ana", "secret123")
	require.NoError(suite.T(), err)
	_, err = suite.service.Verify(suite.ctx, other)
	assert.NoError(suite.T(), err)
}

func (suite *AuthTestSuite) TestVerifyRejectsForeignToken() {
	token, err := utils.GenerateJWT(1, "x", "other-secret", time.Minute)
	require.NoError(suite.T(), err)
	_, err = suite.service.Verify(suite.ctx, token)
	assert.Error(suite.T(), err)

	assert.NoError(suite.T(), suite.service.Logout(suite.ctx, "garbage"))
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}

func TestVerifyFailsOpenWithoutCache(t *testing.T) {
	s := NewService(nil, nil, Options{Secret: testSecret})
	token, err := utils.GenerateJWT(7, "pedro", testSecret, time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background(), token))
	claims, err := s.Verify(context.Background(), token)
	require.NoError(t, err, "no cache means logout only clears the cookie")
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, 30*time.Minute, s.SessionLifetime())
}

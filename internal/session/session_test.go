package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadToken(sessionID, key string) (string, error) {
	args := m.Called(sessionID, key)
	return args.String(0), args.Error(1)
}

func (m *MockStore) SaveToken(sessionID, key, token string) error {
	return m.Called(sessionID, key, token).Error(0)
}

func (m *MockStore) DeleteTokens(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func TestRole_StorageKey(t *testing.T) {
	assert.Equal(t, "adminToken", RoleAdmin.StorageKey())
	assert.Equal(t, "userToken", RoleUser.StorageKey())
}

func TestContext_Token(t *testing.T) {
	store := &MockStore{}
	store.On("LoadToken", "s1", "adminToken").Return("abc", nil).Once()
	store.On("LoadToken", "s2", "adminToken").Return("", ErrNoToken).Once()
	store.On("LoadToken", "s3", "adminToken").Return("", errors.New("disk gone")).Once()

	assert.Equal(t, "abc", New("s1", RoleAdmin, store, nil).Token())
	assert.Equal(t, "", New("s2", RoleAdmin, store, nil).Token())
	assert.Equal(t, "", New("s3", RoleAdmin, store, nil).Token())
	store.AssertExpectations(t)
}

func TestContext_SaveAndClear(t *testing.T) {
	store := &MockStore{}
	store.On("SaveToken", "s1", "adminToken", "tok").Return(nil).Once()
	store.On("DeleteTokens", "s1").Return(nil).Once()

	ctx := New("s1", RoleAdmin, store, nil)
	require.NoError(t, ctx.Save("tok"))
	require.NoError(t, ctx.Clear())
	store.AssertExpectations(t)
}

func signed(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signed(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1", ExpiresAt: jwt.NewNumericDate(exp)},
		AdminID:          "admin-7",
		Email:            "root@example.com",
	})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-7", claims.AccountID())
	assert.Equal(t, "root@example.com", claims.Email)
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Minute)))
}

func TestParseClaims_FallsBackToSubject(t *testing.T) {
	token := signed(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"}})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", claims.AccountID())
	assert.False(t, claims.Expired(time.Now()))
}

func TestParseClaims_Garbage(t *testing.T) {
	_, err := ParseClaims("not-a-token")
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	assert.Equal(t, "fixed", Static("fixed").Token())
}

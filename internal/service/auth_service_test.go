package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SreeragSreekanth/Blogplatform/internal/middleware"
	"github.com/SreeragSreekanth/Blogplatform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Sup3r-Secret-Pass"

func init() {
	bcryptCost = bcrypt.MinCost
}

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (m *memoryRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]time.Duration{}
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

type recordingMailer struct {
	to    []string
	links []string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, _ string, link string) error {
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func newAuthEnv(t *testing.T) (*env, *AuthService, *memoryRevoker, *recordingMailer) {
	t.Helper()
	e := newEnv(t, "")
	revoker := &memoryRevoker{}
	mailer := &recordingMailer{}
	svc := NewAuthService(e.users, revoker, mailer, AuthConfig{
		Secret:      "test-secret",
		AccessTTL:   time.Hour,
		RefreshTTL:  24 * time.Hour,
		ResetTTL:    30 * time.Minute,
		FrontendURL: "http://frontend.test",
	})
	return e, svc, revoker, mailer
}

func register(t *testing.T, svc *AuthService, username string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Username:  username,
		Email:     username + "@example.com",
		Password:  strongPassword,
		Password2: strongPassword,
	})
	require.NoError(t, err)
	return u
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()
	_, svc, _, _ := newAuthEnv(t)
	ctx := context.Background()
	register(t, svc, "alice")

	tests := []struct {
		name  string
		input RegisterInput
		field string
		msg   string
	}{
		{"mismatch", RegisterInput{Username: "bob", Email: "bob@example.com", Password: strongPassword, Password2: strongPassword + "x"}, "password", "Password fields didn't match."},
		{"weak password", RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short", Password2: "short"}, "password", ""},
		{"bad username", RegisterInput{Username: "b", Email: "bob@example.com", Password: strongPassword, Password2: strongPassword}, "username", ""},
		{"bad email", RegisterInput{Username: "bob", Email: "not-an-email", Password: strongPassword, Password2: strongPassword}, "email", ""},
		{"duplicate username", RegisterInput{Username: "alice", Email: "other@example.com", Password: strongPassword, Password2: strongPassword}, "username", ""},
		{"duplicate email", RegisterInput{Username: "bob", Email: "ALICE@example.com", Password: strongPassword, Password2: strongPassword}, "email", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.input)
			assertValidationError(t, err)
			got := fieldError(t, err, tt.field)
			assert.NotEmpty(t, got)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, got)
			}
		})
	}
}

func TestAuthService_RegisterHashesPassword(t *testing.T) {
	t.Parallel()
	e, svc, _, _ := newAuthEnv(t)
	u := register(t, svc, "alice")

	stored, err := e.users.GetForAuth(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, strongPassword, stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(strongPassword)))
	assert.False(t, stored.IsAdmin)
}

func TestAuthService_LoginAndAuthenticate(t *testing.T) {
	t.Parallel()
	_, svc, _, _ := newAuthEnv(t)
	ctx := context.Background()
	u := register(t, svc, "alice")

	_, err := svc.Login(ctx, "alice", "wrong-password")
	assertUnauthorizedError(t, err)
	_, err = svc.Login(ctx, "nobody", strongPassword)
	assertUnauthorizedError(t, err)

	pair, err := svc.Login(ctx, "alice", strongPassword)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	userID, claims, err := svc.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)
	assert.Equal(t, middleware.TokenTypeAccess, claims.Type)

	_, _, err = svc.Authenticate(ctx, pair.Refresh)
	assertUnauthorizedError(t, err)
	_, _, err = svc.Authenticate(ctx, "garbage")
	assertUnauthorizedError(t, err)
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	t.Parallel()
	_, svc, revoker, _ := newAuthEnv(t)
	ctx := context.Background()
	register(t, svc, "alice")

	pair, err := svc.Login(ctx, "alice", strongPassword)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Access)
	assert.Empty(t, refreshed.Refresh)

	_, err = svc.Refresh(ctx, pair.Access)
	assertUnauthorizedError(t, err)

	_, accessClaims, err := svc.Authenticate(ctx, pair.Access)
	require.NoError(t, err)

	assertValidationError(t, svc.Logout(ctx, "", accessClaims))
	assertValidationError(t, svc.Logout(ctx, "garbage", accessClaims))
	require.NoError(t, svc.Logout(ctx, pair.Refresh, accessClaims))
	assert.Len(t, revoker.revoked, 2)
	for _, ttl := range revoker.revoked {
		assert.Greater(t, ttl, time.Duration(0))
	}

	_, err = svc.Refresh(ctx, pair.Refresh)
	assertUnauthorizedError(t, err)
	_, _, err = svc.Authenticate(ctx, pair.Access)
	assertUnauthorizedError(t, err)
}

func TestAuthService_PasswordReset(t *testing.T) {
	t.Parallel()
	e, svc, _, mailer := newAuthEnv(t)
	ctx := context.Background()
	u := register(t, svc, "alice")

	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.links, "unknown addresses are answered silently")
	assertValidationError(t, svc.RequestPasswordReset(ctx, " "))

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	require.Len(t, mailer.links, 1)
	assert.Equal(t, []string{"alice@example.com"}, mailer.to)

	rest, ok := strings.CutPrefix(mailer.links[0], "http://frontend.test/reset-password/")
	require.True(t, ok, mailer.links[0])
	uid, token, ok := strings.Cut(rest, "/")
	require.True(t, ok)
	decoded, err := DecodeUID(uid)
	require.NoError(t, err)
	assert.Equal(t, u.ID, decoded)

	const newPassword = "An0ther-Strong-One"
	err = svc.ConfirmPasswordReset(ctx, ResetConfirmInput{UID: uid, Token: token, NewPassword: newPassword, ReNewPassword: "different"})
	assertValidationError(t, err)
	err = svc.ConfirmPasswordReset(ctx, ResetConfirmInput{UID: "!!", Token: token, NewPassword: newPassword, ReNewPassword: newPassword})
	assertValidationError(t, err)
	err = svc.ConfirmPasswordReset(ctx, ResetConfirmInput{UID: uid, Token: "bad", NewPassword: newPassword, ReNewPassword: newPassword})
	assertValidationError(t, err)
	assert.NotEmpty(t, fieldError(t, err, "token"))

	require.NoError(t, svc.ConfirmPasswordReset(ctx, ResetConfirmInput{UID: uid, Token: token, NewPassword: newPassword, ReNewPassword: newPassword}))

	err = svc.ConfirmPasswordReset(ctx, ResetConfirmInput{UID: uid, Token: token, NewPassword: strongPassword, ReNewPassword: strongPassword})
	assertValidationError(t, err)

	_, err = svc.Login(ctx, "alice", strongPassword)
	assertUnauthorizedError(t, err)
	_, err = svc.Login(ctx, "alice", newPassword)
	require.NoError(t, err)

	stored, err := e.users.GetForAuth(ctx, u.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(newPassword)))
}

func TestEncodeUIDRoundTrip(t *testing.T) {
	for _, id := range []uint{1, 42, 123456} {
		got, err := DecodeUID(EncodeUID(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
	_, err := DecodeUID(EncodeUID(0))
	assert.Error(t, err)
}

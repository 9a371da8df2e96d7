package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users    map[string]AuthUser
	roles    map[string]string
	sessions map[string]bool
	resets   map[string]string
	mfa      map[string][]byte
	enabled  map[string]bool
	revoked  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]AuthUser{},
		roles:    map[string]string{RoleHR: "role-hr", RoleEmployee: "role-emp"},
		sessions: map[string]bool{},
		resets:   map[string]string{},
		mfa:      map[string][]byte{},
		enabled:  map[string]bool{},
	}
}

func (f *fakeStore) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	u, ok := f.users[email]
	if !ok {
		return AuthUser{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) RoleIDByName(ctx context.Context, name string) (string, error) {
	id, ok := f.roles[name]
	if !ok {
		return "", ErrRoleNotFound
	}
	return id, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, email, hash, roleID string) (string, error) {
	if _, ok := f.users[email]; ok {
		return "", ErrEmailTaken
	}
	id := "user-" + email
	role := RoleEmployee
	if roleID == "role-hr" {
		role = RoleHR
	}
	f.users[email] = AuthUser{ID: id, Email: email, RoleName: role, Password: hash}
	return id, nil
}

func (f *fakeStore) CreateSession(ctx context.Context, sessionID, userID, hash string, expires time.Time) error {
	f.sessions[userID+"|"+hash] = true
	return nil
}

func (f *fakeStore) SessionValid(ctx context.Context, userID, hash string) (bool, error) {
	return f.sessions[userID+"|"+hash], nil
}

func (f *fakeStore) RevokeSession(ctx context.Context, userID, hash string) error {
	delete(f.sessions, userID+"|"+hash)
	return nil
}

func (f *fakeStore) RevokeUserSessions(ctx context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

func (f *fakeStore) UpdateLastLogin(ctx context.Context, userID string) error { return nil }

func (f *fakeStore) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	f.mfa[userID] = secretEnc
	return nil
}

func (f *fakeStore) GetMFASecret(ctx context.Context, userID string) ([]byte, error) {
	return f.mfa[userID], nil
}

func (f *fakeStore) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	f.enabled[userID] = enabled
	return nil
}

func (f *fakeStore) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	f.resets[tokenHash] = userID
	return nil
}

func (f *fakeStore) ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error) {
	userID, ok := f.resets[tokenHash]
	if !ok {
		return "", ErrInvalidResetToken
	}
	delete(f.resets, tokenHash)
	return userID, nil
}

func (f *fakeStore) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	for email, u := range f.users {
		if u.ID == userID {
			u.Password = hash
			f.users[email] = u
			return nil
		}
	}
	return ErrUserNotFound
}

type plainBox struct{}

func (plainBox) Configured() bool { return true }

func (plainBox) EncryptString(v string) ([]byte, error) { return []byte("enc:" + v), nil }

func (plainBox) DecryptString(v []byte) (string, error) {
	return strings.TrimPrefix(string(v), "enc:"), nil
}

type captureMailer struct {
	email, token string
}

func (c *captureMailer) SendPasswordReset(ctx context.Context, email, token string) {
	c.email, c.token = email, token
}

func newTestService(store *fakeStore, mailer ResetMailer) *Service {
	return NewService(store, plainBox{}, "test-secret", 8*time.Hour, 2*time.Hour, mailer)
}

func TestLoginIssuesSessionToken(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.CreateIdentity(ctx, "Jane@Example.com", "Secret1", RoleEmployee)
	require.NoError(t, err)

	res, err := svc.Login(ctx, "jane@example.com", "Secret1", "")
	require.NoError(t, err)
	assert.Equal(t, RoleEmployee, res.User.Role)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), res.ExpiresAt, time.Minute)

	claims, err := ParseToken("test-secret", res.Token)
	require.NoError(t, err)
	active, err := svc.SessionActive(ctx, claims.UserID, claims.SessionID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, svc.Logout(ctx, Actor{UserID: claims.UserID, SessionID: claims.SessionID}))
	active, err = svc.SessionActive(ctx, claims.UserID, claims.SessionID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	_, err := svc.CreateIdentity(ctx, "jane@example.com", "Secret1", RoleEmployee)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "jane@example.com", "Wrong1", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "Secret1", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateIdentityCollectsReasons(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.CreateIdentity(context.Background(), "not-an-email", "short", "Janitor")
	var idErr *IdentityError
	require.True(t, errors.As(err, &idErr))
	assert.GreaterOrEqual(t, len(idErr.Reasons), 3)
}

func TestCreateIdentityDuplicateEmail(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)
	ctx := context.Background()

	_, err := svc.CreateIdentity(ctx, "jane@example.com", "Secret1", RoleEmployee)
	require.NoError(t, err)
	_, err = svc.CreateIdentity(ctx, "JANE@example.com", "Secret1", RoleEmployee)

	var idErr *IdentityError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, []string{ErrEmailTaken.Error()}, idErr.Reasons)
}

func TestPasswordResetIsSingleUse(t *testing.T) {
	store := newFakeStore()
	mailer := &captureMailer{}
	svc := newTestService(store, mailer)
	ctx := context.Background()

	_, err := svc.CreateIdentity(ctx, "jane@example.com", "Secret1", RoleEmployee)
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com"))
	require.NotEmpty(t, mailer.token)
	assert.Equal(t, "jane@example.com", mailer.email)

	require.NoError(t, svc.ResetPassword(ctx, mailer.token, "Newpass2"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, mailer.token, "Newpass3"), ErrInvalidResetToken)
	assert.Len(t, store.revoked, 1)

	_, err = svc.Login(ctx, "jane@example.com", "Newpass2", "")
	assert.NoError(t, err)
}

func TestRequestResetUnknownEmailIsSilent(t *testing.T) {
	mailer := &captureMailer{}
	svc := newTestService(newFakeStore(), mailer)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.token)
}

func TestMFAEnrollmentAndLogin(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	userID, err := svc.CreateIdentity(ctx, "hr@example.com", "Secret1", RoleHR)
	require.NoError(t, err)
	actor := Actor{UserID: userID, Email: "hr@example.com", Role: RoleHR}

	setup, err := svc.SetupMFA(ctx, actor)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.EnableMFA(ctx, actor, "000000"), ErrMFAInvalid)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableMFA(ctx, actor, code))
	assert.True(t, store.enabled[userID])

	u := store.users["hr@example.com"]
	u.MFAEnabled = true
	u.MFASecretEnc = store.mfa[userID]
	store.users["hr@example.com"] = u

	_, err = svc.Login(ctx, "hr@example.com", "Secret1", "")
	assert.ErrorIs(t, err, ErrMFARequired)
	_, err = svc.Login(ctx, "hr@example.com", "Secret1", code)
	assert.NoError(t, err)
}

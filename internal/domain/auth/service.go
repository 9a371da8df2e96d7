package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const mfaIssuer = "EMS"

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error)
	RoleIDByName(ctx context.Context, name string) (string, error)
	CreateUser(ctx context.Context, email, passwordHash, roleID string) (string, error)
	CreateSession(ctx context.Context, sessionID, userID, refreshTokenHash string, expires time.Time) error
	SessionValid(ctx context.Context, userID, refreshTokenHash string) (bool, error)
	RevokeSession(ctx context.Context, userID, refreshTokenHash string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	GetMFASecret(ctx context.Context, userID string) ([]byte, error)
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (string, error)
	UpdateUserPassword(ctx context.Context, userID, hash string) error
}

// SecretBox encrypts MFA secrets at rest.
type SecretBox interface {
	Configured() bool
	EncryptString(value string) ([]byte, error)
	DecryptString(value []byte) (string, error)
}

type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string)
}

type Service struct {
	Store      StoreAPI
	Crypto     SecretBox
	Secret     string
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Mailer     ResetMailer
}

func NewService(store StoreAPI, crypto SecretBox, secret string, sessionTTL, resetTTL time.Duration, mailer ResetMailer) *Service {
	return &Service{
		Store:      store,
		Crypto:     crypto,
		Secret:     secret,
		SessionTTL: sessionTTL,
		ResetTTL:   resetTTL,
		Mailer:     mailer,
	}
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (LoginResult, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if mfaCode == "" {
			return LoginResult{}, ErrMFARequired
		}
		secret, err := s.openSecret(user.MFASecretEnc)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return LoginResult{}, ErrMFAInvalid
		}
	}

	sessionID := uuid.NewString()
	expires := time.Now().Add(s.SessionTTL)
	if err := s.Store.CreateSession(ctx, sessionID, user.ID, HashToken(sessionID), expires); err != nil {
		return LoginResult{}, fmt.Errorf("start session: %w", err)
	}

	token, err := GenerateToken(s.Secret, Claims{
		UserID:     user.ID,
		RoleName:   user.RoleName,
		EmployeeID: user.EmployeeID,
		Email:      user.Email,
		SessionID:  sessionID,
	}, s.SessionTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}

	return LoginResult{
		Token:     token,
		ExpiresAt: expires,
		User: SessionUser{
			ID:         user.ID,
			Email:      user.Email,
			Role:       user.RoleName,
			EmployeeID: user.EmployeeID,
		},
	}, nil
}

func (s *Service) Logout(ctx context.Context, actor Actor) error {
	if actor.SessionID == "" {
		return nil
	}
	return s.Store.RevokeSession(ctx, actor.UserID, HashToken(actor.SessionID))
}

// SessionActive reports whether the server-side session behind a token is still usable.
func (s *Service) SessionActive(ctx context.Context, userID, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	return s.Store.SessionValid(ctx, userID, HashToken(sessionID))
}

// CreateIdentity registers a login for a new employee. Failures come back as *IdentityError.
func (s *Service) CreateIdentity(ctx context.Context, email, password, role string) (string, error) {
	email = NormalizeEmail(email)
	var reasons []string
	if !ValidEmail(email) {
		reasons = append(reasons, "email is not a valid address")
	}
	reasons = append(reasons, PasswordIssues(password)...)
	if !KnownRole(role) {
		reasons = append(reasons, fmt.Sprintf("role %q does not exist", role))
	}
	if len(reasons) > 0 {
		return "", identityFailure(reasons...)
	}

	roleID, err := s.Store.RoleIDByName(ctx, role)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return "", identityFailure(fmt.Sprintf("role %q does not exist", role))
		}
		return "", err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	userID, err := s.Store.CreateUser(ctx, email, hash, roleID)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return "", identityFailure(ErrEmailTaken.Error())
		}
		return "", err
	}
	return userID, nil
}

// RequestPasswordReset never reveals whether the email exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.Store.FindActiveUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	token, err := NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	if err := s.Store.CreatePasswordReset(ctx, user.ID, HashToken(token), time.Now().Add(s.ResetTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if s.Mailer != nil {
		s.Mailer.SendPasswordReset(ctx, user.Email, token)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if issues := PasswordIssues(newPassword); len(issues) > 0 {
		return identityFailure(issues...)
	}
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}
	userID, err := s.Store.ConsumePasswordReset(ctx, HashToken(token))
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.Store.RevokeUserSessions(ctx, userID); err != nil {
		slog.Warn("revoke sessions after reset failed", "userId", userID, "err", err)
	}
	return nil
}

func (s *Service) SetupMFA(ctx context.Context, actor Actor) (MFASetup, error) {
	if !s.cryptoReady() {
		return MFASetup{}, ErrMFAUnavailable
	}
	account := actor.Email
	if account == "" {
		account = actor.UserID
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, fmt.Errorf("generate mfa secret: %w", err)
	}
	encrypted, err := s.Crypto.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, fmt.Errorf("encrypt mfa secret: %w", err)
	}
	if err := s.Store.UpdateMFASecret(ctx, actor.UserID, encrypted); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, actor Actor, code string) error {
	if err := s.verifyCode(ctx, actor.UserID, code); err != nil {
		return err
	}
	return s.Store.SetMFAEnabled(ctx, actor.UserID, true)
}

func (s *Service) DisableMFA(ctx context.Context, actor Actor, code string) error {
	if err := s.verifyCode(ctx, actor.UserID, code); err != nil {
		return err
	}
	return s.Store.SetMFAEnabled(ctx, actor.UserID, false)
}

func (s *Service) verifyCode(ctx context.Context, userID, code string) error {
	if !s.cryptoReady() {
		return ErrMFAUnavailable
	}
	secretEnc, err := s.Store.GetMFASecret(ctx, userID)
	if err != nil {
		return err
	}
	if len(secretEnc) == 0 {
		return ErrMFANotSetUp
	}
	secret, err := s.Crypto.DecryptString(secretEnc)
	if err != nil || !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return nil
}

func (s *Service) openSecret(enc []byte) (string, error) {
	if s.cryptoReady() {
		return s.Crypto.DecryptString(enc)
	}
	return string(enc), nil
}

func (s *Service) cryptoReady() bool {
	return s.Crypto != nil && s.Crypto.Configured()
}

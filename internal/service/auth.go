package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskerhq/tasker/internal/auth"
	"github.com/taskerhq/tasker/internal/model"
	"github.com/taskerhq/tasker/internal/store"
)

// Credential resolution failures. Like the token errors, these all collapse
// to one 401 at the HTTP boundary; the split is for internal logging.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingPrincipal   = errors.New("token carries no principal claim")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrInactiveUser       = errors.New("inactive user")
)

// AuthService is the application core for authentication: it issues and
// resolves bearer tokens, manages user credentials, and owns the API key
// lifecycle. HTTP handlers and middleware call into it; it never touches
// the request/response types itself.
type AuthService struct {
	store  *store.Store
	tokens *auth.TokenService
}

// NewAuthService creates an AuthService over the given store and token
// service.
func NewAuthService(st *store.Store, tokens *auth.TokenService) *AuthService {
	return &AuthService{
		store:  st,
		tokens: tokens,
	}
}

// TokenTTL returns the lifetime applied to issued tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.DefaultTTL()
}

// ---------------------------------------------------------------------------
// Token issuance and resolution
// ---------------------------------------------------------------------------

// IssueUserToken returns a signed access token bound to a user id.
func (s *AuthService) IssueUserToken(userID int64) (string, error) {
	return s.tokens.Issue(map[string]interface{}{
		auth.ClaimUserID:   userID,
		auth.ClaimAuthType: auth.AuthTypeUser,
	}, 0)
}

// IssueSessionToken creates a fresh anonymous session id and returns it with
// a signed access token bound to it. Legacy flow: the token is the only
// record of the session.
func (s *AuthService) IssueSessionToken() (string, string, error) {
	sessionID, err := auth.NewSessionID()
	if err != nil {
		return "", "", err
	}
	token, err := s.tokens.Issue(map[string]interface{}{
		auth.ClaimSessionID: sessionID,
		auth.ClaimAuthType:  auth.AuthTypeSimple,
	}, 0)
	if err != nil {
		return "", "", err
	}
	return sessionID, token, nil
}

// ResolveUser verifies a user-bound token and loads the user it names.
// Fails if the token is invalid, carries no user_id claim, names an unknown
// user, or names a deactivated one.
func (s *AuthService) ResolveUser(ctx context.Context, tokenStr string) (*model.User, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	// Claims decode as JSON numbers.
	rawID, ok := claims[auth.ClaimUserID].(float64)
	if !ok {
		return nil, ErrMissingPrincipal
	}

	user, err := s.store.GetUserByID(ctx, int64(rawID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// ResolveSession verifies a session-bound token and reconstructs the session
// descriptor from its claims. No store lookup happens; the token is
// self-contained.
func (s *AuthService) ResolveSession(tokenStr string) (*model.Session, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}

	sessionID, ok := claims[auth.ClaimSessionID].(string)
	if !ok || sessionID == "" {
		return nil, ErrMissingPrincipal
	}

	session := &model.Session{SessionID: sessionID}
	if iat, ok := claims["iat"].(float64); ok {
		session.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if exp, ok := claims["exp"].(float64); ok {
		session.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return session, nil
}

// ---------------------------------------------------------------------------
// Registration and login
// ---------------------------------------------------------------------------

// RegisterParams are the inputs for Register. Validation of lengths and
// formats happens at the handler boundary; the service assumes well-formed
// input.
type RegisterParams struct {
	Email    string
	Username string
	FullName string
	Password string
}

// Register creates a user account and returns it with a fresh user-bound
// token. Duplicate email/username is checked up front as a fast path, but
// the storage uniqueness constraint is the real guarantee: a racing
// registration loses at insert time and surfaces the same domain error.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (*model.User, string, error) {
	if _, err := s.store.GetUserByEmail(ctx, p.Email); err == nil {
		return nil, "", store.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if _, err := s.store.GetUserByUsername(ctx, p.Username); err == nil {
		return nil, "", store.ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("check username: %w", err)
	}

	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        p.Email,
		Username:     p.Username,
		FullName:     p.FullName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.IssueUserToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	_ = s.store.TouchLastLogin(ctx, user.ID)
	return user, token, nil
}

// Login authenticates an email/password pair and returns the user with a
// fresh token. Unknown email and wrong password are indistinguishable to
// the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", ErrInactiveUser
	}

	token, err := s.IssueUserToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	_ = s.store.TouchLastLogin(ctx, user.ID)
	return user, token, nil
}

// ---------------------------------------------------------------------------
// API keys
// ---------------------------------------------------------------------------

// CreateAPIKey generates a new key, stores only its fingerprint and
// metadata, and returns the record with the plaintext key. This is the only
// time the plaintext is available.
func (s *AuthService) CreateAPIKey(ctx context.Context, name string) (*model.APIKey, string, error) {
	plaintext, err := auth.GenerateKey()
	if err != nil {
		return nil, "", err
	}

	key := &model.APIKey{
		KeyHash:   auth.FingerprintKey(plaintext),
		KeyPrefix: auth.KeyDisplayPrefix(plaintext),
		Name:      name,
		IsActive:  true,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, plaintext, nil
}

// VerifyAPIKey fingerprints the presented key and looks up an active record.
// Revoked and unknown keys both fail the same way, so a caller cannot probe
// which keys ever existed.
func (s *AuthService) VerifyAPIKey(ctx context.Context, rawKey string) (*model.APIKey, error) {
	key, err := s.store.GetActiveAPIKeyByHash(ctx, auth.FingerprintKey(rawKey))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify api key: %w", err)
	}
	return key, nil
}

// ToggleAPIKey flips a key's active flag and returns the updated record.
func (s *AuthService) ToggleAPIKey(ctx context.Context, id int64) (*model.APIKey, error) {
	return s.store.ToggleAPIKey(ctx, id)
}

// DeleteAPIKey hard-removes a key.
func (s *AuthService) DeleteAPIKey(ctx context.Context, id int64) error {
	return s.store.DeleteAPIKey(ctx, id)
}

// ListAPIKeys returns all keys, newest first. Only hashes and prefixes are
// stored, so nothing sensitive can leak from this listing.
func (s *AuthService) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	return s.store.ListAPIKeys(ctx)
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spendsync/internal/apiclient"
	"spendsync/internal/core"
	"spendsync/internal/log"
	"spendsync/internal/storage"
)

// offlineUserID is the id given to users logged in without a server.
const offlineUserID = "1"

// AuthAPI is the remote side of login and registration.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (core.User, string, error)
	Register(ctx context.Context, email, password, name string) (core.User, string, error)
}

// AuthResult is the outcome of a login or registration.
type AuthResult struct {
	User    core.User
	Token   string
	Offline bool
}

// Session caches the logged-in user and token on the device. When the
// server cannot be reached it fabricates a local session instead.
type Session struct {
	api    AuthAPI
	store  storage.BlobStore
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func NewSession(api AuthAPI, store storage.BlobStore, logger *log.Logger) *Session {
	return &Session{
		api:    api,
		store:  store,
		logger: logger.WithComponent(log.ComponentSession),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Login authenticates against the server. Server rejections are returned;
// transport failures fall back to an offline session.
func (s *Session) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AuthResult{}, core.ErrMissingCredentials
	}

	user, token, err := s.api.Login(ctx, email, password)
	res := AuthResult{User: user, Token: token}
	if err != nil {
		if !errors.Is(err, apiclient.ErrUnavailable) {
			return AuthResult{}, fmt.Errorf("login: %w", err)
		}
		s.logger.WarnContext(ctx, "Server unreachable, using offline login",
			log.FieldEmail, email, log.FieldError, err.Error())
		res = AuthResult{
			User:    core.User{ID: offlineUserID, Email: email, Name: core.NameFromEmail(email)},
			Token:   s.offlineToken(),
			Offline: true,
		}
	}

	if err := s.persist(ctx, res); err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

// Register creates an account. Like Login, transport failures fall back
// to an offline session.
func (s *Session) Register(ctx context.Context, email, password, name string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return AuthResult{}, core.ErrMissingFields
	}

	user, token, err := s.api.Register(ctx, email, password, name)
	res := AuthResult{User: user, Token: token}
	if err != nil {
		if !errors.Is(err, apiclient.ErrUnavailable) {
			return AuthResult{}, fmt.Errorf("register: %w", err)
		}
		s.logger.WarnContext(ctx, "Server unreachable, using offline registration",
			log.FieldEmail, email, log.FieldError, err.Error())
		res = AuthResult{
			User:    core.User{ID: s.newID(), Email: email, Name: name},
			Token:   s.offlineToken(),
			Offline: true,
		}
	}

	if err := s.persist(ctx, res); err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

// Logout forgets the cached token and user.
func (s *Session) Logout(ctx context.Context) error {
	return errors.Join(
		s.store.Delete(ctx, storage.KeyAuthToken),
		s.store.Delete(ctx, storage.KeyUserInfo),
	)
}

// CurrentUser returns the cached user, if any.
func (s *Session) CurrentUser(ctx context.Context) (core.User, bool) {
	raw, err := s.store.Get(ctx, storage.KeyUserInfo)
	if err != nil {
		if !errors.Is(err, storage.ErrBlobNotFound) {
			s.logger.WarnContext(ctx, "Failed to read cached user", log.FieldError, err.Error())
		}
		return core.User{}, false
	}
	var u core.User
	if err := json.Unmarshal(raw, &u); err != nil {
		s.logger.WarnContext(ctx, "Failed to decode cached user", log.FieldError, err.Error())
		return core.User{}, false
	}
	return u, true
}

// Token returns the cached token or "".
func (s *Session) Token(ctx context.Context) string {
	raw, err := s.store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return ""
	}
	var tok string
	if err := json.Unmarshal(raw, &tok); err != nil {
		// Older clients stored the bare token.
		return string(raw)
	}
	return tok
}

func (s *Session) IsAuthenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

func (s *Session) persist(ctx context.Context, res AuthResult) error {
	tok, err := json.Marshal(res.Token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	user, err := json.Marshal(res.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyAuthToken, tok); err != nil {
		return fmt.Errorf("cache token: %w", err)
	}
	if err := s.store.Set(ctx, storage.KeyUserInfo, user); err != nil {
		return fmt.Errorf("cache user: %w", err)
	}
	s.logger.InfoContext(ctx, "Session stored", "user_id", res.User.ID, "offline", res.Offline)
	return nil
}

func (s *Session) offlineToken() string {
	return fmt.Sprintf("offline_%d", s.now().UnixMilli())
}

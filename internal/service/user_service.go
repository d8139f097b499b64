package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luizchaves/host-monitor/internal/auth"
	"github.com/luizchaves/host-monitor/internal/domain"
	"github.com/luizchaves/host-monitor/internal/storage"
	"github.com/luizchaves/host-monitor/internal/validation"
)

const invalidCredentials = "invalid email or password"

// UserService manages accounts and issues bearer tokens.
type UserService struct {
	store  storage.Storage
	tokens *auth.TokenIssuer
	now    func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(store storage.Storage, tokens *auth.TokenIssuer) *UserService {
	return &UserService{store: store, tokens: tokens, now: time.Now}
}

// Create registers a user with a bcrypt-hashed password.
func (s *UserService) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)

	if name == "" {
		return nil, domain.NewValidationError("name", "name must not be empty")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, domain.NewValidationError("email", err.Error())
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return nil, domain.NewValidationError("password", err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewConflictError("email already registered")
		}
		return nil, storeError(err, "user", "create")
	}
	return user, nil
}

// SignIn checks email and password and returns a bearer token. Unknown
// emails and wrong passwords fail the same way.
func (s *UserService) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.SignInResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, domain.NewAuthError(invalidCredentials, nil)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewAuthError(invalidCredentials, nil)
		}
		return nil, storeError(err, "user", "get")
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, domain.NewAuthError(invalidCredentials, nil)
	}
	return s.issue(user)
}

// CurrentUser resolves the subject of a verified token to its user.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.NewAuthError("missing token", nil)
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewAuthError("user no longer exists", nil)
		}
		return nil, storeError(err, "user", "get")
	}
	return user, nil
}

// SignInWithOIDC finds or creates the user owning the verified email in
// claims and returns a bearer token for it. Users created here have no
// password and cannot use SignIn.
func (s *UserService) SignInWithOIDC(ctx context.Context, claims *auth.OIDCClaims) (*domain.SignInResponse, error) {
	if claims == nil || !claims.EmailVerified {
		return nil, domain.NewAuthError("unverified identity", nil)
	}
	email := normalizeEmail(claims.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, domain.NewAuthError("identity has no usable email", err)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, storeError(err, "user", "get")
	}

	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = email[:strings.LastIndex(email, "@")]
	}
	user = &domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, storeError(err, "user", "create")
		}
		// Lost a race with a concurrent first sign-in.
		if user, err = s.store.GetUserByEmail(ctx, email); err != nil {
			return nil, storeError(err, "user", "get")
		}
	}
	return s.issue(user)
}

func (s *UserService) issue(user *domain.User) (*domain.SignInResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.SignInResponse{Auth: true, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

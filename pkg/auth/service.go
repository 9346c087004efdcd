package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"fleetworks/depot/pkg/apperr"
	"fleetworks/depot/pkg/audit"
	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Service handles login, user management and request authentication.
type Service struct {
	users      *UserStore
	tokens     *TokenIssuer
	keys       *APIKeyValidator
	auditor    audit.Auditor
	bcryptCost int
	logger     *slog.Logger

	// dummyHash is compared against when the email is unknown so that both
	// failure paths take the same time.
	dummyHash []byte
}

// NewService creates an auth service.
func NewService(users *UserStore, tokens *TokenIssuer, keys *APIKeyValidator, auditor audit.Auditor, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("depot-unknown-user"), bcryptCost)
	return &Service{
		users:      users,
		tokens:     tokens,
		keys:       keys,
		auditor:    auditor,
		bcryptCost: bcryptCost,
		logger:     slog.Default().With("component", "auth"),
		dummyHash:  dummy,
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Login checks the credentials and returns a signed session token. Unknown
// emails, inactive users and wrong passwords all yield ErrUnauthorized.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil || !u.Active {
		s.logger.WarnContext(ctx, "login rejected", "user_id", u.ID, "active", u.Active)
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}

	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	_ = s.auditor.Record(identity.WithActor(ctx, u.Actor()), audit.New(audit.ActionLogin, "user", u.ID, nil))

	return &LoginResult{Token: token, ExpiresAt: expires, User: u}, nil
}

// CreateUserInput holds the fields of a new user.
type CreateUserInput struct {
	Email    string        `json:"email" validate:"required,email,max=254"`
	Name     string        `json:"name" validate:"required,max=200"`
	Password string        `json:"password" validate:"required,min=8,max=72"`
	Role     identity.Role `json:"role" validate:"required,oneof=admin manager technician viewer"`
}

// CreateUser hashes the password and stores a new active user.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	verr := apperr.NewValidationError()
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		verr.Add("email", "must be a valid email address")
	}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if len(in.Password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if !in.Role.Valid() {
		verr.Add("role", "must be one of admin, manager, technician, viewer")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := storage.Now()
	u := &User{
		ID:           storage.NewID(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("email %q is already registered", email)
		}
		return nil, err
	}

	_ = s.auditor.Record(ctx, audit.New(audit.ActionCreate, "user", u.ID, map[string]any{
		"email": u.Email,
		"role":  u.Role,
	}))
	s.logger.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// UpdateUserInput holds optional user changes.
type UpdateUserInput struct {
	Name     *string        `json:"name" validate:"omitempty,max=200"`
	Password *string        `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *identity.Role `json:"role" validate:"omitempty,oneof=admin manager technician viewer"`
	Active   *bool          `json:"active"`
}

// UpdateUser applies the non-nil fields of in.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
		changes["name"] = u.Name
	}
	if in.Password != nil {
		if len(*in.Password) < MinPasswordLength {
			verr := apperr.NewValidationError()
			verr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
			return nil, verr
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = string(hash)
		changes["password"] = "changed"
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Invalid("unknown role %q", *in.Role)
		}
		u.Role = *in.Role
		changes["role"] = u.Role
	}
	if in.Active != nil {
		u.Active = *in.Active
		changes["active"] = u.Active
	}
	u.UpdatedAt = storage.Now()

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	_ = s.auditor.Record(ctx, audit.New(audit.ActionUpdate, "user", u.ID, changes))
	return u, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.users.Get(ctx, id)
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, page storage.Page) ([]User, error) {
	return s.users.List(ctx, page)
}

// Authenticate resolves the actor of a request from an
// "Authorization: Bearer <token>" header or an X-API-Key header. Session
// tokens of users deactivated after login are rejected.
func (s *Service) Authenticate(r *http.Request) (identity.Actor, error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		info, err := s.keys.Validate(key)
		if err != nil {
			return identity.Actor{}, fmt.Errorf("invalid API key: %w", apperr.ErrUnauthorized)
		}
		return info.Actor(), nil
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return identity.Actor{}, fmt.Errorf("missing credentials: %w", apperr.ErrUnauthorized)
	}

	claims, err := s.tokens.Parse(strings.TrimSpace(token))
	if err != nil {
		return identity.Actor{}, err
	}

	u, err := s.users.Get(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return identity.Actor{}, fmt.Errorf("unknown user: %w", apperr.ErrUnauthorized)
		}
		return identity.Actor{}, err
	}
	if !u.Active {
		return identity.Actor{}, fmt.Errorf("user disabled: %w", apperr.ErrUnauthorized)
	}
	return u.Actor(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

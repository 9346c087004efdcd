package auth

import (
	"context"
	"time"

	"fleetworks/depot/pkg/identity"
	"fleetworks/depot/pkg/storage"

	"github.com/jmoiron/sqlx"
)

// User is a person who logs in to depot.
type User struct {
	ID           string        `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	Name         string        `db:"name" json:"name"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Role         identity.Role `db:"role" json:"role"`
	Active       bool          `db:"active" json:"active"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Actor returns the identity the user acts as.
func (u *User) Actor() identity.Actor {
	return identity.Actor{ID: u.ID, Type: identity.ActorUser, Role: u.Role, Name: u.Name}
}

const userColumns = `id, email, name, password_hash, role, active, created_at, updated_at`

// UserStore persists users.
type UserStore struct {
	q sqlx.ExtContext
}

// NewUserStore creates a UserStore on db.
func NewUserStore(db sqlx.ExtContext) *UserStore {
	return &UserStore{q: db}
}

// Create inserts u. A duplicate email yields apperr.ErrConflict.
func (s *UserStore) Create(ctx context.Context, u *User) error {
	_, err := storage.Exec(ctx, s.q, "insert_user",
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Active, u.CreatedAt, u.UpdatedAt)
	return err
}

// Get returns the user with id.
func (s *UserStore) Get(ctx context.Context, id string) (*User, error) {
	var u User
	if err := storage.Get(ctx, s.q, "get_user", &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns the user with the lower-cased email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := storage.Get(ctx, s.q, "get_user_by_email", &u, `SELECT `+userColumns+` FROM users WHERE email = ?`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns users ordered by email.
func (s *UserStore) List(ctx context.Context, page storage.Page) ([]User, error) {
	users := []User{}
	err := storage.Select(ctx, s.q, "list_users", &users, `SELECT `+userColumns+` FROM users ORDER BY email`+page.SQL())
	return users, err
}

// Update writes the mutable fields of u.
func (s *UserStore) Update(ctx context.Context, u *User) error {
	return storage.ExecOne(ctx, s.q, "update_user", "user", u.ID,
		`UPDATE users SET name = ?, password_hash = ?, role = ?, active = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.PasswordHash, u.Role, u.Active, u.UpdatedAt, u.ID)
}

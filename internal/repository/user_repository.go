package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/learning-journal/internal/model"
)

const userColumns = "id, first_name, last_name, username, email, password_hash, created_at, updated_at"

// UserRepo reads and writes the 'users' table.
type UserRepo struct{ q sqlx.ExtContext }

// NewUserRepo returns a UserRepo bound to db.
func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{q: db} }

// Create inserts u and fills in its ID and timestamps.  Emails are stored
// lowercased.  A duplicate username or email yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	ts := now()
	id, err := insert(ctx, r.q,
		`INSERT INTO users (first_name, last_name, username, email, password_hash, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)`,
		u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash, ts, ts)
	if err != nil {
		return classify("create user", err)
	}
	u.ID, u.CreatedAt, u.UpdatedAt = id, ts, ts
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, r.q, &u, r.q.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	return u, classify("get user", err)
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, r.q, &u, r.q.Rebind("SELECT "+userColumns+" FROM users WHERE username = ?"), username)
	return u, classify("get user by username", err)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, r.q, &u, r.q.Rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), normalizeEmail(email))
	return u, classify("get user by email", err)
}

// Taken reports whether username or email belongs to a user other than
// excludeID.  Pass 0 to check against every user.
func (r *UserRepo) Taken(ctx context.Context, username, email string, excludeID uint64) (usernameTaken, emailTaken bool, err error) {
	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	email = normalizeEmail(email)
	err = sqlx.SelectContext(ctx, r.q, &rows,
		r.q.Rebind("SELECT username, email FROM users WHERE (username = ? OR email = ?) AND id <> ?"),
		username, email, excludeID)
	if err != nil {
		return false, false, classify("check user uniqueness", err)
	}
	for _, row := range rows {
		if row.Username == username {
			usernameTaken = true
		}
		if row.Email == email {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

// Update rewrites the profile fields and password hash of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	u.UpdatedAt = now()
	err := execOwned(ctx, r.q,
		`UPDATE users SET first_name = ?, last_name = ?, username = ?, email = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash, u.UpdatedAt, u.ID)
	return classify("update user", err)
}

// Count returns the number of registered users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.q, &n, "SELECT COUNT(*) FROM users")
	return n, classify("count users", err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

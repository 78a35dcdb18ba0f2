package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/learning-journal/internal/model"
)

// An empty code is stored as NULL so several uncoded courses can coexist
// under the (owner_id, code) unique key.
const courseColumns = "id, owner_id, name, COALESCE(code, '') AS code, created_at"

// CourseRepo reads and writes the 'courses' table.  Every query is scoped
// to an owner.
type CourseRepo struct{ q sqlx.ExtContext }

// NewCourseRepo returns a CourseRepo bound to db.
func NewCourseRepo(db *sqlx.DB) *CourseRepo { return &CourseRepo{q: db} }

// Create inserts c.  A code already used by the same owner yields ErrConflict.
func (r *CourseRepo) Create(ctx context.Context, c *model.Course) error {
	ts := now()
	id, err := insert(ctx, r.q,
		"INSERT INTO courses (owner_id, name, code, created_at) VALUES (?,?,?,?)",
		c.OwnerID, c.Name, nullIfEmpty(c.Code), ts)
	if err != nil {
		return classify("create course", err)
	}
	c.ID, c.CreatedAt = id, ts
	return nil
}

// GetByIDAndOwner returns the course only if ownerID owns it.
func (r *CourseRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Course, error) {
	var c model.Course
	err := sqlx.GetContext(ctx, r.q, &c,
		r.q.Rebind("SELECT "+courseColumns+" FROM courses WHERE id = ? AND owner_id = ?"), id, ownerID)
	return c, classify("get course", err)
}

// ListByOwner returns the owner's courses ordered by name.
func (r *CourseRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Course, error) {
	out := []model.Course{}
	err := sqlx.SelectContext(ctx, r.q, &out,
		r.q.Rebind("SELECT "+courseColumns+" FROM courses WHERE owner_id = ? ORDER BY name, id"), ownerID)
	if err != nil {
		return nil, classify("list courses", err)
	}
	return out, nil
}

// Update renames or recodes a course the owner owns.
func (r *CourseRepo) Update(ctx context.Context, c *model.Course) error {
	err := execOwned(ctx, r.q,
		"UPDATE courses SET name = ?, code = ? WHERE id = ? AND owner_id = ?",
		c.Name, nullIfEmpty(c.Code), c.ID, c.OwnerID)
	return classify("update course", err)
}

// DeleteByIDAndOwner removes a course.  Entries filed under it keep
// existing with no course.
func (r *CourseRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	// sqlite only honours ON DELETE SET NULL with foreign_keys on; clear the
	// links explicitly so every engine behaves the same.
	if _, err := r.q.ExecContext(ctx,
		r.q.Rebind("UPDATE journal_entries SET course_id = NULL WHERE course_id = ? AND owner_id = ?"),
		id, ownerID); err != nil {
		return classify("unlink course entries", err)
	}
	err := execOwned(ctx, r.q, "DELETE FROM courses WHERE id = ? AND owner_id = ?", id, ownerID)
	return classify("delete course", err)
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

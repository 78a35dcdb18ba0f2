package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/learning-journal/internal/model"
)

const entrySelect = `SELECT e.id, e.owner_id, e.course_id, COALESCE(c.name, '') AS course_name,
	e.entry_date, e.subject, e.learnt, e.challenges, e.schedule, e.created_at, e.updated_at
	FROM journal_entries e
	LEFT JOIN courses c ON c.id = e.course_id AND c.owner_id = e.owner_id`

// EntryRepo reads and writes the 'journal_entries' table.  Every query is
// scoped to an owner.
type EntryRepo struct{ q sqlx.ExtContext }

// NewEntryRepo returns an EntryRepo bound to db.
func NewEntryRepo(db *sqlx.DB) *EntryRepo { return &EntryRepo{q: db} }

// Create inserts e and fills in its ID and timestamps.  A CourseID that the
// owner does not own yields ErrForeignCourse.
func (r *EntryRepo) Create(ctx context.Context, e *model.JournalEntry) error {
	if err := r.checkCourse(ctx, e.CourseID, e.OwnerID); err != nil {
		return err
	}
	ts := now()
	id, err := insert(ctx, r.q,
		`INSERT INTO journal_entries (owner_id, course_id, entry_date, subject, learnt, challenges, schedule, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		e.OwnerID, e.CourseID, e.Date, e.Subject, e.Learnt, e.Challenges, e.Schedule, ts, ts)
	if err != nil {
		return classify("create entry", err)
	}
	e.ID, e.CreatedAt, e.UpdatedAt = id, ts, ts
	return nil
}

// GetByIDAndOwner returns the entry only if ownerID owns it.
func (r *EntryRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.JournalEntry, error) {
	var e model.JournalEntry
	err := sqlx.GetContext(ctx, r.q, &e, r.q.Rebind(entrySelect+" WHERE e.id = ? AND e.owner_id = ?"), id, ownerID)
	return e, classify("get entry", err)
}

// ListByOwner returns the owner's entries matching f, most recent date
// first.  Entries on the same date are ordered by creation, newest first.
func (r *EntryRepo) ListByOwner(ctx context.Context, ownerID uint64, f model.EntryFilter) ([]model.JournalEntry, error) {
	var (
		where = []string{"e.owner_id = ?"}
		args  = []any{ownerID}
	)
	if f.Date != "" {
		where = append(where, "e.entry_date = ?")
		args = append(args, f.Date)
	}
	if s := strings.TrimSpace(f.Subject); s != "" {
		where = append(where, "LOWER(e.subject) LIKE ? ESCAPE '!'")
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
	}
	query := entrySelect + " WHERE " + strings.Join(where, " AND ") +
		" ORDER BY e.entry_date DESC, e.created_at DESC, e.id DESC"

	out := []model.JournalEntry{}
	if err := sqlx.SelectContext(ctx, r.q, &out, r.q.Rebind(query), args...); err != nil {
		return nil, classify("list entries", err)
	}
	return out, nil
}

// Update rewrites the editable fields of an entry the owner owns.
func (r *EntryRepo) Update(ctx context.Context, e *model.JournalEntry) error {
	if err := r.checkCourse(ctx, e.CourseID, e.OwnerID); err != nil {
		return err
	}
	e.UpdatedAt = now()
	err := execOwned(ctx, r.q,
		`UPDATE journal_entries
		 SET course_id = ?, entry_date = ?, subject = ?, learnt = ?, challenges = ?, schedule = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		e.CourseID, e.Date, e.Subject, e.Learnt, e.Challenges, e.Schedule, e.UpdatedAt, e.ID, e.OwnerID)
	return classify("update entry", err)
}

// DeleteByIDAndOwner removes an entry the owner owns.
func (r *EntryRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	err := execOwned(ctx, r.q, "DELETE FROM journal_entries WHERE id = ? AND owner_id = ?", id, ownerID)
	return classify("delete entry", err)
}

func (r *EntryRepo) checkCourse(ctx context.Context, courseID *uint64, ownerID uint64) error {
	if courseID == nil {
		return nil
	}
	var n int
	err := sqlx.GetContext(ctx, r.q, &n,
		r.q.Rebind("SELECT COUNT(*) FROM courses WHERE id = ? AND owner_id = ?"), *courseID, ownerID)
	if err != nil {
		return classify("check course", err)
	}
	if n == 0 {
		return ErrForeignCourse
	}
	return nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes s match literally inside a LIKE pattern using '!' as the
// escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

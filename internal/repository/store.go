package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store owns the connection pool and hands out repositories bound either to
// the pool or to a single transaction.
type Store struct {
	db *sqlx.DB
}

// NewStore constructs a Store with the provided DB handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Repos groups the repositories that share one querier.
type Repos struct {
	Users    *UserRepo
	Courses  *CourseRepo
	Entries  *EntryRepo
	Sessions *SessionRepo
}

func newRepos(q sqlx.ExtContext) Repos {
	return Repos{
		Users:    &UserRepo{q: q},
		Courses:  &CourseRepo{q: q},
		Entries:  &EntryRepo{q: q},
		Sessions: &SessionRepo{q: q},
	}
}

// Repos returns repositories that run each statement on the pool.
func (s *Store) Repos() Repos {
	return newRepos(s.db)
}

// InTx runs fn with repositories bound to one transaction.  The transaction
// is committed when fn returns nil and rolled back on error or panic, so a
// failed operation leaves no partial writes.
func (s *Store) InTx(ctx context.Context, fn func(Repos) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = classify("commit tx", cerr)
		}
	}()
	return fn(newRepos(tx))
}

// insert executes an INSERT and returns the generated id.  lib/pq does not
// implement LastInsertId, so postgres uses RETURNING instead.
func insert(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (uint64, error) {
	query = q.Rebind(query)
	if q.DriverName() == "postgres" {
		var id uint64
		if err := q.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return uint64(id), nil
}

// execOwned runs a mutation that is scoped by id and owner and reports
// ErrNotFound when no row matched.
func execOwned(ctx context.Context, q sqlx.ExtContext, query string, args ...any) error {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// now returns the timestamp stored in created_at/updated_at columns,
// truncated to the precision every supported engine keeps.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

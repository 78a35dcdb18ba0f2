package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/queue"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/session"
)

// DateLayout is the only accepted entry date format.
const DateLayout = "2006-01-02"

// EntryInput holds the editable fields of a journal entry.
type EntryInput struct {
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Subject    string  `json:"subject" validate:"required,max=255"`
	Learnt     string  `json:"learnt" validate:"required"`
	Challenges string  `json:"challenges" validate:"required"`
	Schedule   string  `json:"schedule" validate:"required"`
	CourseID   *uint64 `json:"course_id"`
}

func (in *EntryInput) trim() {
	in.Date = strings.TrimSpace(in.Date)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Learnt = strings.TrimSpace(in.Learnt)
	in.Challenges = strings.TrimSpace(in.Challenges)
	in.Schedule = strings.TrimSpace(in.Schedule)
	if in.CourseID != nil && *in.CourseID == 0 {
		in.CourseID = nil
	}
}

// CreateEntry records a new entry owned by the acting user.
func (s *Service) CreateEntry(ctx context.Context, p session.Principal, in EntryInput) (model.JournalEntry, error) {
	if err := requireUser(p); err != nil {
		return model.JournalEntry{}, err
	}
	in.trim()
	if err := s.validateStruct(in); err != nil {
		return model.JournalEntry{}, err
	}

	e := model.JournalEntry{
		OwnerID:    p.UserID,
		CourseID:   in.CourseID,
		Date:       in.Date,
		Subject:    in.Subject,
		Learnt:     in.Learnt,
		Challenges: in.Challenges,
		Schedule:   in.Schedule,
	}
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		if err := r.Entries.Create(ctx, &e); err != nil {
			return err
		}
		// re-read for the joined course name
		var err error
		e, err = r.Entries.GetByIDAndOwner(ctx, e.ID, p.UserID)
		return err
	})
	if err != nil {
		err = fromRepo(err, MsgStorage)
		logStorage("create entry", err)
		return model.JournalEntry{}, err
	}
	s.audit(ctx, queue.EntryCreated, p.UserID, e.ID)
	return e, nil
}

// GetEntry returns an entry the acting user owns.  Someone else's entry is
// reported exactly like a missing one.
func (s *Service) GetEntry(ctx context.Context, p session.Principal, id uint64) (model.JournalEntry, error) {
	if err := requireUser(p); err != nil {
		return model.JournalEntry{}, err
	}
	e, err := s.store.Repos().Entries.GetByIDAndOwner(ctx, id, p.UserID)
	if err != nil {
		err = fromRepo(err, "")
		logStorage("get entry", err)
		return model.JournalEntry{}, err
	}
	return e, nil
}

// ListEntries returns the acting user's entries, optionally narrowed to an
// exact date and/or a case-insensitive subject substring.
func (s *Service) ListEntries(ctx context.Context, p session.Principal, f model.EntryFilter) ([]model.JournalEntry, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	f.Date = strings.TrimSpace(f.Date)
	f.Subject = strings.TrimSpace(f.Subject)
	if f.Date != "" {
		if _, err := time.Parse(DateLayout, f.Date); err != nil {
			return nil, invalid("search_date", "search date must be in YYYY-MM-DD format")
		}
	}
	entries, err := s.store.Repos().Entries.ListByOwner(ctx, p.UserID, f)
	if err != nil {
		err = fromRepo(err, "")
		logStorage("list entries", err)
		return nil, err
	}
	return entries, nil
}

// UpdateEntry rewrites an entry the acting user owns.
func (s *Service) UpdateEntry(ctx context.Context, p session.Principal, id uint64, in EntryInput) (model.JournalEntry, error) {
	if err := requireUser(p); err != nil {
		return model.JournalEntry{}, err
	}
	in.trim()
	if err := s.validateStruct(in); err != nil {
		return model.JournalEntry{}, err
	}

	var e model.JournalEntry
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		var err error
		if e, err = r.Entries.GetByIDAndOwner(ctx, id, p.UserID); err != nil {
			return err
		}
		e.CourseID = in.CourseID
		e.Date = in.Date
		e.Subject = in.Subject
		e.Learnt = in.Learnt
		e.Challenges = in.Challenges
		e.Schedule = in.Schedule
		if err := r.Entries.Update(ctx, &e); err != nil {
			return err
		}
		e, err = r.Entries.GetByIDAndOwner(ctx, id, p.UserID)
		return err
	})
	if err != nil {
		err = fromRepo(err, MsgStorage)
		logStorage("update entry", err)
		return model.JournalEntry{}, err
	}
	s.audit(ctx, queue.EntryUpdated, p.UserID, id)
	return e, nil
}

// DeleteEntry removes an entry the acting user owns.
func (s *Service) DeleteEntry(ctx context.Context, p session.Principal, id uint64) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if err := s.store.Repos().Entries.DeleteByIDAndOwner(ctx, id, p.UserID); err != nil {
		err = fromRepo(err, "")
		logStorage("delete entry", err)
		return err
	}
	s.audit(ctx, queue.EntryDeleted, p.UserID, id)
	return nil
}

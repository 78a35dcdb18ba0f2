package service

import (
	"context"
	"strings"

	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/queue"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/session"
)

// CourseInput holds the editable fields of a course.
type CourseInput struct {
	Name string `json:"name" form:"name" validate:"required,max=255"`
	Code string `json:"code" form:"code" validate:"max=50"`
}

// CreateCourse adds a course owned by the acting user.
func (s *Service) CreateCourse(ctx context.Context, p session.Principal, in CourseInput) (model.Course, error) {
	if err := requireUser(p); err != nil {
		return model.Course{}, err
	}
	in.Name, in.Code = strings.TrimSpace(in.Name), strings.TrimSpace(in.Code)
	if err := s.validateStruct(in); err != nil {
		return model.Course{}, err
	}
	c := model.Course{OwnerID: p.UserID, Name: in.Name, Code: in.Code}
	if err := s.store.Repos().Courses.Create(ctx, &c); err != nil {
		err = fromRepo(err, MsgDuplicateCourse)
		logStorage("create course", err)
		return model.Course{}, err
	}
	s.audit(ctx, queue.CourseCreated, p.UserID, c.ID)
	return c, nil
}

// ListCourses returns the acting user's courses ordered by name.
func (s *Service) ListCourses(ctx context.Context, p session.Principal) ([]model.Course, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	out, err := s.store.Repos().Courses.ListByOwner(ctx, p.UserID)
	if err != nil {
		err = fromRepo(err, "")
		logStorage("list courses", err)
		return nil, err
	}
	return out, nil
}

// GetCourse returns a course the acting user owns.
func (s *Service) GetCourse(ctx context.Context, p session.Principal, id uint64) (model.Course, error) {
	if err := requireUser(p); err != nil {
		return model.Course{}, err
	}
	c, err := s.store.Repos().Courses.GetByIDAndOwner(ctx, id, p.UserID)
	if err != nil {
		err = fromRepo(err, "")
		logStorage("get course", err)
		return model.Course{}, err
	}
	return c, nil
}

// UpdateCourse renames or recodes a course the acting user owns.
func (s *Service) UpdateCourse(ctx context.Context, p session.Principal, id uint64, in CourseInput) (model.Course, error) {
	if err := requireUser(p); err != nil {
		return model.Course{}, err
	}
	in.Name, in.Code = strings.TrimSpace(in.Name), strings.TrimSpace(in.Code)
	if err := s.validateStruct(in); err != nil {
		return model.Course{}, err
	}
	var c model.Course
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		var err error
		if c, err = r.Courses.GetByIDAndOwner(ctx, id, p.UserID); err != nil {
			return err
		}
		c.Name, c.Code = in.Name, in.Code
		return r.Courses.Update(ctx, &c)
	})
	if err != nil {
		err = fromRepo(err, MsgDuplicateCourse)
		logStorage("update course", err)
		return model.Course{}, err
	}
	s.audit(ctx, queue.CourseUpdated, p.UserID, id)
	return c, nil
}

// DeleteCourse removes a course the acting user owns.  Its entries are kept
// and lose their course link.
func (s *Service) DeleteCourse(ctx context.Context, p session.Principal, id uint64) error {
	if err := requireUser(p); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		return r.Courses.DeleteByIDAndOwner(ctx, id, p.UserID)
	})
	if err != nil {
		err = fromRepo(err, "")
		logStorage("delete course", err)
		return err
	}
	s.audit(ctx, queue.CourseDeleted, p.UserID, id)
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/learning-journal/internal/metrics"
	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/queue"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/session"
	"github.com/iliyamo/learning-journal/internal/utils"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName       string `json:"first_name" form:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" form:"last_name" validate:"required,max=100"`
	Username        string `json:"username" form:"username" validate:"required,username"`
	Email           string `json:"email" form:"email" validate:"required,max=255,loose_email"`
	Password        string `json:"password" form:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ProfileInput updates the acting user's profile.  NewPassword is optional;
// when empty the password is left unchanged.
type ProfileInput struct {
	FirstName       string `json:"first_name" form:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" form:"last_name" validate:"required,max=100"`
	Username        string `json:"username" form:"username" validate:"required,username"`
	Email           string `json:"email" form:"email" validate:"required,max=255,loose_email"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// AuthResult is returned by operations that may establish a session.  Token
// is empty when no session was established.
type AuthResult struct {
	User      model.User
	Token     string
	Principal session.Principal
}

// Register creates an account.  When auto-login is enabled the new user is
// also signed in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validateStruct(in); err != nil {
		metrics.ObserveRegistration(metrics.OutcomeInvalid)
		return AuthResult{}, err
	}
	if err := s.checkPassword("password", in.Password, in.ConfirmPassword); err != nil {
		metrics.ObserveRegistration(metrics.OutcomeInvalid)
		return AuthResult{}, err
	}

	hash, err := utils.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		metrics.ObserveRegistration(metrics.OutcomeError)
		err = &Error{Kind: KindStorage, Message: MsgStorage, Err: err}
		logStorage("register hash password", err)
		return AuthResult{}, err
	}
	u := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	err = s.store.InTx(ctx, func(r repository.Repos) error {
		userTaken, emailTaken, err := r.Users.Taken(ctx, u.Username, u.Email, 0)
		if err != nil {
			return err
		}
		if userTaken || emailTaken {
			return repository.ErrConflict
		}
		return r.Users.Create(ctx, &u)
	})
	if err != nil {
		err = fromRepo(err, MsgDuplicateAccount)
		if KindOf(err) == KindConflict {
			metrics.ObserveRegistration(metrics.OutcomeConflict)
		} else {
			metrics.ObserveRegistration(metrics.OutcomeError)
		}
		logStorage("register", err)
		return AuthResult{}, err
	}
	metrics.ObserveRegistration(metrics.OutcomeSuccess)
	s.audit(ctx, queue.UserRegistered, u.ID, u.ID)

	res := AuthResult{User: u}
	if !s.opts.AutoLoginOnRegister {
		return res, nil
	}
	token, p, err := s.sessions.Establish(ctx, u.ID)
	if err != nil {
		// the account exists; the user can still log in by hand
		err = fromRepo(err, MsgStorage)
		logStorage("register establish session", err)
		return res, err
	}
	res.Token, res.Principal = token, p
	return res, nil
}

// Login verifies credentials and establishes a session.  An unknown user
// and a wrong password produce the same error.  A session the caller already
// holds is destroyed once the credentials check out.
func (s *Service) Login(ctx context.Context, current session.Principal, in LoginInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		metrics.ObserveLogin(metrics.OutcomeInvalid)
		return AuthResult{}, invalid("username", "please enter both username and password")
	}

	u, err := s.store.Repos().Users.GetByUsername(ctx, in.Username)
	switch {
	case err == nil:
		if !utils.VerifyPassword(u.PasswordHash, in.Password) {
			metrics.ObserveLogin(metrics.OutcomeFailure)
			return AuthResult{}, authFailed()
		}
	case errors.Is(err, repository.ErrNotFound):
		utils.BurnPasswordCheck(in.Password)
		metrics.ObserveLogin(metrics.OutcomeFailure)
		return AuthResult{}, authFailed()
	default:
		metrics.ObserveLogin(metrics.OutcomeError)
		err = fromRepo(err, "")
		logStorage("login", err)
		return AuthResult{}, err
	}

	if current.Authenticated() {
		if err := s.sessions.DestroyPrincipal(ctx, current); err != nil {
			metrics.ObserveLogin(metrics.OutcomeError)
			err = fromRepo(err, MsgStorage)
			logStorage("login destroy previous session", err)
			return AuthResult{}, err
		}
	}

	token, p, err := s.sessions.Establish(ctx, u.ID)
	if err != nil {
		metrics.ObserveLogin(metrics.OutcomeError)
		err = fromRepo(err, MsgStorage)
		logStorage("login establish session", err)
		return AuthResult{}, err
	}
	metrics.ObserveLogin(metrics.OutcomeSuccess)
	s.audit(ctx, queue.UserLoggedIn, u.ID, 0)
	return AuthResult{User: u, Token: token, Principal: p}, nil
}

// Logout destroys the principal's session.  Logging out while anonymous is
// a no-op.
func (s *Service) Logout(ctx context.Context, p session.Principal) error {
	if !p.Authenticated() {
		return nil
	}
	if err := s.sessions.DestroyPrincipal(ctx, p); err != nil {
		err = fromRepo(err, MsgStorage)
		logStorage("logout", err)
		return err
	}
	s.audit(ctx, queue.UserLoggedOut, p.UserID, 0)
	return nil
}

// GetProfile returns the acting user.
func (s *Service) GetProfile(ctx context.Context, p session.Principal) (model.User, error) {
	if err := requireUser(p); err != nil {
		return model.User{}, err
	}
	u, err := s.store.Repos().Users.GetByID(ctx, p.UserID)
	if err != nil {
		err = fromRepo(err, "")
		logStorage("get profile", err)
		return model.User{}, err
	}
	return u, nil
}

// UpdateProfile changes the acting user's names, username, email and
// optionally password.  Uniqueness is checked against every other user.
func (s *Service) UpdateProfile(ctx context.Context, p session.Principal, in ProfileInput) (model.User, error) {
	if err := requireUser(p); err != nil {
		return model.User{}, err
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validateStruct(in); err != nil {
		return model.User{}, err
	}

	var newHash string
	if in.NewPassword != "" || in.ConfirmPassword != "" {
		if err := s.checkPassword("new_password", in.NewPassword, in.ConfirmPassword); err != nil {
			return model.User{}, err
		}
		h, err := utils.HashPassword(in.NewPassword, s.opts.BcryptCost)
		if err != nil {
			err = &Error{Kind: KindStorage, Message: MsgStorage, Err: err}
			logStorage("update profile hash password", err)
			return model.User{}, err
		}
		newHash = h
	}

	var u model.User
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		var err error
		if u, err = r.Users.GetByID(ctx, p.UserID); err != nil {
			return err
		}
		userTaken, emailTaken, err := r.Users.Taken(ctx, in.Username, in.Email, p.UserID)
		if err != nil {
			return err
		}
		if userTaken || emailTaken {
			return repository.ErrConflict
		}
		u.FirstName, u.LastName, u.Username, u.Email = in.FirstName, in.LastName, in.Username, in.Email
		if newHash != "" {
			u.PasswordHash = newHash
		}
		return r.Users.Update(ctx, &u)
	})
	if err != nil {
		err = fromRepo(err, MsgDuplicateAccount)
		logStorage("update profile", err)
		return model.User{}, err
	}
	s.audit(ctx, queue.ProfileUpdated, p.UserID, p.UserID)
	return u, nil
}

package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"nemsutalks/internal/util"
	"nemsutalks/pkg/auth"
	"nemsutalks/pkg/domain"
)

// The administrator is a fixed credential pair, not a stored user.
const (
	AdminEmail    = "admin@nemsu.edu.ph"
	AdminPassword = "admin123"
)

type authState struct {
	Users       []domain.User `json:"users"`
	CurrentUser *domain.User  `json:"currentUser"`
}

// AuthStore holds registered users and the single current session.
type AuthStore struct {
	mu       sync.RWMutex
	state    authState
	now      func() time.Time
	snapshot *snapshotter
}

func NewAuthStore(opts ...Option) *AuthStore {
	o := buildOptions(opts)
	return &AuthStore{
		state:    authState{Users: []domain.User{}},
		now:      o.now,
		snapshot: newSnapshotter(AuthSnapshot, o.backend),
	}
}

// Restore replaces the in-memory state with the persisted snapshot, if any.
func (s *AuthStore) Restore(ctx context.Context) error {
	var st authState
	ok, err := s.snapshot.load(ctx, &st)
	if err != nil || !ok {
		return err
	}
	if st.Users == nil {
		st.Users = []domain.User{}
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Flush writes the current state and reports any persistence error.
func (s *AuthStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.write(ctx, s.state)
}

// Register appends a new user. Email and student id must be unique
// ignoring case; the email check runs first.
func (s *AuthStore) Register(candidate domain.NewUser) (domain.User, error) {
	hash, err := auth.HashPassword(candidate.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUniqueLocked("", candidate.Email, candidate.StudentID); err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:        util.NewPrefixedID("user"),
		FullName:  candidate.FullName,
		Email:     candidate.Email,
		StudentID: candidate.StudentID,
		Password:  hash,
		Avatar:    candidate.Avatar,
		CreatedAt: s.now(),
	}
	s.state.Users = append(s.state.Users, user)
	s.snapshot.save(s.state)
	return user, nil
}

// Login checks the admin pair first; an admin login never touches the
// current session. Any other failure is ErrInvalidCredentials.
func (s *AuthStore) Login(identifier, password string) (domain.LoginResult, error) {
	if strings.EqualFold(identifier, AdminEmail) && password == AdminPassword {
		return domain.LoginResult{Message: "Admin login successful", IsAdmin: true}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.state.Users {
		if !strings.EqualFold(u.Email, identifier) && !strings.EqualFold(u.StudentID, identifier) {
			continue
		}
		if !auth.CheckPassword(password, u.Password) {
			continue
		}
		current := u
		s.state.CurrentUser = &current
		s.snapshot.save(s.state)
		user := u
		return domain.LoginResult{Message: "Login successful", User: &user}, nil
	}
	return domain.LoginResult{}, ErrInvalidCredentials
}

// Logout clears the current session unconditionally.
func (s *AuthStore) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentUser = nil
	s.snapshot.save(s.state)
}

func (s *AuthStore) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentUser == nil {
		return domain.User{}, false
	}
	return *s.state.CurrentUser, true
}

func (s *AuthStore) UserByID(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.state.Users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}

// Users returns all users in registration order.
func (s *AuthStore) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.state.Users))
	copy(out, s.state.Users)
	return out
}

// UpdateUser merges the non-nil fields of update into the user. When the
// user is the current session the session copy receives the same fields.
func (s *AuthStore) UpdateUser(id string, update domain.UserUpdate) (domain.User, error) {
	var hash string
	if update.Password != nil {
		h, err := auth.HashPassword(*update.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, u := range s.state.Users {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.User{}, ErrNotFound
	}
	email, studentID := "", ""
	if update.Email != nil {
		email = *update.Email
	}
	if update.StudentID != nil {
		studentID = *update.StudentID
	}
	if err := s.checkUniqueLocked(id, email, studentID); err != nil {
		return domain.User{}, err
	}

	updated := applyUserUpdate(s.state.Users[idx], update, hash)
	s.state.Users[idx] = updated
	if s.state.CurrentUser != nil && s.state.CurrentUser.ID == id {
		current := applyUserUpdate(*s.state.CurrentUser, update, hash)
		s.state.CurrentUser = &current
	}
	s.snapshot.save(s.state)
	return updated, nil
}

// checkUniqueLocked rejects email or student id values already used by a
// user other than exceptID. Empty values are not checked.
func (s *AuthStore) checkUniqueLocked(exceptID, email, studentID string) error {
	if email != "" {
		for _, u := range s.state.Users {
			if u.ID != exceptID && strings.EqualFold(u.Email, email) {
				return ErrDuplicateEmail
			}
		}
	}
	if studentID != "" {
		for _, u := range s.state.Users {
			if u.ID != exceptID && strings.EqualFold(u.StudentID, studentID) {
				return ErrDuplicateStudentID
			}
		}
	}
	return nil
}

func applyUserUpdate(u domain.User, update domain.UserUpdate, passwordHash string) domain.User {
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.StudentID != nil {
		u.StudentID = *update.StudentID
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if passwordHash != "" {
		u.Password = passwordHash
	}
	return u
}

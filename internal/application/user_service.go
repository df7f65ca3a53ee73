package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// DefaultAdminGroup is the directory group granting admin rights.
const DefaultAdminGroup = "soviet"

// UserService merges directory identities with local lab state and keeps the
// local user table in step with the directory.
type UserService struct {
	users      UserRepository
	directory  IdentitySource
	adminGroup string
	logger     *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, directory IdentitySource, adminGroup string) *UserService {
	return NewUserServiceWithLogger(users, directory, adminGroup, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a custom logger.
func NewUserServiceWithLogger(users UserRepository, directory IdentitySource, adminGroup string, logger *slog.Logger) *UserService {
	adminGroup = strings.TrimSpace(adminGroup)
	if adminGroup == "" {
		adminGroup = DefaultAdminGroup
	}
	return &UserService{users: users, directory: directory, adminGroup: adminGroup, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

func (s *UserService) ready() error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	return nil
}

// List returns every known user merged with directory data, sorted by id.
func (s *UserService) List(ctx context.Context, session Session) ([]User, error) {
	if err := Authorize(session, TierReadOnly); err != nil {
		return nil, err
	}
	return s.All(ctx)
}

// All returns every known user without an authorization check. The test
// mode account picker uses it before anyone is logged in.
func (s *UserService) All(ctx context.Context) ([]User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	states, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return s.mergeAll(ctx, states), nil
}

// Lookup returns a user only when both the local row and the directory
// entry exist.
func (s *UserService) Lookup(ctx context.Context, id string) (User, error) {
	if err := s.ready(); err != nil {
		return User{}, err
	}
	state, err := s.users.GetUser(ctx, id)
	if err != nil {
		return User{}, wrapNotFound(err, "User not found")
	}
	if s.directory == nil {
		return User{}, failure(ErrNotFound, "User not found")
	}
	identity, ok := s.directory.Identity(ctx, id)
	if !ok {
		return User{}, failure(ErrNotFound, "User not found")
	}
	return s.merge(state, identity), nil
}

// UsersInLocation returns the users whose active location is locationID.
func (s *UserService) UsersInLocation(ctx context.Context, locationID string) ([]User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	states, err := s.users.ListUsersInLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return s.mergeAll(ctx, states), nil
}

// ApplyRoster adds local rows for new directory ids and removes rows whose
// id left the directory.
func (s *UserService) ApplyRoster(ctx context.Context, roster []Identity) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	var added, removed int
	logger := s.loggerWith(ctx, "ApplyRoster", "roster_size", len(roster))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "roster sync failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "roster synced", "added", added, "removed", removed)
	}()

	var states []LabState
	states, err = s.users.ListUsers(ctx)
	if err != nil {
		return
	}

	wanted := make(map[string]struct{}, len(roster))
	for _, identity := range roster {
		if identity.ID != "" {
			wanted[identity.ID] = struct{}{}
		}
	}
	existing := make(map[string]struct{}, len(states))
	for _, state := range states {
		existing[state.UserID] = struct{}{}
	}

	for _, identity := range roster {
		if _, ok := existing[identity.ID]; ok || identity.ID == "" {
			continue
		}
		if err = s.users.AddUserIfNotExists(ctx, identity.ID); err != nil {
			return
		}
		existing[identity.ID] = struct{}{}
		added++
	}
	for _, state := range states {
		if _, ok := wanted[state.UserID]; ok {
			continue
		}
		if err = s.users.DeleteUser(ctx, state.UserID); err != nil && !errors.Is(err, ErrNotFound) {
			return
		}
		err = nil
		removed++
	}
	return
}

// Run applies every roster received on updates until the channel closes or
// the context ends.
func (s *UserService) Run(ctx context.Context, updates <-chan []Identity) {
	for {
		select {
		case <-ctx.Done():
			return
		case roster, ok := <-updates:
			if !ok {
				return
			}
			// Errors are logged by ApplyRoster; the next roster retries.
			_ = s.ApplyRoster(ctx, roster)
		}
	}
}

func (s *UserService) mergeAll(ctx context.Context, states []LabState) []User {
	identities := map[string]Identity{}
	if s.directory != nil {
		all, err := s.directory.Identities(ctx)
		if err != nil {
			s.loggerWith(ctx, "mergeAll").WarnContext(ctx, "directory unavailable, returning local data only", "error", err)
		}
		for _, identity := range all {
			identities[identity.ID] = identity
		}
	}

	out := make([]User, 0, len(states))
	for _, state := range states {
		out = append(out, s.merge(state, identities[state.UserID]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *UserService) merge(state LabState, identity Identity) User {
	groups := make([]string, len(identity.Groups))
	copy(groups, identity.Groups)
	return User{
		ID:             state.UserID,
		Username:       identity.Username,
		Name:           identity.Name,
		Surname:        identity.Surname,
		Email:          identity.Email,
		Groups:         groups,
		HasKey:         identity.HasKey,
		Locked:         identity.Locked,
		Admin:          s.isAdmin(identity.Groups),
		Seconds:        state.Seconds,
		ActiveLocation: state.ActiveLocation,
	}
}

func (s *UserService) isAdmin(groups []string) bool {
	for _, group := range groups {
		if strings.EqualFold(group, s.adminGroup) {
			return true
		}
	}
	return false
}

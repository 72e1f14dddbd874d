package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dormdesk/maintenance-service/internal/auth"
	"github.com/dormdesk/maintenance-service/internal/config"
	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/repository"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

// UserPatch carries only the profile fields the caller intends to change.
type UserPatch struct {
	Username *string
	Name     *string
	Password *string
	Phone    *string
	Avatar   *string
	Role     *domain.Role
}

func (p UserPatch) empty() bool {
	return p.Username == nil && p.Name == nil && p.Password == nil &&
		p.Phone == nil && p.Avatar == nil && p.Role == nil
}

// ProvisionInput describes an admin-created account.
type ProvisionInput struct {
	Username string
	Password string
	Name     string
	Phone    *string
	Role     domain.Role
}

// UserService manages accounts and the role-scoped profile update rules.
type UserService struct {
	users    repository.UserRepository
	verifier auth.Verifier
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, users repository.UserRepository) *UserService {
	return &UserService{
		users:    users,
		verifier: auth.NewVerifier(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost),
	}
}

// List returns the full roster, admins only.
func (s *UserService) List(ctx context.Context, requester Caller) ([]domain.User, error) {
	if requester.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListTechnicians returns technicians ordered by name, for assignment pickers.
func (s *UserService) ListTechnicians(ctx context.Context) ([]domain.User, error) {
	techs, err := s.users.ListTechnicians(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return techs, nil
}

// Provision creates a resident or technician account on behalf of an admin.
// Admin accounts cannot be provisioned through this path.
func (s *UserService) Provision(ctx context.Context, requester Caller, input ProvisionInput) (*domain.User, error) {
	if requester.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	username := strings.TrimSpace(input.Username)
	name := strings.TrimSpace(input.Name)
	if username == "" || input.Password == "" || name == "" {
		return nil, apperrors.NewValidationError("username, password and name required", nil)
	}
	if input.Role != domain.RoleResident && input.Role != domain.RoleTechnician {
		return nil, apperrors.NewValidationError("role must be resident or technician", map[string]any{"role": input.Role})
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	stored, err := s.verifier.Encode(input.Password)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user := &domain.User{
		Username: username,
		Password: stored,
		Role:     input.Role,
		Name:     name,
		Phone:    input.Phone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UpdateProfile applies a role-scoped partial update:
//
//   - an admin editing their own record may change the avatar only;
//   - an admin editing a resident or technician may change username, name,
//     password, phone, avatar and role (but never promote to admin, and
//     never touch another admin);
//   - a resident or technician editing themselves may change username, name,
//     password, phone and avatar;
//   - every other combination is rejected.
func (s *UserService) UpdateProfile(ctx context.Context, requester Caller, targetID int64, patch UserPatch) (*domain.User, error) {
	isSelf := requester.ID == targetID
	isAdmin := requester.Role == domain.RoleAdmin
	if !isSelf && !isAdmin {
		return nil, apperrors.NewForbidden("not allowed to edit this user")
	}
	if patch.empty() {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetID})
		}
		return nil, apperrors.MapError(err)
	}

	if isAdmin && !isSelf && target.Role == domain.RoleAdmin {
		return nil, apperrors.NewForbidden("cannot edit another admin")
	}
	if err := checkPatchScope(isSelf, isAdmin, patch); err != nil {
		return nil, err
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, apperrors.NewValidationError("username cannot be empty", nil)
		}
		if username != target.Username {
			if existing, err := s.users.GetByUsername(ctx, username); err == nil && existing.ID != target.ID {
				return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
			target.Username = username
		}
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		target.Name = name
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, apperrors.NewValidationError("password cannot be empty", nil)
		}
		stored, err := s.verifier.Encode(*patch.Password)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		target.Password = stored
	}
	if patch.Phone != nil {
		phone := strings.TrimSpace(*patch.Phone)
		if phone == "" {
			target.Phone = nil
		} else {
			target.Phone = &phone
		}
	}
	if patch.Avatar != nil {
		target.Avatar = patch.Avatar
	}
	if patch.Role != nil {
		if *patch.Role == domain.RoleAdmin {
			return nil, apperrors.NewForbidden("cannot promote to admin")
		}
		if !patch.Role.Valid() {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *patch.Role})
		}
		target.Role = *patch.Role
	}

	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	return target, nil
}

// checkPatchScope rejects fields outside the requester's permission set.
func checkPatchScope(isSelf, isAdmin bool, patch UserPatch) error {
	switch {
	case isAdmin && isSelf:
		if patch.Username != nil || patch.Name != nil || patch.Password != nil ||
			patch.Phone != nil || patch.Role != nil {
			return apperrors.NewForbidden("admins may only change their own avatar")
		}
	case isAdmin:
		// full field set allowed; role constraint checked at apply time
	default:
		if patch.Role != nil {
			return apperrors.NewForbidden("only admins can change roles")
		}
	}
	return nil
}

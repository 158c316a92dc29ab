package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bbasli/bdrive/models"
	"github.com/bbasli/bdrive/repositories"

	"gorm.io/gorm"
)

type UserProfile struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type UserService interface {
	CreateUser(ctx context.Context, tokenIdentifier string, name string, image string) (models.User, error)
	UpdateUser(ctx context.Context, tokenIdentifier string, name string, image string) error
	AddOrgIDToUser(ctx context.Context, tokenIdentifier string, orgID string, role models.Role) error
	UpdateRoleInOrgForUser(ctx context.Context, tokenIdentifier string, orgID string, role models.Role) error
	RemoveOrgIDFromUser(ctx context.Context, tokenIdentifier string, orgID string) error
	GetUser(ctx context.Context, tokenIdentifier string) (models.User, error)
	GetMe(ctx context.Context, identity *Identity) (*models.User, error)
	GetUserProfile(ctx context.Context, userID uint) (UserProfile, error)
}

type userService struct {
	txManager TxManager
	users     repositories.UserRepository
}

func NewUserService(txManager TxManager, users repositories.UserRepository) UserService {
	return &userService{txManager: txManager, users: users}
}

func (s *userService) getUser(ctx context.Context, tx *gorm.DB, tokenIdentifier string) (models.User, error) {
	user, err := s.users.GetByTokenIdentifier(ctx, tx, tokenIdentifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, errNotFound("expected user to be defined")
		}
		return models.User{}, errInternal("failed to query user", err)
	}
	return user, nil
}

// CreateUser is idempotent: a repeated user.created event refreshes the
// profile of the existing record.
func (s *userService) CreateUser(ctx context.Context, tokenIdentifier string, name string, image string) (models.User, error) {
	tokenIdentifier = strings.TrimSpace(tokenIdentifier)
	if tokenIdentifier == "" {
		return models.User{}, newAppError(http.StatusBadRequest, "token identifier is required", nil)
	}

	var out models.User
	err := s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.users.GetByTokenIdentifier(ctx, tx, tokenIdentifier)
		if err == nil {
			if err := s.users.UpdateProfile(ctx, tx, existing.ID, name, image); err != nil {
				return errInternal("failed to update user", err)
			}
			existing.Name, existing.Image = name, image
			out = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return errInternal("failed to query user", err)
		}

		user := models.User{TokenIdentifier: tokenIdentifier, Name: name, Image: image}
		if err := s.users.Create(ctx, tx, &user); err != nil {
			return errInternal("failed to create user", err)
		}
		out = user
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return out, nil
}

func (s *userService) UpdateUser(ctx context.Context, tokenIdentifier string, name string, image string) error {
	return s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		user, err := s.getUser(ctx, tx, tokenIdentifier)
		if err != nil {
			return err
		}
		if err := s.users.UpdateProfile(ctx, tx, user.ID, name, image); err != nil {
			return errInternal("failed to update user", err)
		}
		return nil
	})
}

// AddOrgIDToUser records a membership. An existing membership takes the new
// role instead of failing on the unique index.
func (s *userService) AddOrgIDToUser(ctx context.Context, tokenIdentifier string, orgID string, role models.Role) error {
	if orgID == "" {
		return newAppError(http.StatusBadRequest, "org id is required", nil)
	}
	if !role.Valid() {
		return newAppError(http.StatusBadRequest, "invalid role", nil)
	}

	return s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		user, err := s.getUser(ctx, tx, tokenIdentifier)
		if err != nil {
			return err
		}
		if _, ok := user.RoleIn(orgID); ok {
			if err := s.users.UpdateMembershipRole(ctx, tx, user.ID, orgID, role); err != nil {
				return errInternal("failed to update membership", err)
			}
			return nil
		}
		membership := models.Membership{UserID: user.ID, OrgID: orgID, Role: role}
		if err := s.users.AddMembership(ctx, tx, &membership); err != nil {
			return errInternal("failed to add membership", err)
		}
		return nil
	})
}

func (s *userService) UpdateRoleInOrgForUser(ctx context.Context, tokenIdentifier string, orgID string, role models.Role) error {
	if !role.Valid() {
		return newAppError(http.StatusBadRequest, "invalid role", nil)
	}

	return s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		user, err := s.getUser(ctx, tx, tokenIdentifier)
		if err != nil {
			return err
		}
		if _, ok := user.RoleIn(orgID); !ok {
			return errNotFound("expected org to be defined")
		}
		if err := s.users.UpdateMembershipRole(ctx, tx, user.ID, orgID, role); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNotFound("expected org to be defined")
			}
			return errInternal("failed to update membership", err)
		}
		return nil
	})
}

func (s *userService) RemoveOrgIDFromUser(ctx context.Context, tokenIdentifier string, orgID string) error {
	return s.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		user, err := s.getUser(ctx, tx, tokenIdentifier)
		if err != nil {
			return err
		}
		if err := s.users.DeleteMembership(ctx, tx, user.ID, orgID); err != nil {
			return errInternal("failed to remove membership", err)
		}
		return nil
	})
}

func (s *userService) GetUser(ctx context.Context, tokenIdentifier string) (models.User, error) {
	return s.getUser(ctx, nil, tokenIdentifier)
}

// GetMe returns nil for anonymous callers and for identities the webhook has
// not provisioned yet.
func (s *userService) GetMe(ctx context.Context, identity *Identity) (*models.User, error) {
	if identity == nil {
		return nil, nil
	}
	user, err := s.users.GetByTokenIdentifier(ctx, nil, identity.TokenIdentifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errInternal("failed to query user", err)
	}
	return &user, nil
}

func (s *userService) GetUserProfile(ctx context.Context, userID uint) (UserProfile, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserProfile{}, errNotFound("user not found")
		}
		return UserProfile{}, errInternal("failed to query user", err)
	}
	return UserProfile{Name: user.Name, Image: user.Image}, nil
}

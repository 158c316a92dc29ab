package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bbasli/bdrive/models"
	"github.com/bbasli/bdrive/repositories"

	"gorm.io/gorm"
)

// Identity is the caller as asserted by the identity provider's token.
type Identity struct {
	TokenIdentifier string `json:"token_identifier"`
	Issuer          string `json:"issuer"`
	Subject         string `json:"subject"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
}

type fileAccess struct {
	user models.User
	file models.File
}

type accessGuard struct {
	users repositories.UserRepository
	files repositories.FileRepository
}

// canAccessOrg: the user is a member of orgID, or orgID is the user's
// personal account, whose id is embedded in the token identifier.
func canAccessOrg(user models.User, orgID string) bool {
	if orgID == "" {
		return false
	}
	if _, ok := user.RoleIn(orgID); ok {
		return true
	}
	return strings.Contains(user.TokenIdentifier, orgID)
}

func (g accessGuard) loadUser(ctx context.Context, tx *gorm.DB, identity *Identity) (models.User, error) {
	return g.users.GetByTokenIdentifier(ctx, tx, identity.TokenIdentifier)
}

// hasAccessToOrg returns the caller's user record when it may act on orgID,
// nil when it may not or there is no caller.
func (g accessGuard) hasAccessToOrg(ctx context.Context, tx *gorm.DB, identity *Identity, orgID string) (*models.User, error) {
	if identity == nil {
		return nil, nil
	}

	user, err := g.loadUser(ctx, tx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInternal("expected user to be defined "+identity.TokenIdentifier, nil)
		}
		return nil, errInternal("failed to query user", err)
	}

	if !canAccessOrg(user, orgID) {
		return nil, nil
	}
	return &user, nil
}

// hasAccessToFile loads the file and checks the caller's access to its org.
// It returns nil without error when the caller is not allowed.
func (g accessGuard) hasAccessToFile(ctx context.Context, tx *gorm.DB, identity *Identity, fileID uint) (*fileAccess, error) {
	if identity == nil {
		return nil, errNotAuthenticated()
	}

	file, err := g.files.GetByID(ctx, tx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("file not found")
		}
		return nil, errInternal("failed to query file", err)
	}

	user, err := g.hasAccessToOrg(ctx, tx, identity, file.OrgID)
	if err != nil || user == nil {
		return nil, err
	}

	return &fileAccess{user: *user, file: file}, nil
}

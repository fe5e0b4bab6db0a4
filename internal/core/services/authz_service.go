package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
)

//go:embed space_roles.yaml
var spaceRolesYAML []byte

// RoleTable maps space member roles to their permissions.
type RoleTable struct {
	Permissions []struct {
		Key  string `yaml:"key"`
		Name string `yaml:"name"`
	} `yaml:"permissions"`
	Roles []struct {
		Key         string   `yaml:"key"`
		Name        string   `yaml:"name"`
		Permissions []string `yaml:"permissions"`
	} `yaml:"roles"`
}

// LoadRoleTable parses a role table document.
func LoadRoleTable(data []byte) (*RoleTable, error) {
	var table RoleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse space role table: %w", err)
	}
	if len(table.Roles) == 0 {
		return nil, errors.New("space role table defines no roles")
	}
	return &table, nil
}

// DefaultRoleTable returns the embedded role table.
func DefaultRoleTable() *RoleTable {
	table, err := LoadRoleTable(spaceRolesYAML)
	if err != nil {
		panic(err)
	}
	return table
}

// PermissionsFor returns the permissions of a role, or an empty set for unknown roles.
func (t *RoleTable) PermissionsFor(role domain.SpaceRole) domain.CapabilitySet {
	for _, r := range t.Roles {
		if r.Key == string(role) {
			return append(domain.CapabilitySet(nil), r.Permissions...)
		}
	}
	return domain.CapabilitySet{}
}

// AuthorizationService evaluates what a user may do inside a space.
type AuthorizationService struct {
	memberRepo ports.SpaceMemberRepository
	roles      *RoleTable
}

// Ensure implementation matches the interface.
var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService(memberRepo ports.SpaceMemberRepository, roles *RoleTable) *AuthorizationService {
	if roles == nil {
		roles = DefaultRoleTable()
	}
	return &AuthorizationService{
		memberRepo: memberRepo,
		roles:      roles,
	}
}

// CapabilitiesFor returns the caller's capability set for the space.
//
// The public gallery (nil space) grants admin permissions to platform admins
// only. A private space grants them to its owner and to platform admins. A
// team space grants the permissions of the caller's member role.
func (s *AuthorizationService) CapabilitiesFor(ctx context.Context, space *domain.Space, user *domain.User) (domain.CapabilitySet, error) {
	if user == nil {
		return domain.CapabilitySet{}, nil
	}

	adminPermissions := s.roles.PermissionsFor(domain.SpaceRoleAdmin)

	if space == nil {
		if user.IsAdmin() {
			return adminPermissions, nil
		}
		return domain.CapabilitySet{}, nil
	}

	switch space.Type {
	case domain.SpaceTypePrivate:
		if space.IsOwnedBy(user.ID) || user.IsAdmin() {
			return adminPermissions, nil
		}
		return domain.CapabilitySet{}, nil

	case domain.SpaceTypeTeam:
		role, err := s.memberRepo.GetRole(ctx, space.ID, user.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return domain.CapabilitySet{}, nil
			}
			return nil, fmt.Errorf("load space role: %w", err)
		}
		return s.roles.PermissionsFor(role), nil
	}

	return domain.CapabilitySet{}, nil
}

package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"listing-registry/internal/models"

	"gorm.io/gorm"
)

// AuthorityService answers role membership checks and lets admins grant and
// revoke roles, including the admin role itself.
type AuthorityService struct {
	db     *gorm.DB
	events *EventService
	mu     sync.Mutex
}

func NewAuthorityService(db *gorm.DB, events *EventService) *AuthorityService {
	return &AuthorityService{db: db, events: events}
}

// HasRole checks whether an address holds a role
func (s *AuthorityService) HasRole(ctx context.Context, address string, role models.Role) bool {
	var assignment models.RoleAssignment
	result := s.db.WithContext(ctx).
		Where("address = ? AND role = ?", address, role).
		First(&assignment)
	return result.Error == nil
}

// RequireRole returns ErrUnauthorized unless the address holds the role
func (s *AuthorityService) RequireRole(ctx context.Context, address string, role models.Role) error {
	if !s.HasRole(ctx, address, role) {
		return fmt.Errorf("%w: %s needs %s", ErrUnauthorized, address, role)
	}
	return nil
}

// GrantRole assigns a role to an address (Admin only)
func (s *AuthorityService) GrantRole(ctx context.Context, caller, address string, role models.Role) (*models.RoleAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.RequireRole(ctx, caller, models.RoleAdmin); err != nil {
		return nil, err
	}

	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	var existing models.RoleAssignment
	if err := s.db.WithContext(ctx).
		Where("address = ? AND role = ?", address, role).
		First(&existing).Error; err == nil {
		return &existing, nil
	}

	assignment := models.RoleAssignment{
		Address:   address,
		Role:      role,
		GrantedBy: caller,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}
		return s.events.Emit(tx, models.EventRoleGranted, "", caller, assignment)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Role %s granted to %s by %s", role, address, caller)
	return &assignment, nil
}

// RevokeRole removes a role from an address (Admin only)
func (s *AuthorityService) RevokeRole(ctx context.Context, caller, address string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.RequireRole(ctx, caller, models.RoleAdmin); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("address = ? AND role = ?", address, role).
			Delete(&models.RoleAssignment{})
		if result.Error != nil {
			return fmt.Errorf("failed to revoke role: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return s.events.Emit(tx, models.EventRoleRevoked, "", caller, models.JSONB{
			"address": address,
			"role":    string(role),
		})
	})
	if err != nil {
		return err
	}

	log.Printf("Role %s revoked from %s by %s", role, address, caller)
	return nil
}

// GetRoles lists all roles held by an address
func (s *AuthorityService) GetRoles(ctx context.Context, address string) ([]models.Role, error) {
	var assignments []models.RoleAssignment
	if err := s.db.WithContext(ctx).
		Where("address = ?", address).
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	roles := make([]models.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Role)
	}
	return roles, nil
}

// Bootstrap grants the admin role to an address if no admin exists yet.
// Used at startup so a fresh deployment has a usable admin.
func (s *AuthorityService) Bootstrap(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.RoleAssignment{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	assignment := models.RoleAssignment{
		Address:   address,
		Role:      models.RoleAdmin,
		GrantedBy: address,
	}
	if err := s.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	log.Printf("Bootstrapped admin role for %s", address)
	return nil
}

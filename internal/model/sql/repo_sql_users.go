package sql

import (
	"context"
	"fmt"
	"strings"

	"readaloud/internal/entity"
	"readaloud/internal/errs"
)

// CreateUser persists a new identity record.
func (r *GormRepository) CreateUser(ctx context.Context, user *entity.DbUser) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return fmt.Errorf("email is empty")
	}
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

// UpdateUser updates an existing identity record.
func (r *GormRepository) UpdateUser(ctx context.Context, id string, updates entity.UserUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("invalid user")
	}
	if updates.IsEmpty() {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbUser{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

// GetUserByID loads a user by ID.
func (r *GormRepository) GetUserByID(ctx context.Context, id string) (*entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	var user entity.DbUser
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindUsersByEmail returns every record sharing the address, oldest first.
func (r *GormRepository) FindUsersByEmail(ctx context.Context, email string) ([]entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return nil, fmt.Errorf("email is empty")
	}

	var users []entity.DbUser
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", trimmed).
		Order("created_at ASC, id ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUserRole reads only the role column.
func (r *GormRepository) GetUserRole(ctx context.Context, id string) (string, error) {
	if r == nil || r.db == nil {
		return "", fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("invalid user id")
	}
	var user entity.DbUser
	if err := r.db.WithContext(ctx).Select("id", "role").Where("id = ?", id).First(&user).Error; err != nil {
		return "", translateError(err)
	}
	return user.Role, nil
}

// ListUsers returns paginated users.
func (r *GormRepository) ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbUser{})
	var base entity.BaseParams
	if params != nil {
		base = params.BaseParams
		if trimmed := strings.TrimSpace(params.Role); trimmed != "" {
			query = query.Where("role = ?", trimmed)
		}
		if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
			kw := "%" + strings.ToLower(keyword) + "%"
			query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", kw, kw)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	page, pageSize, offset := pageWindow(base)

	var users []entity.DbUser
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, nil, err
	}

	return users, r.calculatePagination(total, page, pageSize), nil
}

// DeleteUser removes a user by ID.
func (r *GormRepository) DeleteUser(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("invalid user id")
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.DbUser{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MarkEmailVerified flags every record of the given provider and address as
// verified and reports how many rows changed.
func (r *GormRepository) MarkEmailVerified(ctx context.Context, email, provider string) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return 0, fmt.Errorf("email is empty")
	}
	result := r.db.WithContext(ctx).
		Model(&entity.DbUser{}).
		Where("LOWER(email) = ? AND provider = ? AND email_verified = ?", trimmed, provider, false).
		Update("email_verified", true)
	return result.RowsAffected, result.Error
}

package sql

import (
	"context"
	"fmt"
	"strings"

	"readaloud/internal/entity"
)

// CreateCredential stores a password sign-up. A second sign-up for the same
// address fails with errs.ErrAlreadyExists.
func (r *GormRepository) CreateCredential(ctx context.Context, credential *entity.DbCredential) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if credential == nil {
		return fmt.Errorf("credential is nil")
	}
	credential.Email = strings.ToLower(strings.TrimSpace(credential.Email))
	if credential.Email == "" {
		return fmt.Errorf("email is empty")
	}
	return translateError(r.db.WithContext(ctx).Create(credential).Error)
}

func (r *GormRepository) GetCredentialByEmail(ctx context.Context, email string) (*entity.DbCredential, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return nil, fmt.Errorf("email is empty")
	}
	var credential entity.DbCredential
	if err := r.db.WithContext(ctx).Where("email = ?", trimmed).First(&credential).Error; err != nil {
		return nil, translateError(err)
	}
	return &credential, nil
}

func (r *GormRepository) UpdateCredential(ctx context.Context, id uint, updates entity.CredentialUpdates) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid credential id")
	}
	if updates.IsEmpty() {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbCredential{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

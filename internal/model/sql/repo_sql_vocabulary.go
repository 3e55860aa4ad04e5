package sql

import (
	"context"
	"fmt"
	"strings"

	"readaloud/internal/entity"
	"readaloud/internal/errs"
)

// CreateVocabulary saves a word. A word the user already saved yields
// errs.ErrAlreadyExists.
func (r *GormRepository) CreateVocabulary(ctx context.Context, item *entity.DbVocabulary) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if item == nil {
		return fmt.Errorf("vocabulary item is nil")
	}
	if strings.TrimSpace(item.UserID) == "" || strings.TrimSpace(item.Word) == "" {
		return fmt.Errorf("user id and word are required")
	}
	return translateError(r.db.WithContext(ctx).Create(item).Error)
}

// ListVocabulary returns one user's words, newest first.
func (r *GormRepository) ListVocabulary(ctx context.Context, params *entity.VocabularyQuery) ([]entity.DbVocabulary, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	if params == nil || strings.TrimSpace(params.UserID) == "" {
		return nil, nil, fmt.Errorf("user id is required")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbVocabulary{}).Where("user_id = ?", params.UserID)
	if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
		query = query.Where("LOWER(word) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	page, pageSize, offset := pageWindow(params.BaseParams)

	var items []entity.DbVocabulary
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return items, r.calculatePagination(total, page, pageSize), nil
}

// DeleteVocabulary removes an item only if it belongs to userID.
func (r *GormRepository) DeleteVocabulary(ctx context.Context, id, userID string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(userID) == "" {
		return fmt.Errorf("id and user id are required")
	}
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&entity.DbVocabulary{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

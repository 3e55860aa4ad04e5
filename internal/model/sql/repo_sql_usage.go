package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"readaloud/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IncrementPlayCount adds one play to the (user, day) counter and returns the
// post-increment value. The upsert holds the row lock until the read, so
// concurrent callers each observe a distinct count.
func (r *GormRepository) IncrementPlayCount(ctx context.Context, userID, day string) (int, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(day) == "" {
		return 0, fmt.Errorf("user id and day are required")
	}

	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		row := entity.DbUsageCounter{UserID: userID, UsageDate: day, PlayCount: 1, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "usage_date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"play_count": gorm.Expr(r.playCountColumn() + " + 1"),
				"updated_at": now,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return r.readPlayCount(tx, userID, day, &count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementPlayCountWithin increments only while the stored count is below
// ceiling. It returns the resulting count and whether the play was accepted.
func (r *GormRepository) IncrementPlayCountWithin(ctx context.Context, userID, day string, ceiling int) (int, bool, error) {
	if r == nil || r.db == nil {
		return 0, false, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(day) == "" {
		return 0, false, fmt.Errorf("user id and day are required")
	}

	var (
		count    int
		accepted bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seed := entity.DbUsageCounter{UserID: userID, UsageDate: day, PlayCount: 0, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		result := tx.Model(&entity.DbUsageCounter{}).
			Where("user_id = ? AND usage_date = ? AND play_count < ?", userID, day, ceiling).
			Updates(map[string]interface{}{
				"play_count": gorm.Expr("play_count + 1"),
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		accepted = result.RowsAffected > 0
		return r.readPlayCount(tx, userID, day, &count)
	})
	if err != nil {
		return 0, false, err
	}
	return count, accepted, nil
}

// GetPlayCount returns the stored count, zero when no row exists yet.
func (r *GormRepository) GetPlayCount(ctx context.Context, userID, day string) (int, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	var count int
	err := r.readPlayCount(r.db.WithContext(ctx), userID, day, &count)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return count, err
}

func (r *GormRepository) readPlayCount(tx *gorm.DB, userID, day string, out *int) error {
	var row entity.DbUsageCounter
	if err := tx.Select("play_count").
		Where("user_id = ? AND usage_date = ?", userID, day).
		First(&row).Error; err != nil {
		return err
	}
	*out = row.PlayCount
	return nil
}

// playCountColumn 返回 upsert 更新表达式中引用旧值的列名
func (r *GormRepository) playCountColumn() string {
	switch r.dialect() {
	case "postgres":
		return "user_usage.play_count"
	default:
		return "play_count"
	}
}

// ListUsage returns the per-day counters of one user, most recent day first.
func (r *GormRepository) ListUsage(ctx context.Context, params *entity.UsageQuery) ([]entity.DbUsageCounter, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}
	if params == nil || strings.TrimSpace(params.UserID) == "" {
		return nil, nil, fmt.Errorf("user id is required")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbUsageCounter{}).Where("user_id = ?", params.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	page, pageSize, offset := pageWindow(params.BaseParams)

	var records []entity.DbUsageCounter
	if err := query.Order("usage_date DESC").Offset(offset).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, nil, err
	}
	return records, r.calculatePagination(total, page, pageSize), nil
}

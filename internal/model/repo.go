package model

import (
	"context"

	"readaloud/internal/entity"
	"readaloud/internal/quota"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 身份记录
	CreateUser(ctx context.Context, user *entity.DbUser) error
	UpdateUser(ctx context.Context, id string, updates entity.UserUpdates) error
	GetUserByID(ctx context.Context, id string) (*entity.DbUser, error)
	FindUsersByEmail(ctx context.Context, email string) ([]entity.DbUser, error)
	GetUserRole(ctx context.Context, id string) (string, error)
	ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error)
	DeleteUser(ctx context.Context, id string) error
	MarkEmailVerified(ctx context.Context, email, provider string) (int64, error)

	// 密码凭证
	CreateCredential(ctx context.Context, credential *entity.DbCredential) error
	GetCredentialByEmail(ctx context.Context, email string) (*entity.DbCredential, error)
	UpdateCredential(ctx context.Context, id uint, updates entity.CredentialUpdates) error

	// 每日播放计数
	quota.Counter
	ListUsage(ctx context.Context, params *entity.UsageQuery) ([]entity.DbUsageCounter, *entity.Meta, error)

	// 生词本
	CreateVocabulary(ctx context.Context, item *entity.DbVocabulary) error
	ListVocabulary(ctx context.Context, params *entity.VocabularyQuery) ([]entity.DbVocabulary, *entity.Meta, error)
	DeleteVocabulary(ctx context.Context, id, userID string) error
}

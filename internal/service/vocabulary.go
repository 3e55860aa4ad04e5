package service

import (
	"context"
	"errors"
	"strings"

	"readaloud/internal/entity"
	"readaloud/internal/model"
)

// ErrWordRequired is returned for an empty word.
var ErrWordRequired = errors.New("word is required")

// VocabularyService manages a user's saved words.
type VocabularyService struct {
	repo model.Repository
}

func NewVocabularyService(repo model.Repository) *VocabularyService {
	return &VocabularyService{repo: repo}
}

// Add saves a word for userID. Saving the same word twice returns
// errs.ErrAlreadyExists.
func (s *VocabularyService) Add(ctx context.Context, userID string, req entity.VocabularyCreateRequest) (*entity.DbVocabulary, error) {
	word := strings.TrimSpace(req.Word)
	if word == "" {
		return nil, ErrWordRequired
	}
	item := &entity.DbVocabulary{
		UserID:         userID,
		Word:           word,
		MeaningEnglish: strings.TrimSpace(req.MeaningEnglish),
		MeaningChinese: strings.TrimSpace(req.MeaningChinese),
		Example:        strings.TrimSpace(req.Example),
	}
	if err := s.repo.CreateVocabulary(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *VocabularyService) List(ctx context.Context, params *entity.VocabularyQuery) ([]entity.DbVocabulary, *entity.Meta, error) {
	return s.repo.ListVocabulary(ctx, params)
}

// Delete removes id only when it belongs to userID.
func (s *VocabularyService) Delete(ctx context.Context, id, userID string) error {
	return s.repo.DeleteVocabulary(ctx, id, userID)
}

package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DbVocabulary is a saved word. Items are never updated in place.
type DbVocabulary struct {
	ID             string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	UserID         string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_vocabulary_user_word" json:"userId"`
	Word           string    `gorm:"column:word;type:varchar(255);not null;uniqueIndex:idx_vocabulary_user_word" json:"word"`
	MeaningEnglish string    `gorm:"column:meaning_english;type:text" json:"meaningEnglish"`
	MeaningChinese string    `gorm:"column:meaning_chinese;type:text" json:"meaningChinese"`
	Example        string    `gorm:"column:example;type:text" json:"example"`
}

func (DbVocabulary) TableName() string {
	return "vocabulary"
}

func (v *DbVocabulary) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(v.ID) == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

type VocabularyCreateRequest struct {
	Word           string `json:"word"`
	MeaningEnglish string `json:"meaningEnglish"`
	MeaningChinese string `json:"meaningChinese"`
	Example        string `json:"example"`
}

type VocabularyQuery struct {
	BaseParams
	UserID  string `json:"-"`
	Keyword string `json:"keyword" form:"keyword" query:"keyword"`
}

type VocabularyListResponse struct {
	Items []DbVocabulary `json:"items"`
	Meta  *Meta          `json:"meta"`
}

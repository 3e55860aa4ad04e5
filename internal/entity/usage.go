package entity

import "time"

// UsageDateLayout formats the UTC calendar day a counter row belongs to.
const UsageDateLayout = "2006-01-02"

// DbUsageCounter tracks synthesis calls per user per UTC day. Rows from past
// days are kept; a new day simply starts a new row.
type DbUsageCounter struct {
	UserID    string    `gorm:"column:user_id;type:varchar(36);primaryKey" json:"user_id"`
	UsageDate string    `gorm:"column:usage_date;type:varchar(10);primaryKey" json:"usage_date"`
	PlayCount int       `gorm:"column:play_count;not null;default:0" json:"play_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DbUsageCounter) TableName() string {
	return "user_usage"
}

// UsageDay returns the counter key for the instant t.
func UsageDay(t time.Time) string {
	return t.UTC().Format(UsageDateLayout)
}

type TTSRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
	SSML  bool   `json:"ssml"`
	Speed string `json:"speed"`
}

type TTSResponse struct {
	URL       string `json:"url"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

type RemainingPlaysResponse struct {
	RemainingPlays int `json:"remainingPlays"`
	Limit          int `json:"limit,omitempty"`
}

// UsageQuery lists one user's daily counters.
type UsageQuery struct {
	BaseParams
	UserID string `json:"-"`
}

type UsageListResponse struct {
	Records []DbUsageCounter `json:"records"`
	Meta    *Meta            `json:"meta"`
}

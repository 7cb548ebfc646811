package models

import (
	"time"

	"github.com/reraeasy/quotation-engine/pkg/enums"
)

// DisplayPreference remembers how a user last chose to render a quotation summary.
type DisplayPreference struct {
	UserID      string            `gorm:"column:user_id;type:text;primaryKey"`
	QuotationID string            `gorm:"column:quotation_id;type:text;primaryKey"`
	DisplayMode enums.DisplayMode `gorm:"column:display_mode;type:text;not null;default:bifurcated"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (DisplayPreference) TableName() string { return "display_preferences" }

package preferences

import (
	"context"
	"errors"
	"time"

	"github.com/reraeasy/quotation-engine/pkg/db/models"
	"github.com/reraeasy/quotation-engine/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes persistence helpers for display preferences.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, userID, quotationID string) (*models.DisplayPreference, error)
	Upsert(ctx context.Context, userID, quotationID string, mode enums.DisplayMode, now time.Time) (*models.DisplayPreference, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a preferences repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Find returns nil without error when the user never chose a mode for the quotation.
func (r *repositoryImpl) Find(ctx context.Context, userID, quotationID string) (*models.DisplayPreference, error) {
	var pref models.DisplayPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quotation_id = ?", userID, quotationID).
		Take(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *repositoryImpl) Upsert(ctx context.Context, userID, quotationID string, mode enums.DisplayMode, now time.Time) (*models.DisplayPreference, error) {
	pref := &models.DisplayPreference{
		UserID:      userID,
		QuotationID: quotationID,
		DisplayMode: mode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "quotation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_mode", "updated_at"}),
	}).Create(pref).Error
	if err != nil {
		return nil, err
	}
	return pref, nil
}

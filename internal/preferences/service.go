package preferences

import (
	"context"
	"strings"
	"time"

	"github.com/reraeasy/quotation-engine/pkg/enums"
	pkgerrors "github.com/reraeasy/quotation-engine/pkg/errors"
	"github.com/reraeasy/quotation-engine/pkg/logger"
)

// Service resolves which display mode a user sees for a quotation.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Resolve picks, in order: an explicit request value, the user's stored preference, the mode
// saved on the quotation record, then the default. A failing store degrades to the next
// source.
func (s *Service) Resolve(ctx context.Context, userID, quotationID string, requested, recorded enums.DisplayMode) enums.DisplayMode {
	if requested.IsValid() {
		return requested
	}
	if s != nil && s.repo != nil && userID != "" {
		pref, err := s.repo.Find(ctx, userID, quotationID)
		switch {
		case err != nil:
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "preferences.lookup_failed")
			}
		case pref != nil && pref.DisplayMode.IsValid():
			return pref.DisplayMode
		}
	}
	if recorded.IsValid() {
		return recorded
	}
	return enums.DefaultDisplayMode
}

// Set stores the user's choice for the quotation.
func (s *Service) Set(ctx context.Context, userID, quotationID string, mode enums.DisplayMode) (enums.DisplayMode, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(quotationID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user and quotation are required")
	}
	if !mode.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid display mode").
			WithDetails(map[string]any{"displayMode": mode})
	}
	pref, err := s.repo.Upsert(ctx, userID, quotationID, mode, s.now().UTC())
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save display preference")
	}
	return pref.DisplayMode, nil
}

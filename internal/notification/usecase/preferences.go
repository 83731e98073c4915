package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

type (
	PreferenceInput struct {
		Channel       string   `validate:"required,channel"`
		Enabled       bool     `validate:"-"`
		LookaheadDays int      `validate:"min=1,max=90"`
		CompanyIDs    []int64  `validate:"max=50,dive,gt=0"`
		Sectors       []string `validate:"max=50,dive,notblank,max=100"`
	}

	UpdatePreferencesInput struct {
		Preferences []PreferenceInput `validate:"required,min=1,max=4,dive"`
	}
)

func (s *Usecase) ListPreferences(ctx context.Context) ([]entity.Preference, error) {
	ctx, span := s.startSpan(ctx, "ListPreferences")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	prefs, err := s.repoDB.ListUserPreferences(ctx, clm.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list user preferences", "user_id", clm.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return prefs, nil
}

// UpdatePreferences upserts one row per channel; the last entry for a channel wins.
func (s *Usecase) UpdatePreferences(ctx context.Context, in UpdatePreferencesInput) error {
	ctx, span := s.startSpan(ctx, "UpdatePreferences")
	defer span.End()

	for i := range in.Preferences {
		in.Preferences[i].Channel = strings.ToLower(strings.TrimSpace(in.Preferences[i].Channel))
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	byChannel := make(map[entity.Channel]entity.UpsertPreference, len(in.Preferences))
	for _, p := range in.Preferences {
		ch := entity.ChannelFromString(p.Channel)
		byChannel[ch] = entity.UpsertPreference{
			UserID:        clm.UserID,
			Channel:       ch,
			Enabled:       p.Enabled,
			LookaheadDays: p.LookaheadDays,
			CompanyIDs:    lo.Uniq(p.CompanyIDs),
			Sectors:       lo.Uniq(lo.Map(p.Sectors, func(v string, _ int) string { return strings.TrimSpace(v) })),
		}
	}

	prefs := make([]entity.UpsertPreference, 0, len(byChannel))
	for _, ch := range entity.Channels() {
		if p, ok := byChannel[ch]; ok {
			prefs = append(prefs, p)
		}
	}

	if err := s.repoDB.UpsertPreferences(ctx, prefs); err != nil {
		slog.ErrorContext(ctx, "failed to repo upsert preferences", "user_id", clm.UserID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

package db

import (
	"context"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
)

func (s *DB) UpsertPreferences(ctx context.Context, prefs []entity.UpsertPreference) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertPreferences")
	defer func() { s.endSpan(span, err) }()

	if len(prefs) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return s.mapError(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := s.clock.Now()
	for _, p := range prefs {
		companyIDs := p.CompanyIDs
		if companyIDs == nil {
			companyIDs = []int64{}
		}
		sectors := p.Sectors
		if sectors == nil {
			sectors = []string{}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO notification_preferences (user_id, channel, enabled, lookahead_days, company_ids, sectors, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, channel) DO UPDATE
			SET enabled = EXCLUDED.enabled,
				lookahead_days = EXCLUDED.lookahead_days,
				company_ids = EXCLUDED.company_ids,
				sectors = EXCLUDED.sectors,
				updated_at = EXCLUDED.updated_at`,
			p.UserID, int16(p.Channel), p.Enabled, p.LookaheadDays, companyIDs, sectors, now,
		)
		if err != nil {
			return s.mapError(err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

func (s *DB) UpdateDesktopPermission(ctx context.Context, userID int64, perm entity.DesktopPermission) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateDesktopPermission")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO notification_recipients (user_id, desktop_permission, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET desktop_permission = EXCLUDED.desktop_permission, updated_at = EXCLUDED.updated_at`,
		userID, string(perm), s.clock.Now(),
	)
	return s.mapError(err)
}

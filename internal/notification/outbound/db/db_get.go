package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
)

const selectPreferences = `
SELECT p.user_id, p.channel, p.enabled, p.lookahead_days, p.sectors, p.updated_at,
	COALESCE(array_agg(pc.id ORDER BY pc.ord) FILTER (WHERE pc.id IS NOT NULL), '{}') AS company_ids,
	COALESCE(array_agg(COALESCE(c.name, '') ORDER BY pc.ord) FILTER (WHERE pc.id IS NOT NULL), '{}') AS company_names
FROM notification_preferences p
LEFT JOIN LATERAL unnest(p.company_ids) WITH ORDINALITY AS pc(id, ord) ON TRUE
LEFT JOIN companies c ON c.id = pc.id
`

const selectAttempts = `
SELECT id, user_id, channel, event_id, status, message_id, error, created_at
FROM notification_attempts
`

// FetchUpcoming returns events starting between now and now+daysAhead, soonest first.
func (s *DB) FetchUpcoming(ctx context.Context, daysAhead int) (_ []entity.Event, err error) {
	ctx, span := s.startSpan(ctx, "FetchUpcoming")
	defer func() { s.endSpan(span, err) }()

	now := s.clock.Now()
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, category, company_id, company_name, sector, sub_sector,
			start_at, end_at, location, description
		FROM ir_events
		WHERE start_at >= $1 AND start_at <= $2
		ORDER BY start_at, id`,
		now, now.AddDate(0, 0, daysAhead),
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Event, error) {
		var (
			e         entity.Event
			category  string
			companyID pgtype.Int8
			endAt     pgtype.Timestamptz
		)
		err := row.Scan(&e.ID, &e.Name, &category, &companyID, &e.CompanyName, &e.Sector, &e.SubSector,
			&e.StartAt, &endAt, &e.Location, &e.Description)
		if err != nil {
			return e, err
		}

		e.Category = entity.EventCategory(category)
		if companyID.Valid {
			e.CompanyID = &companyID.Int64
		}
		if endAt.Valid {
			e.EndAt = &endAt.Time
		}
		return e, nil
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return events, nil
}

func (s *DB) ListEnabledPreferences(ctx context.Context) (_ []entity.Preference, err error) {
	ctx, span := s.startSpan(ctx, "ListEnabledPreferences")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, selectPreferences+`
		WHERE p.enabled
		GROUP BY p.user_id, p.channel`)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanPreference)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func (s *DB) ListUserPreferences(ctx context.Context, userID int64) (_ []entity.Preference, err error) {
	ctx, span := s.startSpan(ctx, "ListUserPreferences")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, selectPreferences+`
		WHERE p.user_id = $1
		GROUP BY p.user_id, p.channel
		ORDER BY p.channel`, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanPreference)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func scanPreference(row pgx.CollectableRow) (entity.Preference, error) {
	var (
		p       entity.Preference
		channel int16
		ids     []int64
		names   []string
	)
	err := row.Scan(&p.UserID, &channel, &p.Enabled, &p.LookaheadDays, &p.Sectors, &p.UpdatedAt, &ids, &names)
	if err != nil {
		return p, err
	}

	p.Channel = entity.Channel(channel)
	p.Companies = make([]entity.Company, 0, len(ids))
	for i, id := range ids {
		c := entity.Company{ID: id}
		if i < len(names) {
			c.Name = names[i]
		}
		p.Companies = append(p.Companies, c)
	}

	return p, nil
}

func (s *DB) HasSentSince(ctx context.Context, userID int64, ch entity.Channel, since time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "HasSentSince")
	defer func() { s.endSpan(span, err) }()

	var exists bool
	err = s.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_attempts
			WHERE user_id = $1 AND channel = $2 AND status = $3 AND created_at >= $4
		)`,
		userID, int16(ch), int16(entity.AttemptStatusSent), since,
	).Scan(&exists)
	if err != nil {
		return false, s.mapError(err)
	}

	return exists, nil
}

func (s *DB) QueryAttempts(ctx context.Context, userID int64, ch entity.Channel, since time.Time) (_ []entity.Attempt, err error) {
	ctx, span := s.startSpan(ctx, "QueryAttempts")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, selectAttempts+`
		WHERE user_id = $1 AND channel = $2 AND created_at >= $3
		ORDER BY created_at, id`,
		userID, int16(ch), since,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanAttempt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func (s *DB) ListEventAttempts(ctx context.Context, userID, eventID int64) (_ []entity.Attempt, err error) {
	ctx, span := s.startSpan(ctx, "ListEventAttempts")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, selectAttempts+`
		WHERE user_id = $1 AND event_id = $2
		ORDER BY created_at, id`,
		userID, eventID,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := pgx.CollectRows(rows, scanAttempt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func scanAttempt(row pgx.CollectableRow) (entity.Attempt, error) {
	var (
		a         entity.Attempt
		channel   int16
		status    int16
		messageID pgtype.Text
		errText   pgtype.Text
	)
	err := row.Scan(&a.ID, &a.UserID, &channel, &a.EventID, &status, &messageID, &errText, &a.CreatedAt)
	if err != nil {
		return a, err
	}

	a.Channel = entity.Channel(channel)
	a.Status = entity.AttemptStatus(status)
	a.MessageID = messageID.String
	a.Error = errText.String
	return a, nil
}

func (s *DB) GetRecipient(ctx context.Context, userID int64) (_ *entity.Recipient, err error) {
	ctx, span := s.startSpan(ctx, "GetRecipient")
	defer func() { s.endSpan(span, err) }()

	var (
		r    entity.Recipient
		perm string
	)
	err = s.conn.QueryRow(ctx, `
		SELECT r.user_id, r.full_name, r.email, r.phone, r.timezone, r.desktop_permission,
			COALESCE((
				SELECT array_agg(d.device_token ORDER BY d.created_at)
				FROM notification_user_devices d
				WHERE d.user_id = r.user_id
			), '{}')
		FROM notification_recipients r
		WHERE r.user_id = $1`, userID,
	).Scan(&r.UserID, &r.FullName, &r.Email, &r.Phone, &r.Timezone, &perm, &r.DeviceTokens)
	if err != nil {
		return nil, s.mapError(err)
	}

	r.DesktopPermission = entity.DesktopPermissionFromString(perm)
	return &r, nil
}

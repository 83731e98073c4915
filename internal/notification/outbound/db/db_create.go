package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
)

// RecordAttempts writes one row per event id in a single transaction. All rows
// share the outcome and creation time.
func (s *DB) RecordAttempts(ctx context.Context, in entity.RecordAttempt) (err error) {
	ctx, span := s.startSpan(ctx, "RecordAttempts")
	defer func() { s.endSpan(span, err) }()

	if len(in.EventIDs) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return s.mapError(err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	now := s.clock.Now()
	batch := &pgx.Batch{}
	for _, eventID := range in.EventIDs {
		batch.Queue(`
			INSERT INTO notification_attempts (id, user_id, channel, event_id, status, message_id, error, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.uid.Generate(), in.UserID, int16(in.Channel), eventID, int16(in.Status),
			optionalText(in.MessageID), optionalText(in.Error), now,
		)
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}

// RegisterUserDevice binds a push token to the user; a token seen before moves to the new owner.
func (s *DB) RegisterUserDevice(ctx context.Context, userID int64, deviceToken, platform string) (err error) {
	ctx, span := s.startSpan(ctx, "RegisterUserDevice")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO notification_user_devices (device_token, user_id, platform, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, created_at = EXCLUDED.created_at`,
		deviceToken, userID, platform, s.clock.Now(),
	)
	return s.mapError(err)
}

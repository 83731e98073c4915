package db

import (
	"context"

	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

func (s *DB) RemoveUserDevice(ctx context.Context, userID int64, deviceToken string) (err error) {
	ctx, span := s.startSpan(ctx, "RemoveUserDevice")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		DELETE FROM notification_user_devices
		WHERE user_id = $1 AND device_token = $2`,
		userID, deviceToken,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

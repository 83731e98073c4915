package db

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*DB, *pgxpool.Pool, *clock.Fixed) {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}

	ctr, err := tcpostgres.Run(t.Context(), "postgres:16-alpine",
		tcpostgres.WithDatabase("irnotify"),
		tcpostgres.WithUsername("irnotify"),
		tcpostgres.WithPassword("irnotify"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(t.Context(), "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(t.Context(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(t.Context(), Schema)
	require.NoError(t, err)

	sf, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	clk := clock.NewFixed(now)
	return NewDB(pool, sf, clk, instrument.NewNoop()), pool, clk
}

func TestDB(t *testing.T) {
	s, pool, clk := newTestDB(t)
	ctx := t.Context()

	_, err := pool.Exec(ctx, `
		INSERT INTO companies (id, name) VALUES (1, 'Acme Corp'), (2, 'Globex');
		INSERT INTO ir_events (id, name, category, company_id, company_name, sector, start_at, end_at) VALUES
			(10, 'Past call', 'earnings_call', 1, 'Acme Corp', 'Energy', '2026-10-18 08:00:00+00', NULL),
			(11, 'Q3 call', 'earnings_call', 1, 'Acme Corp', 'Energy', '2026-10-19 09:00:00+00', '2026-10-19 10:00:00+00'),
			(12, 'AGM', 'investor_meeting', NULL, 'Globex Holdings', 'Retail', '2026-10-18 12:00:00+00', NULL),
			(13, 'Far roadshow', 'roadshow', 2, 'Globex', 'Retail', '2026-10-23 09:00:00+00', NULL);
		INSERT INTO notification_recipients (user_id, full_name, email, phone, timezone, desktop_permission)
		VALUES (7, 'Dana Ho', 'dana@example.com', '+6281200000000', 'Asia/Jakarta', 'granted');
	`)
	require.NoError(t, err)

	t.Run("fetch upcoming", func(t *testing.T) {
		events, err := s.FetchUpcoming(ctx, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, int64(12), events[0].ID)
		assert.Nil(t, events[0].CompanyID)
		assert.Nil(t, events[0].EndAt)
		assert.Equal(t, entity.EventCategoryInvestorMeeting, events[0].Category)

		assert.Equal(t, int64(11), events[1].ID)
		require.NotNil(t, events[1].CompanyID)
		assert.Equal(t, int64(1), *events[1].CompanyID)
		require.NotNil(t, events[1].EndAt)
	})

	t.Run("preferences", func(t *testing.T) {
		err := s.UpsertPreferences(ctx, []entity.UpsertPreference{
			{UserID: 7, Channel: entity.ChannelEmail, Enabled: true, LookaheadDays: 2, CompanyIDs: []int64{2, 1, 99}},
			{UserID: 7, Channel: entity.ChannelSMS, Enabled: false, LookaheadDays: 1},
			{UserID: 8, Channel: entity.ChannelMobile, Enabled: true, LookaheadDays: 5, Sectors: []string{"Retail"}},
		})
		require.NoError(t, err)

		enabled, err := s.ListEnabledPreferences(ctx)
		require.NoError(t, err)
		require.Len(t, enabled, 2)

		mine, err := s.ListUserPreferences(ctx, 7)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, entity.ChannelEmail, mine[0].Channel)
		assert.Equal(t, []entity.Company{
			{ID: 2, Name: "Globex"},
			{ID: 1, Name: "Acme Corp"},
			{ID: 99, Name: ""},
		}, mine[0].Companies)
		assert.Equal(t, now, mine[0].UpdatedAt.UTC())
		assert.False(t, mine[1].Enabled)
		assert.Empty(t, mine[1].Companies)

		// last write wins
		require.NoError(t, s.UpsertPreferences(ctx, []entity.UpsertPreference{
			{UserID: 7, Channel: entity.ChannelEmail, Enabled: false, LookaheadDays: 3},
		}))
		mine, err = s.ListUserPreferences(ctx, 7)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.False(t, mine[0].Enabled)
		assert.Equal(t, 3, mine[0].LookaheadDays)
	})

	t.Run("attempts", func(t *testing.T) {
		err := s.RecordAttempts(ctx, entity.RecordAttempt{
			UserID: 7, Channel: entity.ChannelEmail, EventIDs: []int64{11, 12, 13},
			Status: entity.AttemptStatusSent, MessageID: "m-1",
		})
		require.NoError(t, err)

		clk.Advance(time.Minute)
		err = s.RecordAttempts(ctx, entity.RecordAttempt{
			UserID: 7, Channel: entity.ChannelSMS, EventIDs: []int64{11},
			Status: entity.AttemptStatusFailed, Error: "provider failure: status 500",
		})
		require.NoError(t, err)

		items, err := s.QueryAttempts(ctx, 7, entity.ChannelEmail, now.Add(-time.Hour))
		require.NoError(t, err)
		require.Len(t, items, 3)
		for _, a := range items {
			assert.Equal(t, entity.AttemptStatusSent, a.Status)
			assert.Equal(t, "m-1", a.MessageID)
			assert.Empty(t, a.Error)
			assert.Equal(t, now, a.CreatedAt.UTC())
		}

		sent, err := s.HasSentSince(ctx, 7, entity.ChannelEmail, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.True(t, sent)

		sent, err = s.HasSentSince(ctx, 7, entity.ChannelEmail, now.Add(time.Second))
		require.NoError(t, err)
		assert.False(t, sent)

		sent, err = s.HasSentSince(ctx, 7, entity.ChannelSMS, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.False(t, sent, "failed rows never suppress")

		history, err := s.ListEventAttempts(ctx, 7, 11)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, entity.ChannelSMS, history[1].Channel)
		assert.Equal(t, "provider failure: status 500", history[1].Error)
	})

	t.Run("recipient and devices", func(t *testing.T) {
		require.NoError(t, s.RegisterUserDevice(ctx, 7, "tok-a", "android"))
		clk.Advance(time.Second)
		require.NoError(t, s.RegisterUserDevice(ctx, 7, "tok-b", "ios"))

		rcp, err := s.GetRecipient(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "dana@example.com", rcp.Email)
		assert.Equal(t, entity.DesktopPermissionGranted, rcp.DesktopPermission)
		assert.Equal(t, []string{"tok-a", "tok-b"}, rcp.DeviceTokens)

		require.NoError(t, s.RemoveUserDevice(ctx, 7, "tok-a"))
		require.ErrorIs(t, s.RemoveUserDevice(ctx, 7, "tok-a"), goerror.ErrNotFound)

		require.NoError(t, s.UpdateDesktopPermission(ctx, 7, entity.DesktopPermissionDenied))
		rcp, err = s.GetRecipient(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, entity.DesktopPermissionDenied, rcp.DesktopPermission)
		assert.Equal(t, []string{"tok-b"}, rcp.DeviceTokens)

		_, err = s.GetRecipient(ctx, 404)
		require.ErrorIs(t, err, goerror.ErrNotFound)
	})
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/runlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

const day = 24 * time.Hour

func emailPref(userID int64, days int) entity.Preference {
	return entity.Preference{UserID: userID, Channel: entity.ChannelEmail, Enabled: true, LookaheadDays: days}
}

func TestRunCycle_EmailLookaheadAndDedup(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(testNow)
	repo := newFakeRepo(clk)
	repo.events = []entity.Event{
		{ID: 11, Name: "Q3 Earnings Call", CompanyName: "Acme Corp", StartAt: testNow.Add(1 * day)},
		{ID: 12, Name: "Investor Day", CompanyName: "Acme Corp", StartAt: testNow.Add(5 * day)},
	}
	repo.prefs = []entity.Preference{emailPref(1, 2)}
	repo.recipients[1] = entity.Recipient{UserID: 1, Email: "analyst@example.com"}

	email := newFakeDispatcher(entity.ChannelEmail)
	uc := newTestUsecase(t, repo, email)

	report, err := uc.RunCycle(t.Context(), entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Pairs)
	assert.Equal(t, int64(1), report.Sent)
	assert.Equal(t, int64(1), report.LoggedAttempts)

	payloads := email.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, []int64{11}, payloads[0].EventIDs)

	attempts := repo.allAttempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, int64(11), attempts[0].EventID)
	assert.Equal(t, entity.AttemptStatusSent, attempts[0].Status)
	assert.Equal(t, "msg-1", attempts[0].MessageID)

	report, err = uc.RunCycle(t.Context(), entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.SkippedDedup)
	assert.Equal(t, int64(0), report.Sent)
	assert.Len(t, repo.allAttempts(), 1)
	assert.Len(t, email.payloads(), 1)
}

func TestRunCycle_DedupWindowExpires(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(testNow)
	repo := newFakeRepo(clk)
	repo.events = []entity.Event{
		{ID: 1, StartAt: testNow.Add(9 * day)},
		{ID: 2, StartAt: testNow.Add(11 * day)},
	}
	repo.prefs = []entity.Preference{emailPref(1, 2)}
	repo.recipients[1] = entity.Recipient{UserID: 1, Email: "analyst@example.com"}

	email := newFakeDispatcher(entity.ChannelEmail)
	uc := newTestUsecase(t, repo, email)

	clk.Set(testNow.Add(8 * day))
	_, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
	require.NoError(t, err)

	clk.Advance(1 * day)
	report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.SkippedDedup)

	clk.Advance(1*day + time.Minute)
	report, err = uc.RunCycle(t.Context(), entity.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Sent)

	payloads := email.payloads()
	require.Len(t, payloads, 2)
	assert.Equal(t, []int64{1}, payloads[0].EventIDs)
	assert.Equal(t, []int64{2}, payloads[1].EventIDs)
	assert.Len(t, repo.allAttempts(), 2)
}

func TestRunCycle_BatchExpandsToOneRowPerEvent(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(testNow)
	repo := newFakeRepo(clk)
	repo.events = []entity.Event{
		{ID: 1, StartAt: testNow.Add(1 * time.Hour)},
		{ID: 2, StartAt: testNow.Add(2 * time.Hour)},
		{ID: 3, StartAt: testNow.Add(3 * time.Hour)},
	}
	repo.prefs = []entity.Preference{emailPref(7, 1)}
	repo.recipients[7] = entity.Recipient{UserID: 7, Email: "analyst@example.com"}

	uc := newTestUsecase(t, repo, newFakeDispatcher(entity.ChannelEmail))

	_, err := uc.RunCycle(t.Context(), entity.TriggerManual)
	require.NoError(t, err)

	attempts := repo.allAttempts()
	require.Len(t, attempts, 3)
	for i, a := range attempts {
		assert.Equal(t, int64(i+1), a.EventID)
		assert.Equal(t, entity.AttemptStatusSent, a.Status)
		assert.Equal(t, "msg-7", a.MessageID)
		assert.Equal(t, testNow, a.CreatedAt)
	}
}

func TestRunCycle_FailureIsIsolated(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(testNow)
	repo := newFakeRepo(clk)
	repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}}
	repo.prefs = []entity.Preference{emailPref(1, 3), emailPref(2, 3)}
	repo.recipients[1] = entity.Recipient{UserID: 1, Email: "a@example.com"}
	repo.recipients[2] = entity.Recipient{UserID: 2, Email: "b@example.com"}

	email := newFakeDispatcher(entity.ChannelEmail)
	email.outcome = func(p entity.Payload) entity.Outcome {
		if p.UserID == 1 {
			return entity.Failed(fmt.Errorf("%w: status 502", entity.ErrProvider))
		}
		return entity.Delivered("ok")
	}
	uc := newTestUsecase(t, repo, email)

	report, err := uc.RunCycle(t.Context(), entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Sent)
	assert.Equal(t, int64(1), report.Failed)

	byUser := map[int64]entity.Attempt{}
	for _, a := range repo.allAttempts() {
		byUser[a.UserID] = a
	}
	require.Len(t, byUser, 2)
	assert.Equal(t, entity.AttemptStatusFailed, byUser[1].Status)
	assert.Equal(t, "provider failure: status 502", byUser[1].Error)
	assert.Equal(t, entity.AttemptStatusSent, byUser[2].Status)
}

func TestRunCycle_SkipsWithoutLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(repo *fakeRepo, d *fakeDispatcher)
		assert func(t *testing.T, r *entity.CycleReport)
	}{
		{
			name: "event source unavailable",
			setup: func(repo *fakeRepo, _ *fakeDispatcher) {
				repo.fetchErr = errors.New("connection refused")
			},
			assert: func(t *testing.T, r *entity.CycleReport) {
				assert.Equal(t, int64(1), r.SkippedTransport)
			},
		},
		{
			name: "no relevant events",
			setup: func(repo *fakeRepo, _ *fakeDispatcher) {
				repo.prefs[0].Sectors = []string{"Utilities"}
			},
			assert: func(t *testing.T, r *entity.CycleReport) {
				assert.Equal(t, int64(1), r.SkippedEmpty)
			},
		},
		{
			name: "notification log unavailable for dedup",
			setup: func(repo *fakeRepo, _ *fakeDispatcher) {
				repo.dedupErr = errors.New("timeout")
			},
			assert: func(t *testing.T, r *entity.CycleReport) {
				assert.Equal(t, int64(1), r.SkippedTransport)
			},
		},
		{
			name: "recipient directory unavailable",
			setup: func(repo *fakeRepo, _ *fakeDispatcher) {
				repo.recipientErr = errors.New("connection reset")
			},
			assert: func(t *testing.T, r *entity.CycleReport) {
				assert.Equal(t, int64(1), r.SkippedTransport)
			},
		},
		{
			name: "permission denied is soft",
			setup: func(_ *fakeRepo, d *fakeDispatcher) {
				d.outcome = func(entity.Payload) entity.Outcome {
					return entity.Failed(entity.ErrPermission)
				}
			},
			assert: func(t *testing.T, r *entity.CycleReport) {
				assert.Equal(t, int64(1), r.SkippedPermission)
				assert.Equal(t, int64(0), r.Failed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeRepo(clock.NewFixed(testNow))
			repo.events = []entity.Event{{ID: 1, Sector: "Energy", StartAt: testNow.Add(day)}}
			repo.prefs = []entity.Preference{emailPref(1, 2)}
			repo.recipients[1] = entity.Recipient{UserID: 1, Email: "a@example.com"}

			d := newFakeDispatcher(entity.ChannelEmail)
			tt.setup(repo, d)
			uc := newTestUsecase(t, repo, d)

			report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
			require.NoError(t, err)
			tt.assert(t, report)
			assert.Empty(t, repo.allAttempts())
		})
	}
}

func TestRunCycle_ConfigurationFailuresAreLogged(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}}
	repo.prefs = []entity.Preference{
		emailPref(1, 2),
		{UserID: 2, Channel: entity.ChannelSMS, Enabled: true, LookaheadDays: 2},
	}
	repo.recipients[2] = entity.Recipient{UserID: 2, Phone: "+6281234"}

	uc := newTestUsecase(t, repo, newFakeDispatcher(entity.ChannelEmail))

	report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Failed)

	attempts := repo.allAttempts()
	require.Len(t, attempts, 2)
	for _, a := range attempts {
		assert.Equal(t, entity.AttemptStatusFailed, a.Status)
		assert.Contains(t, a.Error, "configuration failure")
	}
}

func TestRunCycle_LogWriteFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}}
	repo.prefs = []entity.Preference{emailPref(1, 2), emailPref(2, 2)}
	repo.recipients[1] = entity.Recipient{UserID: 1, Email: "a@example.com"}
	repo.recipients[2] = entity.Recipient{UserID: 2, Email: "b@example.com"}
	repo.recordErr = errors.New("disk full")

	email := newFakeDispatcher(entity.ChannelEmail)
	uc := newTestUsecase(t, repo, email)

	report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Sent)
	assert.Equal(t, int64(2), report.LogFailures)
	assert.Len(t, email.payloads(), 2)
}

func TestRunCycle_CanceledBeforeStartAbandonsPairs(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}}
	repo.prefs = []entity.Preference{emailPref(1, 2), emailPref(2, 2), emailPref(3, 2)}

	email := newFakeDispatcher(entity.ChannelEmail)
	uc := newTestUsecase(t, repo, email)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	report, err := uc.RunCycle(ctx, entity.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Abandoned)
	assert.Empty(t, email.payloads())
	assert.Empty(t, repo.allAttempts())
}

func TestRunCycle_CanceledMidSendStillLogs(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}}
	repo.prefs = []entity.Preference{emailPref(1, 2)}
	repo.recipients[1] = entity.Recipient{UserID: 1, Email: "a@example.com"}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	email := newFakeDispatcher(entity.ChannelEmail)
	email.outcome = func(entity.Payload) entity.Outcome {
		cancel()
		return entity.Delivered("late")
	}
	uc := newTestUsecase(t, repo, email)

	report, err := uc.RunCycle(ctx, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Sent)

	attempts := repo.allAttempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, "late", attempts[0].MessageID)
}

func TestRunCycle_BoundedWorkers(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}}
	for i := int64(1); i <= 8; i++ {
		repo.prefs = append(repo.prefs, emailPref(i, 2))
		repo.recipients[i] = entity.Recipient{UserID: i, Email: fmt.Sprintf("u%d@example.com", i)}
	}

	var inFlight, peak atomic.Int64
	email := newFakeDispatcher(entity.ChannelEmail)
	email.outcome = func(entity.Payload) entity.Outcome {
		n := inFlight.Inc()
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Dec()
		return entity.Delivered("ok")
	}

	uc := newTestUsecase(t, repo, email)
	uc.opts.workers = 2

	report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, int64(8), report.Sent)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestRunCycle_RunLock(t *testing.T) {
	t.Parallel()

	t.Run("held lock is a conflict", func(t *testing.T) {
		t.Parallel()

		repo := newFakeRepo(clock.NewFixed(testNow))
		uc := newTestUsecase(t, repo)
		uc.locker = &fakeLocker{err: runlock.ErrHeld}

		report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
		assert.Nil(t, report)
		assert.True(t, goerror.HasCode(err, goerror.CodeConflict))

		assert.NoError(t, uc.RunScheduledCycle(t.Context()))
		assert.NoError(t, uc.ConsumeDispatchRequested(t.Context(), ConsumeDispatchRequestedInput{RequestedBy: 1}))
	})

	t.Run("lock backend error runs anyway", func(t *testing.T) {
		t.Parallel()

		repo := newFakeRepo(clock.NewFixed(testNow))
		uc := newTestUsecase(t, repo)
		uc.locker = &fakeLocker{err: errors.New("redis down")}

		report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
		require.NoError(t, err)
		assert.Equal(t, int64(0), report.Pairs)
	})

	t.Run("lock is released", func(t *testing.T) {
		t.Parallel()

		repo := newFakeRepo(clock.NewFixed(testNow))
		uc := newTestUsecase(t, repo)
		locker := &fakeLocker{}
		uc.locker = locker

		_, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
		require.NoError(t, err)
		assert.Equal(t, 1, locker.released)
	})
}

func TestRunCycle_PreferenceStoreUnavailable(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	repo.listErr = errors.New("connection refused")
	uc := newTestUsecase(t, repo)

	report, err := uc.RunCycle(t.Context(), entity.TriggerSchedule)
	assert.Nil(t, report)
	assert.True(t, goerror.HasCode(err, goerror.CodeUnavailable))
}

func TestRunCycle_PublishesAndArchives(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}, {ID: 2, StartAt: testNow.Add(day)}}
	repo.prefs = []entity.Preference{emailPref(1, 2)}
	repo.recipients[1] = entity.Recipient{UserID: 1, Email: "a@example.com"}

	mq := &fakeMQ{}
	archive := &fakeArchive{}
	uc := newTestUsecase(t, repo, newFakeDispatcher(entity.ChannelEmail))
	uc.repoMQ = mq
	uc.repoArchive = archive

	report, err := uc.RunCycle(t.Context(), entity.TriggerManual)
	require.NoError(t, err)

	require.Len(t, mq.events, 1)
	assert.Equal(t, []int64{1, 2}, mq.events[0].EventIDs)
	assert.Equal(t, entity.AttemptStatusSent, mq.events[0].Status)

	require.Len(t, archive.reports, 1)
	assert.Equal(t, report.ID, archive.reports[0].ID)
	assert.Equal(t, entity.TriggerManual, archive.reports[0].Trigger)
}

func TestDispatchNow(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo(clock.NewFixed(testNow))
	uc := newTestUsecase(t, repo)

	_, err := uc.DispatchNow(t.Context())
	assert.True(t, goerror.HasCode(err, goerror.CodeUnauthorized))

	report, err := uc.DispatchNow(authed(t.Context(), 1))
	require.NoError(t, err)
	assert.Equal(t, entity.TriggerManual, report.Trigger)
}

func TestDispatchNow_OutlivesRequest(t *testing.T) {
	t.Parallel()

	newUC := func(t *testing.T, lifetime context.Context) (*Usecase, *fakeDispatcher) {
		t.Helper()

		repo := newFakeRepo(clock.NewFixed(testNow))
		repo.events = []entity.Event{{ID: 1, StartAt: testNow.Add(day)}}
		repo.prefs = []entity.Preference{emailPref(1, 2), emailPref(2, 2)}
		repo.recipients[1] = entity.Recipient{UserID: 1, Email: "a@example.com"}
		repo.recipients[2] = entity.Recipient{UserID: 2, Email: "b@example.com"}

		email := newFakeDispatcher(entity.ChannelEmail)
		uc := newTestUsecase(t, repo, email)
		uc.lifetime = lifetime
		return uc, email
	}

	t.Run("caller hung up", func(t *testing.T) {
		t.Parallel()

		uc, email := newUC(t, t.Context())
		reqCtx, cancel := context.WithCancel(authed(t.Context(), 1))
		cancel()

		report, err := uc.DispatchNow(reqCtx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), report.Sent)
		assert.Zero(t, report.Abandoned)
		assert.Len(t, email.sent, 2)
	})

	t.Run("process shutting down", func(t *testing.T) {
		t.Parallel()

		lifetime, stop := context.WithCancel(t.Context())
		stop()
		uc, email := newUC(t, lifetime)

		report, err := uc.DispatchNow(authed(t.Context(), 1))
		require.NoError(t, err)
		assert.Equal(t, int64(2), report.Abandoned)
		assert.Empty(t, email.sent)
	})
}

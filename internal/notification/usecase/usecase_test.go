package usecase

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/jwt"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"github.com/shandysiswandi/irnotify/internal/pkg/validator"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type fakeRepo struct {
	mu    sync.Mutex
	clock clock.Clocker

	events     []entity.Event
	prefs      []entity.Preference
	recipients map[int64]entity.Recipient
	attempts   []entity.Attempt
	upserts    []entity.UpsertPreference
	devices    map[string]int64
	perms      map[int64]entity.DesktopPermission

	listErr      error
	fetchErr     error
	dedupErr     error
	recordErr    error
	recipientErr error
	fetchCalls   int
}

func newFakeRepo(clk clock.Clocker) *fakeRepo {
	return &fakeRepo{
		clock:      clk,
		recipients: map[int64]entity.Recipient{},
		devices:    map[string]int64{},
		perms:      map[int64]entity.DesktopPermission{},
	}
}

func (f *fakeRepo) FetchUpcoming(_ context.Context, daysAhead int) ([]entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	now := f.clock.Now()
	end := now.AddDate(0, 0, daysAhead)

	var out []entity.Event
	for _, e := range f.events {
		if !e.StartAt.Before(now) && !e.StartAt.After(end) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b entity.Event) int { return a.StartAt.Compare(b.StartAt) })
	return out, nil
}

func (f *fakeRepo) ListEnabledPreferences(context.Context) ([]entity.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []entity.Preference
	for _, p := range f.prefs {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListUserPreferences(_ context.Context, userID int64) ([]entity.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Preference
	for _, p := range f.prefs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpsertPreferences(_ context.Context, prefs []entity.UpsertPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upserts = append(f.upserts, prefs...)
	return nil
}

func (f *fakeRepo) RecordAttempts(_ context.Context, in entity.RecordAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.recordErr != nil {
		return f.recordErr
	}

	for _, id := range in.EventIDs {
		f.attempts = append(f.attempts, entity.Attempt{
			ID:        int64(len(f.attempts) + 1),
			UserID:    in.UserID,
			Channel:   in.Channel,
			EventID:   id,
			Status:    in.Status,
			MessageID: in.MessageID,
			Error:     in.Error,
			CreatedAt: f.clock.Now(),
		})
	}
	return nil
}

func (f *fakeRepo) QueryAttempts(_ context.Context, userID int64, ch entity.Channel, since time.Time) ([]entity.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID && a.Channel == ch && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListEventAttempts(_ context.Context, userID, eventID int64) ([]entity.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID && a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) HasSentSince(_ context.Context, userID int64, ch entity.Channel, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dedupErr != nil {
		return false, f.dedupErr
	}

	for _, a := range f.attempts {
		if a.UserID == userID && a.Channel == ch && a.Status == entity.AttemptStatusSent && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) GetRecipient(_ context.Context, userID int64) (*entity.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.recipientErr != nil {
		return nil, f.recipientErr
	}

	rcp, ok := f.recipients[userID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &rcp, nil
}

func (f *fakeRepo) RegisterUserDevice(_ context.Context, userID int64, deviceToken, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.devices[deviceToken] = userID
	return nil
}

func (f *fakeRepo) RemoveUserDevice(_ context.Context, userID int64, deviceToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if owner, ok := f.devices[deviceToken]; !ok || owner != userID {
		return goerror.ErrNotFound
	}
	delete(f.devices, deviceToken)
	return nil
}

func (f *fakeRepo) UpdateDesktopPermission(_ context.Context, userID int64, perm entity.DesktopPermission) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.perms[userID] = perm
	return nil
}

func (f *fakeRepo) allAttempts() []entity.Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.attempts)
}

type fakeDispatcher struct {
	mu      sync.Mutex
	channel entity.Channel
	sent    []entity.Payload
	outcome func(p entity.Payload) entity.Outcome
}

func newFakeDispatcher(ch entity.Channel) *fakeDispatcher {
	return &fakeDispatcher{channel: ch}
}

func (d *fakeDispatcher) Channel() entity.Channel { return d.channel }

func (d *fakeDispatcher) Render(events []entity.Event, rcp entity.Recipient) (entity.Payload, error) {
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	return entity.Payload{
		Channel:  d.channel,
		UserID:   rcp.UserID,
		To:       []string{rcp.Email},
		Subject:  fmt.Sprintf("%d upcoming events", len(events)),
		EventIDs: ids,
	}, nil
}

func (d *fakeDispatcher) Send(_ context.Context, p entity.Payload) entity.Outcome {
	d.mu.Lock()
	d.sent = append(d.sent, p)
	fn := d.outcome
	d.mu.Unlock()

	if fn != nil {
		return fn(p)
	}
	return entity.Delivered(fmt.Sprintf("msg-%d", p.UserID))
}

func (d *fakeDispatcher) payloads() []entity.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.sent)
}

type fakeLocker struct {
	err      error
	released int
}

func (l *fakeLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type fakeMQ struct {
	mu     sync.Mutex
	events []DispatchedEvent
}

func (m *fakeMQ) PublishDispatched(_ context.Context, msg DispatchedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, msg)
	return nil
}

type fakeArchive struct {
	mu      sync.Mutex
	reports []entity.CycleReport
}

func (a *fakeArchive) SaveReport(_ context.Context, report entity.CycleReport) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reports = append(a.reports, report)
	return nil
}

func (a *fakeArchive) ListReports(_ context.Context, day time.Time, limit int) ([]entity.CycleReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []entity.CycleReport
	for _, r := range a.reports {
		if r.StartedAt.Format(time.DateOnly) == day.Format(time.DateOnly) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestUsecase(t *testing.T, repo *fakeRepo, dispatchers ...Dispatcher) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	sf, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	uc := NewNotification(Dependency{
		RepoDB:      repo,
		Dispatchers: dispatchers,
		UID:         sf,
		Clock:       repo.clock,
		Validator:   v,
		Instrument:  instrument.NewNoop(),
	})
	uc.opts.fetchRetries = 0

	return uc
}

func authed(ctx context.Context, userID int64) context.Context {
	return jwt.SetAuth(ctx, jwt.Claims{UserID: userID, UserEmail: "analyst@example.com"})
}

package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"outingrewards/internal/domain"
	"outingrewards/internal/repository/memory"
)

var testNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type recordingPublisher struct {
	mu            sync.Mutex
	notifications []*domain.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n *domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
}

func (p *recordingPublisher) ofType(typ domain.NotificationType) []*domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*domain.Notification
	for _, n := range p.notifications {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type noopRewardEngine struct{}

func (noopRewardEngine) Evaluate(context.Context, string, string) error { return nil }

type failingRewardEngine struct{ err error }

func (e failingRewardEngine) Evaluate(context.Context, string, string) error { return e.err }

// world is a seeded memory store with the services wired over it.
type world struct {
	store     *memory.Store
	publisher *recordingPublisher
	gate      *participationService
	engine    *rewardEngine
	vouchers  *voucherService
}

func newWorld(t *testing.T) *world {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	logger := discardLogger()

	engine := NewRewardEngine(store.Outings(), store.Users(), store.Rewards(), store.Participations(), store.Vouchers(), pub, 0, logger).(*rewardEngine)
	engine.now = fixedClock(testNow)

	gate := NewParticipationService(store.Outings(), store.Users(), store.Participations(), engine, pub, logger).(*participationService)
	gate.now = fixedClock(testNow)

	vouchers := NewVoucherService(store.Vouchers(), store.Rewards(), logger).(*voucherService)
	vouchers.now = fixedClock(testNow)

	return &world{store: store, publisher: pub, gate: gate, engine: engine, vouchers: vouchers}
}

func (w *world) user(id string, tier domain.Tier) *domain.User {
	return w.store.PutUser(&domain.User{ID: id, Email: id + "@example.com", Name: id, Tier: tier})
}

func (w *world) outing(id, organizerID string, maxParticipants int, eventID *string) *domain.Outing {
	return w.store.PutOuting(&domain.Outing{
		ID:              id,
		Title:           "Outing " + id,
		OrganizerID:     organizerID,
		MaxParticipants: maxParticipants,
		EventID:         eventID,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	})
}

func (w *world) reward(id, eventID, businessID string, required int) *domain.Reward {
	return w.store.PutReward(&domain.Reward{
		ID:                   id,
		EventID:              eventID,
		BusinessID:           businessID,
		Title:                "Reward " + id,
		RequiredParticipants: required,
		CreatedAt:            testNow,
	})
}

// joinAndApprove admits userID into the outing and fails the test on any error.
func (w *world) joinAndApprove(t *testing.T, outingID, userID, organizerID string) *domain.Participation {
	t.Helper()
	ctx := context.Background()
	p, err := w.gate.Join(ctx, outingID, userID)
	if err != nil {
		t.Fatalf("join %s: %v", userID, err)
	}
	p, err = w.gate.Approve(ctx, p.ID, organizerID)
	if err != nil {
		t.Fatalf("approve %s: %v", userID, err)
	}
	return p
}

func strPtr(s string) *string { return &s }

package services

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"outingrewards/internal/domain"
)

func TestRewardEngine_ThresholdScenario(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.user("org", domain.TierPremium)
	w.user("biz", domain.TierBusiness)
	w.outing("outing-1", "org", 5, strPtr("event-1"))
	w.reward("reward-1", "event-1", "biz", 3)

	for i := range 2 {
		uid := fmt.Sprintf("user-%d", i)
		w.user(uid, domain.TierUser)
		w.joinAndApprove(t, "outing-1", uid, "org")
	}
	vouchers, err := w.store.Vouchers().ListByUserID(ctx, "org")
	require.NoError(t, err)
	require.Empty(t, vouchers)

	w.user("user-2", domain.TierUser)
	w.joinAndApprove(t, "outing-1", "user-2", "org")

	vouchers, err = w.store.Vouchers().ListByUserID(ctx, "org")
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	v := vouchers[0]
	require.Equal(t, domain.VoucherActive, v.Status)
	require.Equal(t, "reward-1", v.RewardID)
	require.Equal(t, "outing-1", v.OutingID)
	require.Equal(t, v.IssuedAt.AddDate(0, 0, 60), v.ExpiresAt)
	require.Nil(t, v.RedeemedAt)

	earned := w.publisher.ofType(domain.NotificationRewardEarned)
	require.Len(t, earned, 1)
	require.Equal(t, "org", earned[0].RecipientID)
	require.Equal(t, v.ID, earned[0].ReferenceID)

	// A fourth approval and a manual re-run do not issue again.
	w.user("user-3", domain.TierUser)
	w.joinAndApprove(t, "outing-1", "user-3", "org")
	require.NoError(t, w.engine.Evaluate(ctx, "outing-1", "org"))

	vouchers, err = w.store.Vouchers().ListByUserID(ctx, "org")
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	require.Len(t, w.publisher.ofType(domain.NotificationRewardEarned), 1)
}

func TestRewardEngine_Evaluate(t *testing.T) {
	tests := []struct {
		name         string
		tier         domain.Tier
		eventID      *string
		evaluateFor  string
		approved     int
		wantVouchers int
	}{
		{name: "premium organizer over threshold", tier: domain.TierPremium, eventID: strPtr("event-1"), evaluateFor: "org", approved: 3, wantVouchers: 2},
		{name: "premium organizer between thresholds", tier: domain.TierPremium, eventID: strPtr("event-1"), evaluateFor: "org", approved: 2, wantVouchers: 1},
		{name: "free tier is not eligible", tier: domain.TierUser, eventID: strPtr("event-1"), evaluateFor: "org", approved: 3},
		{name: "business tier is not eligible", tier: domain.TierBusiness, eventID: strPtr("event-1"), evaluateFor: "org", approved: 3},
		{name: "outing without event", tier: domain.TierPremium, eventID: nil, evaluateFor: "org", approved: 3},
		{name: "participant is never rewarded", tier: domain.TierPremium, eventID: strPtr("event-1"), evaluateFor: "user-0", approved: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			w := newWorld(t)
			w.gate.rewards = noopRewardEngine{}
			w.user("org", tt.tier)
			w.user("biz", domain.TierBusiness)
			w.outing("outing-1", "org", 5, tt.eventID)
			w.reward("reward-small", "event-1", "biz", 2)
			w.reward("reward-big", "event-1", "biz", 3)
			w.reward("reward-other-event", "event-2", "biz", 1)
			for i := range tt.approved {
				uid := fmt.Sprintf("user-%d", i)
				w.user(uid, domain.TierPremium)
				w.joinAndApprove(t, "outing-1", uid, "org")
			}

			require.NoError(t, w.engine.Evaluate(ctx, "outing-1", tt.evaluateFor))

			vouchers, err := w.store.Vouchers().ListByUserID(ctx, tt.evaluateFor)
			require.NoError(t, err)
			require.Len(t, vouchers, tt.wantVouchers)
		})
	}
}

func TestRewardEngine_EvaluateUnknownOuting(t *testing.T) {
	w := newWorld(t)
	err := w.engine.Evaluate(context.Background(), "missing", "org")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRewardEngine_ConcurrentEvaluateIssuesOnce(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.gate.rewards = noopRewardEngine{}
	w.user("org", domain.TierPremium)
	w.user("biz", domain.TierBusiness)
	w.outing("outing-1", "org", 5, strPtr("event-1"))
	w.reward("reward-1", "event-1", "biz", 1)
	w.user("alice", domain.TierUser)
	w.joinAndApprove(t, "outing-1", "alice", "org")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.engine.Evaluate(ctx, "outing-1", "org"); err != nil {
				t.Errorf("evaluate: %v", err)
			}
		}()
	}
	wg.Wait()

	vouchers, err := w.store.Vouchers().ListByUserID(ctx, "org")
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	require.Len(t, w.publisher.ofType(domain.NotificationRewardEarned), 1)
}

func TestRewardEngine_RegeneratesCollidingCode(t *testing.T) {
	tests := []struct {
		name     string
		codes    []string
		wantCode string
		wantErr  bool
	}{
		{name: "second code is free", codes: []string{"VOUCHER-TAKEN000", "VOUCHER-FRESH000"}, wantCode: "VOUCHER-FRESH000"},
		{name: "every attempt collides", codes: []string{"VOUCHER-TAKEN000", "VOUCHER-TAKEN000", "VOUCHER-TAKEN000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			w := newWorld(t)
			w.gate.rewards = noopRewardEngine{}
			w.user("org", domain.TierPremium)
			w.user("biz", domain.TierBusiness)
			w.outing("outing-1", "org", 5, strPtr("event-1"))
			w.reward("reward-1", "event-1", "biz", 1)
			w.user("alice", domain.TierUser)
			w.joinAndApprove(t, "outing-1", "alice", "org")
			w.store.PutVoucher(domain.NewVoucher("someone", "reward-x", "outing-x", "VOUCHER-TAKEN000", testNow, domain.DefaultVoucherValidity))

			next := 0
			w.engine.newCode = func() string {
				code := tt.codes[next]
				next++
				return code
			}

			err := w.engine.Evaluate(ctx, "outing-1", "org")
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrDuplicateCode)
				return
			}
			require.NoError(t, err)
			vouchers, err := w.store.Vouchers().ListByUserID(ctx, "org")
			require.NoError(t, err)
			require.Len(t, vouchers, 1)
			require.Equal(t, tt.wantCode, vouchers[0].QRCode)
		})
	}
}

func TestNewVoucherCode(t *testing.T) {
	pattern := regexp.MustCompile(`^VOUCHER-[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for range 100 {
		code := NewVoucherCode()
		require.Regexp(t, pattern, code)
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNewRewardEngine_DefaultValidity(t *testing.T) {
	e := NewRewardEngine(nil, nil, nil, nil, nil, nil, 0, discardLogger()).(*rewardEngine)
	require.Equal(t, domain.DefaultVoucherValidity, e.validity)
}

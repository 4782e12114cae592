package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"outingrewards/internal/domain"
)

var now = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func TestParticipationRepository_WithOutingLock(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown outing", func(t *testing.T) {
		s := NewStore()
		err := s.Participations().WithOutingLock(ctx, "missing", func(context.Context, domain.ParticipationTx) error { return nil })
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("failed unit applies nothing", func(t *testing.T) {
		s := NewStore()
		s.PutOuting(&domain.Outing{ID: "outing-1", OrganizerID: "org", MaxParticipants: 2})
		boom := errors.New("boom")

		err := s.Participations().WithOutingLock(ctx, "outing-1", func(ctx context.Context, tx domain.ParticipationTx) error {
			if err := tx.Create(ctx, domain.NewParticipation("outing-1", "alice", now, now)); err != nil {
				return err
			}
			if err := tx.AddOutingParticipant(ctx, "outing-1", "alice"); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		list, err := s.Participations().ListByOutingID(ctx, "outing-1")
		require.NoError(t, err)
		require.Empty(t, list)
		o, err := s.Outings().GetByID(ctx, "outing-1")
		require.NoError(t, err)
		require.Empty(t, o.ParticipantIDs)
	})

	t.Run("committed unit is visible", func(t *testing.T) {
		s := NewStore()
		s.PutOuting(&domain.Outing{ID: "outing-1", OrganizerID: "org", MaxParticipants: 2})
		p := domain.NewParticipation("outing-1", "alice", now, now)

		err := s.Participations().WithOutingLock(ctx, "outing-1", func(ctx context.Context, tx domain.ParticipationTx) error {
			return tx.Create(ctx, p)
		})
		require.NoError(t, err)

		err = s.Participations().WithOutingLock(ctx, "outing-1", func(ctx context.Context, tx domain.ParticipationTx) error {
			if err := tx.ResolvePending(ctx, p.ID, domain.ParticipationApproved, now); err != nil {
				return err
			}
			return tx.AddOutingParticipant(ctx, "outing-1", "alice")
		})
		require.NoError(t, err)

		n, err := s.Participations().CountApproved(ctx, "outing-1")
		require.NoError(t, err)
		require.Equal(t, 1, n)
		o, err := s.Outings().GetByID(ctx, "outing-1")
		require.NoError(t, err)
		require.Equal(t, []string{"alice"}, o.ParticipantIDs)

		err = s.Participations().WithOutingLock(ctx, "outing-1", func(ctx context.Context, tx domain.ParticipationTx) error {
			return tx.ResolvePending(ctx, p.ID, domain.ParticipationRejected, now)
		})
		require.ErrorIs(t, err, domain.ErrNotPending)

		err = s.Participations().WithOutingLock(ctx, "outing-1", func(ctx context.Context, tx domain.ParticipationTx) error {
			return tx.Create(ctx, domain.NewParticipation("outing-1", "alice", now, now))
		})
		require.ErrorIs(t, err, domain.ErrAlreadyParticipating)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := NewStore()
		s.PutOuting(&domain.Outing{ID: "outing-1", OrganizerID: "org", MaxParticipants: 2})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.Participations().WithOutingLock(cctx, "outing-1", func(context.Context, domain.ParticipationTx) error { return nil })
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestParticipationRepository_CountApprovedExcludesOrganizer(t *testing.T) {
	s := NewStore()
	s.PutOuting(&domain.Outing{ID: "outing-1", OrganizerID: "org", MaxParticipants: 5})
	s.participations["p-1"] = &domain.Participation{ID: "p-1", OutingID: "outing-1", UserID: "org", Status: domain.ParticipationApproved}
	s.participations["p-2"] = &domain.Participation{ID: "p-2", OutingID: "outing-1", UserID: "alice", Status: domain.ParticipationApproved}
	s.participations["p-3"] = &domain.Participation{ID: "p-3", OutingID: "outing-1", UserID: "bob", Status: domain.ParticipationPending}

	n, err := s.Participations().CountApproved(context.Background(), "outing-1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestVoucherRepository(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Vouchers()

	v := domain.NewVoucher("org", "reward-1", "outing-1", "VOUCHER-AAAA0001", now, domain.DefaultVoucherValidity)
	created, err := repo.CreateIfAbsent(ctx, v)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEmpty(t, v.ID)

	again := domain.NewVoucher("org", "reward-1", "outing-1", "VOUCHER-AAAA0002", now, domain.DefaultVoucherValidity)
	created, err = repo.CreateIfAbsent(ctx, again)
	require.NoError(t, err)
	require.False(t, created)
	require.Empty(t, again.ID)

	clash := domain.NewVoucher("org", "reward-2", "outing-1", "VOUCHER-AAAA0001", now, domain.DefaultVoucherValidity)
	_, err = repo.CreateIfAbsent(ctx, clash)
	require.ErrorIs(t, err, domain.ErrDuplicateCode)

	ok, err := repo.MarkRedeemed(ctx, v.ID, v.ExpiresAt.Add(time.Second))
	require.NoError(t, err)
	require.False(t, ok, "expired voucher must not be redeemed")

	ok, err = repo.MarkRedeemed(ctx, v.ID, now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.MarkRedeemed(ctx, v.ID, now)
	require.NoError(t, err)
	require.False(t, ok)

	active, err := repo.ListActiveByUserID(ctx, "org", now)
	require.NoError(t, err)
	require.Empty(t, active)

	n, err := repo.ExpireBefore(ctx, v.ExpiresAt.Add(time.Hour))
	require.NoError(t, err)
	require.Zero(t, n, "redeemed vouchers are terminal")
}

func TestOutingLocks_ReleasesEntries(t *testing.T) {
	l := newOutingLocks()
	release := l.lock("outing-1")
	release()
	require.Empty(t, l.locks)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outingrewards/internal/domain"
)

type participationService struct {
	outingRepo        domain.OutingRepository
	userRepo          domain.UserRepository
	participationRepo domain.ParticipationRepository
	rewards           domain.RewardEngine
	publisher         domain.NotificationPublisher
	logger            *slog.Logger
	now               func() time.Time
}

// NewParticipationService creates the admission gate for outings.
func NewParticipationService(
	outingRepo domain.OutingRepository,
	userRepo domain.UserRepository,
	participationRepo domain.ParticipationRepository,
	rewards domain.RewardEngine,
	publisher domain.NotificationPublisher,
	logger *slog.Logger,
) domain.ParticipationService {
	return &participationService{
		outingRepo:        outingRepo,
		userRepo:          userRepo,
		participationRepo: participationRepo,
		rewards:           rewards,
		publisher:         publisher,
		logger:            logger,
		now:               time.Now,
	}
}

func (s *participationService) Join(ctx context.Context, outingID, userID string) (*domain.Participation, error) {
	outing, err := s.getOuting(ctx, outingID)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if outing.OrganizerID == userID {
		return nil, domain.ErrSelfJoin
	}

	// Fast path only; the (user, outing) unique constraint is what actually holds.
	if _, err := s.participationRepo.GetByOutingAndUser(ctx, outingID, userID); err == nil {
		return nil, domain.ErrAlreadyParticipating
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get participation: %w", err)
	}

	now := s.now()
	p := domain.NewParticipation(outingID, userID, now, now)
	err = s.inOutingUnit(ctx, outingID, func(ctx context.Context, tx domain.ParticipationTx) error {
		approved, err := tx.CountApproved(ctx, outingID)
		if err != nil {
			return fmt.Errorf("count approved: %w", err)
		}
		if approved >= outing.MaxParticipants {
			s.logger.WarnContext(ctx, "outing is full", "outing_id", outingID, "approved", approved, "max", outing.MaxParticipants)
			return domain.ErrCapacityExceeded
		}
		return tx.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, &domain.Notification{
		Type:          domain.NotificationParticipationRequested,
		RecipientID:   outing.OrganizerID,
		Title:         "New participation request",
		Message:       fmt.Sprintf("%s wants to join %s", user.Name, outing.Title),
		ReferenceID:   p.ID,
		ReferenceType: "PARTICIPATION",
		CreatedAt:     now,
	})
	s.logger.InfoContext(ctx, "participation requested", "participation_id", p.ID, "outing_id", outingID, "user_id", userID)
	return p, nil
}

func (s *participationService) Approve(ctx context.Context, participationID, organizerID string) (*domain.Participation, error) {
	p, outing, err := s.getForOrganizer(ctx, participationID, organizerID)
	if err != nil {
		return nil, err
	}

	err = s.inOutingUnit(ctx, outing.ID, func(ctx context.Context, tx domain.ParticipationTx) error {
		current, err := tx.GetByID(ctx, participationID)
		if err != nil {
			return err
		}
		if !current.IsPending() {
			return domain.ErrNotPending
		}
		// Re-read under the outing lock: a concurrent approval may have taken the last seat.
		approved, err := tx.CountApproved(ctx, outing.ID)
		if err != nil {
			return fmt.Errorf("count approved: %w", err)
		}
		if approved >= outing.MaxParticipants {
			s.logger.WarnContext(ctx, "cannot approve, outing is full", "outing_id", outing.ID, "approved", approved, "max", outing.MaxParticipants)
			return domain.ErrCapacityExceeded
		}
		now := s.now()
		if err := tx.ResolvePending(ctx, current.ID, domain.ParticipationApproved, now); err != nil {
			return err
		}
		if err := tx.AddOutingParticipant(ctx, outing.ID, current.UserID); err != nil {
			return fmt.Errorf("add outing participant: %w", err)
		}
		current.Status = domain.ParticipationApproved
		current.UpdatedAt = now
		p = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The approval is committed at this point; evaluation is idempotent and can be re-run.
	if err := s.rewards.Evaluate(ctx, outing.ID, outing.OrganizerID); err != nil {
		s.logger.ErrorContext(ctx, "reward evaluation failed", "outing_id", outing.ID, "organizer_id", outing.OrganizerID, "err", err)
	}

	s.publisher.Publish(ctx, &domain.Notification{
		Type:          domain.NotificationParticipationApproved,
		RecipientID:   p.UserID,
		Title:         "Participation approved!",
		Message:       fmt.Sprintf("Your request for %s has been approved", outing.Title),
		ReferenceID:   outing.ID,
		ReferenceType: "OUTING",
		CreatedAt:     p.UpdatedAt,
	})
	s.logger.InfoContext(ctx, "participation approved", "participation_id", p.ID, "outing_id", outing.ID, "user_id", p.UserID)
	return p, nil
}

func (s *participationService) Reject(ctx context.Context, participationID, organizerID string) (*domain.Participation, error) {
	p, outing, err := s.getForOrganizer(ctx, participationID, organizerID)
	if err != nil {
		return nil, err
	}

	// Rejection frees capacity, so it needs no count; the conditional update
	// still orders it against a racing approval of the same request.
	err = s.inOutingUnit(ctx, outing.ID, func(ctx context.Context, tx domain.ParticipationTx) error {
		now := s.now()
		if err := tx.ResolvePending(ctx, participationID, domain.ParticipationRejected, now); err != nil {
			return err
		}
		p.Status = domain.ParticipationRejected
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, &domain.Notification{
		Type:          domain.NotificationParticipationRejected,
		RecipientID:   p.UserID,
		Title:         "Participation rejected",
		Message:       fmt.Sprintf("Your request for %s was rejected", outing.Title),
		ReferenceID:   outing.ID,
		ReferenceType: "OUTING",
		CreatedAt:     p.UpdatedAt,
	})
	s.logger.InfoContext(ctx, "participation rejected", "participation_id", p.ID, "outing_id", outing.ID)
	return p, nil
}

func (s *participationService) Leave(ctx context.Context, participationID, userID string) (*domain.Participation, error) {
	p, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		return nil, s.wrapParticipationErr(err)
	}
	if p.UserID != userID {
		return nil, domain.ErrNotParticipant
	}

	err = s.inOutingUnit(ctx, p.OutingID, func(ctx context.Context, tx domain.ParticipationTx) error {
		current, err := tx.GetByID(ctx, participationID)
		if err != nil {
			return err
		}
		if current.IsApproved() {
			if err := tx.RemoveOutingParticipant(ctx, current.OutingID, current.UserID); err != nil {
				return fmt.Errorf("remove outing participant: %w", err)
			}
		}
		if err := tx.Delete(ctx, current.ID); err != nil {
			return err
		}
		p = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "participation left", "participation_id", p.ID, "outing_id", p.OutingID, "user_id", userID, "was_approved", p.IsApproved())
	return p, nil
}

func (s *participationService) ListByOuting(ctx context.Context, outingID string) ([]*domain.Participation, error) {
	if _, err := s.getOuting(ctx, outingID); err != nil {
		return nil, err
	}
	list, err := s.participationRepo.ListByOutingID(ctx, outingID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	return list, nil
}

func (s *participationService) ListByUser(ctx context.Context, userID string) ([]*domain.Participation, error) {
	list, err := s.participationRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	return list, nil
}

// inOutingUnit runs fn in the outing's atomic unit and retries once on a transient conflict.
func (s *participationService) inOutingUnit(ctx context.Context, outingID string, fn func(ctx context.Context, tx domain.ParticipationTx) error) error {
	err := s.participationRepo.WithOutingLock(ctx, outingID, fn)
	if errors.Is(err, domain.ErrTransientConflict) {
		s.logger.WarnContext(ctx, "outing unit conflicted, retrying", "outing_id", outingID, "err", err)
		err = s.participationRepo.WithOutingLock(ctx, outingID, fn)
	}
	return err
}

func (s *participationService) getOuting(ctx context.Context, outingID string) (*domain.Outing, error) {
	outing, err := s.outingRepo.GetByID(ctx, outingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("outing %s: %w", outingID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get outing: %w", err)
	}
	return outing, nil
}

// getForOrganizer loads a participation and its outing and checks that the caller
// organizes the outing and the request is still pending.
func (s *participationService) getForOrganizer(ctx context.Context, participationID, organizerID string) (*domain.Participation, *domain.Outing, error) {
	p, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		return nil, nil, s.wrapParticipationErr(err)
	}
	outing, err := s.getOuting(ctx, p.OutingID)
	if err != nil {
		return nil, nil, err
	}
	if outing.OrganizerID != organizerID {
		return nil, nil, domain.ErrNotOrganizer
	}
	if !p.IsPending() {
		return nil, nil, fmt.Errorf("%w (current status: %s)", domain.ErrNotPending, p.Status)
	}
	return p, outing, nil
}

func (s *participationService) wrapParticipationErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("participation: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("get participation: %w", err)
}

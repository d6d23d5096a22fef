package facility

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/account"
)

type Service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// Sweep suspends every active facility whose subscription has ended.
func (s *Service) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now().UTC()
	clinics, centers, err := s.store.SuspendExpired(ctx, now)
	if err != nil {
		return nil, err
	}
	return &SweepResult{
		Success:          true,
		SuspendedClinics: clinics,
		SuspendedCenters: centers,
		Timestamp:        now,
	}, nil
}

// StartSweeper runs Sweep every interval until ctx is cancelled. Failures are
// logged and the loop keeps going.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("subscription sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("subscription sweeper stopped")
			return
		case <-ticker.C:
			res, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("subscription sweep failed")
				continue
			}
			if res.SuspendedClinics > 0 || res.SuspendedCenters > 0 {
				s.logger.Info().
					Int64("clinics", res.SuspendedClinics).
					Int64("centers", res.SuspendedCenters).
					Msg("suspended expired facilities")
			}
		}
	}
}

func (s *Service) SetClinicStatus(ctx context.Context, id uuid.UUID, req *StatusUpdate) (*Facility, error) {
	return s.store.UpdateClinicStatus(ctx, id, account.Status(req.Status), req.SubscriptionEndsAt)
}

func (s *Service) SetCenterStatus(ctx context.Context, id uuid.UUID, req *StatusUpdate) (*Facility, error) {
	return s.store.UpdateCenterStatus(ctx, id, account.Status(req.Status), req.SubscriptionEndsAt)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]Facility, int, error) {
	return s.store.List(ctx, f, limit, offset)
}

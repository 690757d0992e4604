package recovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/models"
)

// ScheduleSource lists every schedule that should currently be armed:
// all schedules of all active medicines, with their display context.
type ScheduleSource interface {
	GetActiveContexts(ctx context.Context) ([]*models.ScheduleContext, error)
}

// Service re-derives and re-arms every timer after a process restart. The
// system keeps no durable list of armed timers anywhere — armed state is
// always a function of the schedule rows plus the clock — so this is the
// only restore path, and running it twice is harmless: each arm resolves
// fresh.
type Service struct {
	schedules ScheduleSource
	alarms    *alarm.Manager
}

func New(schedules ScheduleSource, alarms *alarm.Manager) *Service {
	return &Service{schedules: schedules, alarms: alarms}
}

// RecoverAll arms every active schedule. One schedule's failure is logged
// and never blocks the rest of the batch.
func (s *Service) RecoverAll(ctx context.Context) error {
	contexts, err := s.schedules.GetActiveContexts(ctx)
	if err != nil {
		return fmt.Errorf("recovery: listing active schedules: %w", err)
	}

	armed := 0
	for _, sc := range contexts {
		res, err := s.alarms.Arm(&sc.Schedule, alarm.PayloadFor(sc))
		if err != nil {
			log.Error().Err(err).Int64("schedule_id", sc.Schedule.ScheduleID).Msg("failed to re-arm schedule on boot")
			continue
		}
		if res.Armed {
			armed++
		}
	}

	log.Info().Int("schedules", len(contexts)).Int("armed", armed).Msg("boot recovery completed")
	return nil
}

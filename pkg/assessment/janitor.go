package assessment

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vitalpath-ai/platform/pkg/common/logger"
)

// Janitor purges expired terminal records on a cron cadence so the job
// table does not grow without bound.
type Janitor struct {
	service  *Service
	schedule string
	cron     *cron.Cron
}

func NewJanitor(service *Service, schedule string) *Janitor {
	return &Janitor{service: service, schedule: schedule, cron: cron.New()}
}

// Start registers the sweep and begins scheduling. The schedule
// accepts standard cron expressions and descriptors like @hourly.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.sweep); err != nil {
		return err
	}
	j.cron.Start()
	logger.Log.WithField("schedule", j.schedule).Info("Retention janitor started")
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	purged, err := j.service.PurgeExpired(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("Retention sweep failed")
		return
	}
	if purged > 0 {
		logger.Log.WithField("purged", purged).Info("Expired assessment records removed")
	}
}

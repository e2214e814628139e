// Package incident stores pipeline incidents and fans alerting ones out to
// the notification channel.
package incident

import (
	"context"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
)

// Reporter records incidents and sends the ones flagged for Slack. Delivery
// happens after the row is stored; its failures are logged and never undo
// the write.
type Reporter struct {
	repo *Repository
	sink Sink
	gate Gate
}

func NewReporter(repo *Repository, sink Sink, gate Gate) *Reporter {
	if gate == nil {
		gate = OpenGate{}
	}
	return &Reporter{repo: repo, sink: sink, gate: gate}
}

func (r *Reporter) Repository() *Repository { return r.repo }

// Record stores inc and notifies when SlackNotification is set.
func (r *Reporter) Record(ctx context.Context, inc Incident) (*Incident, error) {
	if err := r.repo.Create(ctx, &inc); err != nil {
		return nil, err
	}
	metrics.ObserveIncident(inc.Code)

	log := logger.Log.WithFields(map[string]interface{}{
		"incident_id": inc.ID,
		"code":        inc.Code,
	})
	log.Info("Recorded genomic incident")

	if inc.SlackNotification != 1 || r.sink == nil {
		return &inc, nil
	}

	n := Notification{
		IncidentID:       inc.ID,
		SourceJobRunID:   inc.SourceJobRunID,
		Code:             inc.Code,
		Message:          inc.Message,
		ManifestFileName: inc.ManifestFileName,
	}
	allowed, err := r.gate.Allow(ctx, n)
	if err != nil {
		// fail open: a broken gate should not swallow alerts
		log.WithError(err).Warn("Alert gate unavailable, sending anyway")
		allowed = true
	}
	if !allowed {
		metrics.ObserveNotification("suppressed")
		log.Debug("Suppressed repeated incident alert")
		return &inc, nil
	}
	if err := r.sink.Notify(ctx, n); err != nil {
		metrics.ObserveNotification("failed")
		log.WithError(err).Error("Failed to send incident alert")
		return &inc, nil
	}
	metrics.ObserveNotification("sent")
	if err := r.repo.markSlackSent(ctx, inc.ID); err != nil {
		log.WithError(err).Warn("Failed to stamp incident alert date")
	}
	return &inc, nil
}

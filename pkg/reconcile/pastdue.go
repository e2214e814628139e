package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
	"gorm.io/gorm"
)

const day = 24 * time.Hour

// DeadlinePolicy is a result turnaround limit. The deadline is BaseDays
// after the start, pushed out by ExtensionDays once a Checkpoint row has
// arrived for the sample. A Cancel row stops the clock entirely.
type DeadlinePolicy struct {
	BaseDays      int
	ExtensionDays int
	Checkpoint    Family
	Cancel        Family
}

func (p DeadlinePolicy) days(hasCheckpoint bool) int {
	if hasCheckpoint && p.Checkpoint != "" {
		return p.BaseDays + p.ExtensionDays
	}
	return p.BaseDays
}

func (p DeadlinePolicy) Deadline(start time.Time, hasCheckpoint bool) time.Time {
	return start.Add(time.Duration(p.days(hasCheckpoint)) * day)
}

func (p DeadlinePolicy) PastDue(start time.Time, hasCheckpoint bool, now time.Time) bool {
	return now.After(p.Deadline(start, hasCheckpoint))
}

// Cutoff is the latest start that is past due at now.
func (p DeadlinePolicy) Cutoff(now time.Time, hasCheckpoint bool) time.Time {
	return now.Add(-time.Duration(p.days(hasCheckpoint)) * day).UTC()
}

// PoliciesFromLimits builds the per-module policies. PGX has a flat limit;
// HDR is extended by a W3SC checkpoint and cancelled by a W2W withdrawal.
func PoliciesFromLimits(limits config.CVLLimits) map[genomic.ResultsModuleType]DeadlinePolicy {
	return map[genomic.ResultsModuleType]DeadlinePolicy{
		genomic.ModulePGXV1: {BaseDays: limits.PGXTimeLimit},
		genomic.ModuleHDRV1: {
			BaseDays:      limits.HDRTimeLimit,
			ExtensionDays: limits.W3SCExtension,
			Checkpoint:    FamilyW3SC,
			Cancel:        FamilyW2W,
		},
	}
}

// PastDueResult is a result found overdue; it is kept until the result
// arrives and the site has been alerted.
type PastDueResult struct {
	ID                        uint                      `gorm:"primaryKey;column:id"`
	Created                   time.Time                 `gorm:"column:created"`
	Modified                  time.Time                 `gorm:"column:modified"`
	GenomicSetMemberID        uint                      `gorm:"column:genomic_set_member_id;index"`
	SampleID                  string                    `gorm:"column:sample_id;index"`
	ResultsType               genomic.ResultsModuleType `gorm:"column:results_type"`
	CVLSiteID                 string                    `gorm:"column:cvl_site_id"`
	EmailNotificationSent     int                       `gorm:"column:email_notification_sent"`
	EmailNotificationSentDate *time.Time                `gorm:"column:email_notification_sent_date"`
	Resolved                  int                       `gorm:"column:resolved"`
	ResolvedDate              *time.Time                `gorm:"column:resolved_date"`
}

func (PastDueResult) TableName() string {
	return "genomic_cvl_result_past_due"
}

// PastDueCandidate is a sample found overdue but not yet recorded.
type PastDueCandidate struct {
	GenomicSetMemberID uint                      `gorm:"column:genomic_set_member_id"`
	SampleID           string                    `gorm:"column:sample_id"`
	CVLSiteID          string                    `gorm:"column:cvl_site_id"`
	ResultsType        genomic.ResultsModuleType `gorm:"column:results_type"`
}

// rawExists matches a live raw row of family for the member's sample.
func rawExists(family Family) string {
	return fmt.Sprintf(`EXISTS (
		SELECT 1 FROM genomic_raw_manifest_row r
		WHERE r.manifest_type = '%s' AND r.sample_id = m.sample_id AND r.ignore_flag = 0)`, family)
}

// FindPastDueResults returns the WGS samples whose module result is overdue
// at now: the informing-loop run is older than the module's deadline, no
// W4WR result row of the module has arrived and none is already recorded.
func (e *Engine) FindPastDueResults(ctx context.Context, module genomic.ResultsModuleType, now time.Time) ([]PastDueCandidate, error) {
	policy, ok := e.policies[module]
	if !ok {
		return nil, fmt.Errorf("no deadline policy for %q", module)
	}
	field, err := genomic.W1ILFieldFor(module)
	if err != nil {
		return nil, err
	}
	w1il, err := field.Column()
	if err != nil {
		return nil, err
	}

	q := e.db.WithContext(ctx).Table("genomic_set_member AS m").
		Select(fmt.Sprintf("m.id AS genomic_set_member_id, m.sample_id, m.gc_site_id AS cvl_site_id, '%s' AS results_type", module)).
		Joins(fmt.Sprintf("JOIN genomic_job_run jr ON jr.id = m.%s", w1il)).
		Where(fmt.Sprintf("m.%s IS NOT NULL", w1il)).
		Where("m.genome_type = ? AND m.sample_id IS NOT NULL", config.GenomeTypeWGS).
		Where(`NOT EXISTS (
			SELECT 1 FROM genomic_cvl_result_past_due pd
			WHERE pd.sample_id = m.sample_id AND pd.results_type = ?)`, string(module)).
		Where(`NOT EXISTS (
			SELECT 1 FROM genomic_raw_manifest_row r
			WHERE r.manifest_type = ? AND r.sample_id = m.sample_id
			AND r.clinical_analysis_type = ? AND r.ignore_flag = 0)`, FamilyW4WR, string(module))

	if policy.Cancel != "" {
		q = q.Where("NOT " + rawExists(policy.Cancel))
	}
	if policy.Checkpoint == "" {
		q = q.Where("jr.created < ?", policy.Cutoff(now, false))
	} else {
		checkpoint := rawExists(policy.Checkpoint)
		q = q.Where(
			fmt.Sprintf("(NOT %[1]s AND jr.created < ?) OR (%[1]s AND jr.created < ?)", checkpoint),
			policy.Cutoff(now, false), policy.Cutoff(now, true),
		)
	}

	var out []PastDueCandidate
	if err := q.Order("m.id").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("find past due %s results: %w", module, err)
	}
	metrics.ObservePastDue(module.Short(), len(out))
	return out, nil
}

// RecordPastDue stores the candidates as open past-due results.
func (e *Engine) RecordPastDue(ctx context.Context, candidates []PastDueCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	now := e.clock.Now()
	rows := make([]PastDueResult, len(candidates))
	for i, c := range candidates {
		rows[i] = PastDueResult{
			Created:            now,
			Modified:           now,
			GenomicSetMemberID: c.GenomicSetMemberID,
			SampleID:           c.SampleID,
			ResultsType:        c.ResultsType,
			CVLSiteID:          c.CVLSiteID,
		}
	}
	if err := database.InsertInBatches(ctx, e.db, &rows, database.DefaultBatchSize); err != nil {
		return fmt.Errorf("record past due results: %w", err)
	}
	logger.Log.WithField("samples", len(rows)).Info("Recorded past due results")
	return nil
}

// SamplesForNotification returns open past-due results no site has been
// told about yet.
func (e *Engine) SamplesForNotification(ctx context.Context) ([]PastDueResult, error) {
	var rows []PastDueResult
	err := e.db.WithContext(ctx).
		Where("email_notification_sent != 1 AND resolved != 1").
		Order("cvl_site_id, id").
		Find(&rows).Error
	return rows, err
}

// SamplesToResolve returns open past-due results whose W4WR row has since
// arrived.
func (e *Engine) SamplesToResolve(ctx context.Context) ([]PastDueResult, error) {
	var rows []PastDueResult
	err := e.db.WithContext(ctx).Table("genomic_cvl_result_past_due AS pd").
		Select("pd.*").
		Joins("JOIN genomic_set_member m ON m.id = pd.genomic_set_member_id AND m.sample_id = pd.sample_id").
		Where("pd.resolved != 1").
		Where(`EXISTS (
			SELECT 1 FROM genomic_raw_manifest_row r
			WHERE r.manifest_type = ? AND r.sample_id = pd.sample_id
			AND r.clinical_analysis_type = pd.results_type AND r.ignore_flag = 0)`, FamilyW4WR).
		Order("pd.id").
		Scan(&rows).Error
	return rows, err
}

// PastDueAction is a batch change to past-due results.
type PastDueAction string

const (
	ActionResolve PastDueAction = "resolve"
	ActionAlert   PastDueAction = "alert"
)

// BatchUpdate applies action to every id in one transaction. An unknown id
// rolls the whole batch back with ErrRecordNotFound.
func (e *Engine) BatchUpdate(ctx context.Context, action PastDueAction, ids []uint) error {
	now := e.clock.Now()
	var values map[string]interface{}
	switch action {
	case ActionResolve:
		values = map[string]interface{}{"resolved": 1, "resolved_date": now}
	case ActionAlert:
		values = map[string]interface{}{"email_notification_sent": 1, "email_notification_sent_date": now}
	default:
		return genomic.NewValidationError("unknown past due action %q", action)
	}
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) == 0 {
		return nil
	}
	values["modified"] = now

	return database.WithTransaction(ctx, e.db, e.policy, func(tx *gorm.DB) error {
		res := tx.Model(&PastDueResult{}).Where("id IN ?", ids).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(unique)) {
			return fmt.Errorf("updated %d of %d past due results: %w",
				res.RowsAffected, len(unique), genomic.ErrRecordNotFound)
		}
		return nil
	})
}

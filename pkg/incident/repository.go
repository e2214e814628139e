package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"gorm.io/gorm"
)

type Repository struct {
	db         *gorm.DB
	clock      clock.Clock
	policy     database.RetryPolicy
	maxMessage int
}

func NewRepository(db *gorm.DB, clk clock.Clock) *Repository {
	return &Repository{
		db:         db,
		clock:      clock.Or(clk),
		policy:     database.DefaultRetryPolicy(),
		maxMessage: DefaultMaxMessageLength,
	}
}

// WithMaxMessageLength overrides the truncation width.
func (r *Repository) WithMaxMessageLength(n int) *Repository {
	if n > 0 {
		r.maxMessage = n
	}
	return r
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Incident{})
}

// Create stores inc, truncating an oversized message instead of failing.
func (r *Repository) Create(ctx context.Context, inc *Incident) error {
	msg, truncated := Truncate(inc.Message, r.maxMessage)
	if truncated {
		logger.Log.WithFields(map[string]interface{}{
			"code":   inc.Code,
			"length": len([]rune(inc.Message)),
		}).Warn("Truncating incident message when storing")
		inc.Message = msg
		inc.IsTruncated = 1
	}
	if inc.Status == "" {
		inc.Status = genomic.IncidentOpen.String()
	}
	now := r.clock.Now()
	if inc.Created.IsZero() {
		inc.Created = now
	}
	inc.Modified = now
	if err := r.db.WithContext(ctx).Create(inc).Error; err != nil {
		return fmt.Errorf("create %s incident: %w", inc.Code, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uint) (*Incident, error) {
	var inc Incident
	result := r.db.WithContext(ctx).First(&inc, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("incident", id)
	}
	return &inc, result.Error
}

// FindByMessage returns the first incident stored with message. The lookup
// truncates message the way Create does, so an oversized repeat still
// matches.
func (r *Repository) FindByMessage(ctx context.Context, message string) (*Incident, error) {
	msg, _ := Truncate(message, r.maxMessage)
	var inc Incident
	result := r.db.WithContext(ctx).Where("message = ?", msg).Order("id").First(&inc)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("incident", "message")
	}
	return &inc, result.Error
}

func (r *Repository) BySourceFileID(ctx context.Context, fileID uint) ([]Incident, error) {
	var out []Incident
	err := r.db.WithContext(ctx).Where("source_file_processed_id = ?", fileID).Order("id").Find(&out).Error
	return out, err
}

func (r *Repository) OpenByFileName(ctx context.Context, fileName string) ([]Incident, error) {
	var out []Incident
	err := r.db.WithContext(ctx).
		Where("manifest_file_name = ? AND status = ?", fileName, genomic.IncidentOpen.String()).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r *Repository) MarkEmailed(ctx context.Context, ids []uint) error {
	now := r.clock.Now()
	return r.batchUpdate(ctx, ids, map[string]interface{}{
		"email_notification_sent":      1,
		"email_notification_sent_date": now,
	})
}

func (r *Repository) MarkResolved(ctx context.Context, ids []uint) error {
	return r.batchUpdate(ctx, ids, map[string]interface{}{
		"status": genomic.IncidentResolved.String(),
	})
}

func (r *Repository) markSlackSent(ctx context.Context, id uint) error {
	return r.batchUpdate(ctx, []uint{id}, map[string]interface{}{
		"slack_notification_date": r.clock.Now(),
	})
}

// batchUpdate applies values to every id or to none. An unknown id fails
// the batch with ErrRecordNotFound.
func (r *Repository) batchUpdate(ctx context.Context, ids []uint, values map[string]interface{}) error {
	seen := make(map[uint]struct{}, len(ids))
	updates := make([]database.RowUpdate, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		updates = append(updates, database.RowUpdate{ID: id, Values: values})
	}
	if len(updates) == 0 {
		return nil
	}
	values["modified"] = r.clock.Now()

	return database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&Incident{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return err
		}
		if found != int64(len(updates)) {
			return fmt.Errorf("found %d of %d incidents: %w", found, len(updates), genomic.ErrRecordNotFound)
		}
		return database.BulkUpdate(ctx, tx, &Incident{}, updates)
	})
}

// IngestionIncident is an unreported incident raised while ingesting a
// GC file.
type IngestionIncident struct {
	ID                uint        `gorm:"column:id"`
	Code              string      `gorm:"column:code"`
	SubmittedGCSiteID string      `gorm:"column:submitted_gc_site_id"`
	Message           string      `gorm:"column:message"`
	JobID             genomic.Job `gorm:"column:job_id"`
	FilePath          string      `gorm:"column:file_path"`
	FileName          string      `gorm:"column:file_name"`
}

// NewIngestionIncidents returns the incidents from ingestion jobs not yet
// emailed to their site, created in the last fromDays days (all when
// fromDays is 0).
func (r *Repository) NewIngestionIncidents(ctx context.Context, fromDays int) ([]IngestionIncident, error) {
	q := r.db.WithContext(ctx).Table("genomic_incident AS gi").
		Select("gi.id, gi.code, gi.submitted_gc_site_id, gi.message, jr.job_id, fp.file_path, fp.file_name").
		Joins("JOIN genomic_job_run jr ON jr.id = gi.source_job_run_id").
		Joins("JOIN genomic_file_processed fp ON fp.id = gi.source_file_processed_id").
		Where("gi.email_notification_sent = 0").
		Where("jr.job_id IN ?", genomic.IngestionJobs).
		Where("gi.submitted_gc_site_id IS NOT NULL")
	if fromDays > 0 {
		from := r.clock.Now().AddDate(0, 0, -fromDays).Truncate(time.Second)
		q = q.Where("gi.created >= ?", from)
	}
	var out []IngestionIncident
	err := q.Order("gi.id").Scan(&out).Error
	return out, err
}

// ReportLine is one row of the daily incident report.
type ReportLine struct {
	Code                  string    `gorm:"column:code"`
	Created               time.Time `gorm:"column:created"`
	BiobankID             string    `gorm:"column:biobank_id"`
	GenomicSetMemberID    *uint     `gorm:"column:genomic_set_member_id"`
	SourceJobRunID        *uint     `gorm:"column:source_job_run_id"`
	SourceFileProcessedID *uint     `gorm:"column:source_file_processed_id"`
}

// DailyReport lists incidents created since from, newest first.
func (r *Repository) DailyReport(ctx context.Context, from time.Time) ([]ReportLine, error) {
	var out []ReportLine
	err := r.db.WithContext(ctx).Model(&Incident{}).
		Select("code, created, biobank_id, genomic_set_member_id, source_job_run_id, source_file_processed_id").
		Where("created >= ?", from.UTC().Truncate(time.Second)).
		Order("created DESC, id DESC").
		Scan(&out).Error
	return out, err
}

// ResolvedManifest is an ingestion file whose incident was resolved.
type ResolvedManifest struct {
	JobID    genomic.Job `gorm:"column:job_id"`
	FilePath string      `gorm:"column:file_path"`
	Status   string      `gorm:"column:status"`
}

// ResolvedManifests lists ingestion files with incidents resolved (created
// or modified) since from.
func (r *Repository) ResolvedManifests(ctx context.Context, from time.Time) ([]ResolvedManifest, error) {
	from = from.UTC().Truncate(time.Second)
	var out []ResolvedManifest
	err := r.db.WithContext(ctx).Table("genomic_incident AS gi").
		Select("jr.job_id, fp.file_path, gi.status").
		Joins("JOIN genomic_job_run jr ON jr.id = gi.source_job_run_id").
		Joins("JOIN genomic_file_processed fp ON fp.id = gi.source_file_processed_id").
		Where("gi.status = ?", genomic.IncidentResolved.String()).
		Where("jr.job_id IN ?", genomic.IngestionJobs).
		Where("gi.created >= ? OR gi.modified >= ?", from, from).
		Order("gi.id").
		Scan(&out).Error
	return out, err
}

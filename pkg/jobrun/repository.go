package jobrun

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
	db     *gorm.DB
	clock  clock.Clock
	policy database.RetryPolicy
}

func NewRepository(db *gorm.DB, clk clock.Clock) *Repository {
	return &Repository{db: db, clock: clock.Or(clk), policy: database.DefaultRetryPolicy()}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&JobRun{}, &FileProcessed{}, &ManifestFile{}, &ManifestFeedback{})
}

func (r *Repository) Clock() clock.Clock { return r.clock }

// InsertRun opens a RUNNING run for job starting now.
func (r *Repository) InsertRun(ctx context.Context, job genomic.Job) (*JobRun, error) {
	now := r.clock.Now()
	run := &JobRun{
		Created:      now,
		Modified:     now,
		JobID:        job,
		JobIDStr:     job.String(),
		StartTime:    now,
		RunStatus:    genomic.StatusRunning,
		RunStatusStr: genomic.StatusRunning.String(),
		RunResult:    genomic.ResultUnset,
		RunResultStr: genomic.ResultUnset.String(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("insert run for %s: %w", job, err)
	}
	return run, nil
}

// UpdateRun writes the terminal status and result of a run.
func (r *Repository) UpdateRun(ctx context.Context, id uint, result genomic.SubProcessResult, status genomic.SubProcessStatus) error {
	now := r.clock.Now()
	res := r.db.WithContext(ctx).Model(&JobRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"run_result":     result,
			"run_result_str": result.String(),
			"run_status":     status,
			"run_status_str": status.String(),
			"end_time":       now,
			"modified":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return genomic.NotFound("job run", id)
	}
	return nil
}

func (r *Repository) GetRun(ctx context.Context, id uint) (*JobRun, error) {
	var run JobRun
	result := r.db.WithContext(ctx).First(&run, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("job run", id)
	}
	return &run, result.Error
}

// LastSuccessfulRuntime is the start time of the latest completed run of
// job that succeeded or found no files. nil means the job never succeeded.
func (r *Repository) LastSuccessfulRuntime(ctx context.Context, job genomic.Job) (*time.Time, error) {
	var run JobRun
	result := r.db.WithContext(ctx).
		Where("job_id = ? AND run_status = ? AND run_result IN ?", job, genomic.StatusCompleted,
			[]genomic.SubProcessResult{genomic.ResultSuccess, genomic.ResultNoFiles}).
		Order("start_time DESC, id DESC").
		First(&run)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	t := run.StartTime.UTC()
	return &t, nil
}

// InsertFile records a file picked up by a run. Start time is set to now.
func (r *Repository) InsertFile(ctx context.Context, f *FileProcessed) error {
	now := r.clock.Now()
	f.Created = now
	f.Modified = now
	f.StartTime = now
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *Repository) UpdateFile(ctx context.Context, id uint, status genomic.SubProcessStatus, result genomic.SubProcessResult) error {
	now := r.clock.Now()
	res := r.db.WithContext(ctx).Model(&FileProcessed{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"file_status": status,
			"file_result": result,
			"end_time":    now,
			"modified":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return genomic.NotFound("file processed", id)
	}
	return nil
}

func (r *Repository) GetFile(ctx context.Context, id uint) (*FileProcessed, error) {
	var f FileProcessed
	result := r.db.WithContext(ctx).First(&f, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("file processed", id)
	}
	return &f, result.Error
}

// GetByFileName returns the newest processing record of a file name.
func (r *Repository) GetByFileName(ctx context.Context, name string) (*FileProcessed, error) {
	var f FileProcessed
	result := r.db.WithContext(ctx).Where("file_name = ?", name).Order("id DESC").First(&f)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("file processed", name)
	}
	return &f, result.Error
}

// MaxForFilePath returns the newest processing record of a file path.
func (r *Repository) MaxForFilePath(ctx context.Context, path string) (*FileProcessed, error) {
	var f FileProcessed
	result := r.db.WithContext(ctx).Where("file_path = ?", path).Order("id DESC").First(&f)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("file processed", path)
	}
	return &f, result.Error
}

func (r *Repository) FilesForRun(ctx context.Context, runID uint) ([]FileProcessed, error) {
	var files []FileProcessed
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&files).Error
	return files, err
}

// FilesForJob returns every file processed by any run of job.
func (r *Repository) FilesForJob(ctx context.Context, job genomic.Job) ([]FileProcessed, error) {
	var files []FileProcessed
	err := r.db.WithContext(ctx).
		Table("genomic_file_processed AS f").
		Select("f.*").
		Joins("JOIN genomic_job_run jr ON jr.id = f.run_id").
		Where("jr.job_id = ?", job).
		Order("f.id").
		Find(&files).Error
	return files, err
}

func (r *Repository) InsertManifestFile(ctx context.Context, m *ManifestFile) error {
	now := r.clock.Now()
	m.Created = now
	m.Modified = now
	return r.db.WithContext(ctx).Create(m).Error
}

// GetManifestByFilePath returns the non-ignored manifest file at path.
func (r *Repository) GetManifestByFilePath(ctx context.Context, path string) (*ManifestFile, error) {
	var m ManifestFile
	result := r.db.WithContext(ctx).
		Where("file_path = ? AND ignore_flag = 0", path).
		Order("id DESC").
		First(&m)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("manifest file", path)
	}
	return &m, result.Error
}

func (r *Repository) UpdateRecordCount(ctx context.Context, id uint, count int) error {
	res := r.db.WithContext(ctx).Model(&ManifestFile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"record_count": count,
			"modified":     r.clock.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return genomic.NotFound("manifest file", id)
	}
	return nil
}

// RecordCountForFilePath is the stored record count of the manifest at
// path, zero when no live manifest exists.
func (r *Repository) RecordCountForFilePath(ctx context.Context, path string) (int, error) {
	m, err := r.GetManifestByFilePath(ctx, path)
	if errors.Is(err, genomic.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.RecordCount, nil
}

func (r *Repository) InsertFeedback(ctx context.Context, fb *ManifestFeedback) error {
	now := r.clock.Now()
	fb.Created = now
	fb.Modified = now
	return r.db.WithContext(ctx).Create(fb).Error
}

// GetFeedbackByManifestID returns the live feedback record of an input
// manifest.
func (r *Repository) GetFeedbackByManifestID(ctx context.Context, manifestID uint) (*ManifestFeedback, error) {
	var fb ManifestFeedback
	result := r.db.WithContext(ctx).
		Where("input_manifest_file_id = ? AND ignore_flag = 0", manifestID).
		Order("id DESC").
		First(&fb)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("manifest feedback", manifestID)
	}
	return &fb, result.Error
}

// IncrementFeedbackCount adds one acknowledged record to the feedback of
// manifestID. A manifest without feedback is a ValidationError.
func (r *Repository) IncrementFeedbackCount(ctx context.Context, manifestID uint) error {
	return database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		var fb ManifestFeedback
		result := tx.Where("input_manifest_file_id = ? AND ignore_flag = 0", manifestID).
			Order("id DESC").
			First(&fb)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.Log.WithField("manifest_file_id", manifestID).Error("No feedback record for manifest")
			return genomic.NewValidationError("no feedback record for manifest file %d", manifestID)
		}
		if result.Error != nil {
			return result.Error
		}
		return tx.Model(&ManifestFeedback{}).
			Where("id = ?", fb.ID).
			Updates(map[string]interface{}{
				"feedback_record_count": gorm.Expr("feedback_record_count + 1"),
				"modified":              r.clock.Now(),
			}).Error
	})
}

// CompleteFeedback attaches the feedback manifest and closes the record.
func (r *Repository) CompleteFeedback(ctx context.Context, id, feedbackManifestID uint) error {
	now := r.clock.Now()
	res := r.db.WithContext(ctx).Model(&ManifestFeedback{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"feedback_manifest_file_id": feedbackManifestID,
			"feedback_complete":         1,
			"feedback_complete_date":    now,
			"modified":                  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return genomic.NotFound("manifest feedback", id)
	}
	return nil
}

// FeedbackPastDateCutoff returns open feedback records whose input manifest
// was uploaded at least days ago and has no feedback manifest yet.
func (r *Repository) FeedbackPastDateCutoff(ctx context.Context, days int) ([]ManifestFeedback, error) {
	cutoff := r.clock.Now().AddDate(0, 0, -days)
	var out []ManifestFeedback
	err := r.db.WithContext(ctx).
		Table("genomic_manifest_feedback AS fb").
		Select("fb.*").
		Joins("JOIN genomic_manifest_file mf ON mf.id = fb.input_manifest_file_id").
		Where("fb.ignore_flag = 0 AND fb.feedback_complete = 0").
		Where("fb.feedback_manifest_file_id IS NULL").
		Where("mf.upload_date <= ?", cutoff).
		Order("fb.id").
		Find(&out).Error
	return out, err
}

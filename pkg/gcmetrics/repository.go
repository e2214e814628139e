package gcmetrics

import (
	"context"
	"errors"

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
	return r.db.AutoMigrate(&Metrics{}, &DataFile{})
}

func (r *Repository) Get(ctx context.Context, id uint) (*Metrics, error) {
	var m Metrics
	result := r.db.WithContext(ctx).First(&m, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("gc metrics", id)
	}
	return &m, result.Error
}

// UpsertFromRow writes a vendor metrics line. existingID selects the row to
// overwrite; without it the live row for the same member and pipeline is
// reused, and a new row is inserted when there is none.
func (r *Repository) UpsertFromRow(ctx context.Context, row Row, existingID *uint) (*Metrics, error) {
	values, err := columnValues(row)
	if err != nil {
		return nil, err
	}
	now := r.clock.Now()
	values["modified"] = now

	var id uint
	inserted := false
	err = database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		inserted = false
		switch {
		case existingID != nil:
			id = *existingID
		default:
			found, err := findLive(tx, values["genomic_set_member_id"], values["pipeline_id"])
			if err != nil {
				return err
			}
			id = found
		}

		if id == 0 {
			m := Metrics{Created: now, Modified: now}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			id = m.ID
			inserted = true
		}
		res := tx.Model(&Metrics{}).Where("id = ?", id).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return genomic.NotFound("gc metrics", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := "Updated"
	if inserted {
		action = "Inserted"
	}
	logger.Log.WithFields(map[string]interface{}{
		"metrics_id": id,
		"member_id":  values["genomic_set_member_id"],
	}).Info(action + " GC metrics")
	return r.Get(ctx, id)
}

func findLive(tx *gorm.DB, memberID, pipelineID interface{}) (uint, error) {
	if memberID == nil {
		return 0, nil
	}
	q := tx.Model(&Metrics{}).Where("genomic_set_member_id = ? AND ignore_flag != 1", memberID)
	if pipelineID != nil {
		q = q.Where("pipeline_id = ?", pipelineID)
	}
	var m Metrics
	result := q.Order("id DESC").First(&m)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return m.ID, result.Error
}

// UpdateDeletedFlags applies the vendor deletion markers present in row.
func (r *Repository) UpdateDeletedFlags(ctx context.Context, row Row, id uint) error {
	values := deletedFlagValues(row)
	if len(values) == 0 {
		return nil
	}
	values["modified"] = r.clock.Now()
	res := r.db.WithContext(ctx).Model(&Metrics{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return genomic.NotFound("gc metrics", id)
	}
	logger.Log.WithField("metrics_id", id).Info("Updated GC metrics deletion flags")
	return nil
}

// ByMemberID returns the live metrics of a member. An empty pipelineID
// matches any pipeline.
func (r *Repository) ByMemberID(ctx context.Context, memberID uint, pipelineID string) (*Metrics, error) {
	q := r.db.WithContext(ctx).Where("genomic_set_member_id = ? AND ignore_flag != 1", memberID)
	if pipelineID != "" {
		q = q.Where("pipeline_id = ?", pipelineID)
	}
	var m Metrics
	result := q.Order("id DESC").First(&m)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("gc metrics for member", memberID)
	}
	return &m, result.Error
}

// ReextractCandidate is a member whose contamination calls for a new
// extraction.
type ReextractCandidate struct {
	MemberID              uint
	BiobankID             string
	SampleID              *string
	GenomeType            string
	ContaminationCategory genomic.ContaminationCategory
}

// ContaminationReextract lists members categorised EXTRACT_WGS or
// EXTRACT_BOTH that have not been replated yet.
func (r *Repository) ContaminationReextract(ctx context.Context) ([]ReextractCandidate, error) {
	var out []ReextractCandidate
	err := r.db.WithContext(ctx).
		Table("genomic_set_member AS m").
		Select("m.id AS member_id, m.biobank_id, m.sample_id, m.genome_type, gm.contamination_category").
		Joins("JOIN genomic_gc_validation_metrics gm ON gm.genomic_set_member_id = m.id").
		Joins("LEFT JOIN genomic_set_member rp ON rp.replated_member_id = m.id").
		Where("gm.contamination_category IN ?", []genomic.ContaminationCategory{
			genomic.ContaminationExtractWGS,
			genomic.ContaminationExtractBoth,
		}).
		Where("m.genomic_workflow_state != ?", genomic.StateIgnore).
		Where("gm.ignore_flag = 0 AND rp.id IS NULL").
		Order("m.id").
		Scan(&out).Error
	return out, err
}

// RecordCountForFile counts live metrics loaded from the file at path.
func (r *Repository) RecordCountForFile(ctx context.Context, path string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("genomic_gc_validation_metrics AS gm").
		Joins("JOIN genomic_file_processed fp ON fp.id = gm.genomic_file_processed_id").
		Where("fp.file_path = ? AND gm.ignore_flag != 1", path).
		Count(&count).Error
	return count, err
}

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Family names a raw manifest family.
type Family string

const (
	FamilyAW1  Family = "AW1"
	FamilyAW2  Family = "AW2"
	FamilyAW3  Family = "AW3"
	FamilyAW4  Family = "AW4"
	FamilyW2W  Family = "W2W"
	FamilyW3SC Family = "W3SC"
	FamilyW4WR Family = "W4WR"
	FamilyLR   Family = "LR"
	FamilyL1   Family = "L1"
	FamilyPR   Family = "PR"
	FamilyP1   Family = "P1"
	FamilyRR   Family = "RR"
	FamilyR1   Family = "R1"
)

var families = map[Family]struct{}{
	FamilyAW1: {}, FamilyAW2: {}, FamilyAW3: {}, FamilyAW4: {},
	FamilyW2W: {}, FamilyW3SC: {}, FamilyW4WR: {},
	FamilyLR: {}, FamilyL1: {}, FamilyPR: {}, FamilyP1: {}, FamilyRR: {}, FamilyR1: {},
}

func ParseFamily(name string) (Family, error) {
	f := Family(name)
	if _, ok := families[f]; !ok {
		return "", fmt.Errorf("unknown manifest family %q", name)
	}
	return f, nil
}

// RawManifestRow is one line of a received manifest, kept verbatim in
// Payload next to the columns reconciliation keys on.
type RawManifestRow struct {
	ID                   uint              `gorm:"primaryKey;column:id"`
	Created              time.Time         `gorm:"column:created;index"`
	ManifestType         Family            `gorm:"column:manifest_type;index"`
	FilePath             string            `gorm:"column:file_path;index"`
	BiobankID            string            `gorm:"column:biobank_id;index"`
	SampleID             string            `gorm:"column:sample_id;index"`
	CollectionTubeID     string            `gorm:"column:collection_tube_id"`
	GenomeType           string            `gorm:"column:genome_type"`
	TestName             string            `gorm:"column:test_name"`
	SiteID               string            `gorm:"column:site_id"`
	ClinicalAnalysisType string            `gorm:"column:clinical_analysis_type"`
	IgnoreFlag           int               `gorm:"column:ignore_flag"`
	Payload              datatypes.JSONMap `gorm:"column:payload"`
}

func (RawManifestRow) TableName() string {
	return "genomic_raw_manifest_row"
}

// RawRepository stores raw manifest rows. Rows are append-only apart from
// removal by file path when a file is reprocessed.
type RawRepository struct {
	db        *gorm.DB
	clock     clock.Clock
	settings  config.Settings
	policy    database.RetryPolicy
	batchSize int
}

func NewRawRepository(db *gorm.DB, clk clock.Clock, settings config.Settings) *RawRepository {
	return &RawRepository{
		db:        db,
		clock:     clock.Or(clk),
		settings:  settings,
		policy:    database.DefaultRetryPolicy(),
		batchSize: database.DefaultBatchSize,
	}
}

// WithBatchSize sets the rows per INSERT statement.
func (r *RawRepository) WithBatchSize(n int) *RawRepository {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

func (r *RawRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&RawManifestRow{}, &PastDueResult{})
}

// InsertBatch writes rows in multi-row statements. Rows without a created
// time get the current time.
func (r *RawRepository) InsertBatch(ctx context.Context, rows []RawManifestRow) error {
	return r.InsertBatchTx(ctx, r.db, rows)
}

// InsertBatchTx is InsertBatch inside the caller's transaction.
func (r *RawRepository) InsertBatchTx(ctx context.Context, tx *gorm.DB, rows []RawManifestRow) error {
	if len(rows) == 0 {
		return nil
	}
	now := r.clock.Now()
	for i := range rows {
		if rows[i].Created.IsZero() {
			rows[i].Created = now
		}
	}
	if err := database.InsertInBatches(ctx, tx, &rows, r.batchSize); err != nil {
		return fmt.Errorf("insert raw %s rows: %w", rows[0].ManifestType, err)
	}
	metrics.ObserveRawRows(string(rows[0].ManifestType), len(rows))
	return nil
}

// ReplaceFile swaps the rows stored for path with rows in one transaction,
// so a reprocessed file never leaves duplicates behind.
func (r *RawRepository) ReplaceFile(ctx context.Context, family Family, path string, rows []RawManifestRow) (replaced int64, err error) {
	err = database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		res := tx.Where("manifest_type = ? AND file_path = ?", family, path).Delete(&RawManifestRow{})
		if res.Error != nil {
			return fmt.Errorf("delete raw %s rows for %s: %w", family, path, res.Error)
		}
		replaced = res.RowsAffected
		return r.InsertBatchTx(ctx, tx, rows)
	})
	return replaced, err
}

func (r *RawRepository) DeleteByFilePath(ctx context.Context, family Family, path string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("manifest_type = ? AND file_path = ?", family, path).
		Delete(&RawManifestRow{})
	return res.RowsAffected, res.Error
}

// CountForFilePath counts the rows received from path. AW1 lines without a
// biobank id are padding and are not counted.
func (r *RawRepository) CountForFilePath(ctx context.Context, family Family, path string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&RawManifestRow{}).
		Where("manifest_type = ? AND file_path = ?", family, path)
	if family == FamilyAW1 {
		q = q.Where("biobank_id != ''")
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// LatestByIdentifier returns the newest live row for identifier (biobank id
// for AW1, sample id otherwise) received in a file of genomeType, optionally
// only among rows created after createdAfter.
func (r *RawRepository) LatestByIdentifier(ctx context.Context, family Family, identifier, genomeType string, createdAfter *time.Time) (*RawManifestRow, error) {
	prefix, ok := r.settings.FilePrefix(genomeType)
	if !ok {
		return nil, fmt.Errorf("no file prefix for genome type %q", genomeType)
	}
	column := "sample_id"
	if family == FamilyAW1 {
		column = "biobank_id"
	}
	q := r.db.WithContext(ctx).
		Where("manifest_type = ?", family).
		Where(column+" = ?", identifier).
		Where("file_path LIKE ? ESCAPE '$'", "%$_"+prefix+"$_%").
		Where("ignore_flag = 0")
	if createdAfter != nil {
		q = q.Where("created > ?", createdAfter.UTC())
	}
	var row RawManifestRow
	result := q.Order("created DESC, id DESC").First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("raw "+string(family)+" row", identifier)
	}
	return &row, result.Error
}

// ByFilePath returns the live rows received from path in line order.
func (r *RawRepository) ByFilePath(ctx context.Context, family Family, path string) ([]RawManifestRow, error) {
	var rows []RawManifestRow
	err := r.db.WithContext(ctx).
		Where("manifest_type = ? AND file_path = ? AND ignore_flag = 0", family, path).
		Order("id").
		Find(&rows).Error
	return rows, err
}

package reconcile

import (
	"context"
	"fmt"
	"time"
)

// IngestionCount compares, for one received file, how many raw lines
// arrived with how many made it into the ledger or metrics tables.
type IngestionCount struct {
	FilePath      string `gorm:"column:file_path"`
	RawCount      int64  `gorm:"column:raw_count"`
	IngestedCount int64  `gorm:"column:ingested_count"`
}

func (c IngestionCount) Complete() bool {
	return c.IngestedCount >= c.RawCount
}

// ingestedBy says how a raw line of a family is counted as ingested.
var ingestedBy = map[Family]string{
	FamilyAW1: `EXISTS (
		SELECT 1 FROM genomic_set_member m
		WHERE m.biobank_id = raw.biobank_id AND m.collection_tube_id = raw.collection_tube_id)`,
	FamilyAW2: `EXISTS (
		SELECT 1 FROM genomic_set_member m
		JOIN genomic_gc_validation_metrics gm ON gm.genomic_set_member_id = m.id
		WHERE m.sample_id = raw.sample_id)`,
}

// IngestionCountsSince returns per file the raw and ingested line counts of
// family for raw rows created at or after from, ordered by file path.
func (e *Engine) IngestionCountsSince(ctx context.Context, from time.Time, family Family) ([]IngestionCount, error) {
	ingested, ok := ingestedBy[family]
	if !ok {
		return nil, fmt.Errorf("no ingestion count defined for %s", family)
	}
	q := e.db.WithContext(ctx).Table("genomic_raw_manifest_row AS raw").
		Select(fmt.Sprintf(`raw.file_path,
			COUNT(*) AS raw_count,
			SUM(CASE WHEN %s THEN 1 ELSE 0 END) AS ingested_count`, ingested)).
		Where("raw.manifest_type = ? AND raw.ignore_flag = 0 AND raw.created >= ?", family, from.UTC()).
		Group("raw.file_path").
		Order("raw.file_path")
	if family == FamilyAW1 {
		q = q.Where("raw.biobank_id != ''")
	}
	var out []IngestionCount
	err := q.Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("count %s ingestion since %s: %w", family, from.Format(time.RFC3339), err)
	}
	return out, nil
}

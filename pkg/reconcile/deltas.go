package reconcile

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
	"gorm.io/gorm"
)

// deltaKeys are the natural key columns raw rows are matched on.
var deltaKeys = map[Family][]string{
	FamilyAW1: {"biobank_id", "collection_tube_id"},
	FamilyAW2: {"sample_id"},
}

// FindIngestionDeltas returns the raw rows of family that never made it into
// the ledger. For AW1 that is a line whose biobank id and collection tube
// match no record. For AW2 it is a line whose record exists, was not
// replated, and has no metrics row. Duplicate lines for the same key
// collapse to the newest, ties going to the highest id.
func (e *Engine) FindIngestionDeltas(ctx context.Context, family Family) ([]RawManifestRow, error) {
	keys, ok := deltaKeys[family]
	if !ok {
		return nil, fmt.Errorf("no ingestion delta defined for %s", family)
	}

	q := e.db.WithContext(ctx).Table("genomic_raw_manifest_row AS raw").
		Select("raw.*").
		Joins(newerDuplicate(family, keys)).
		Where("later.id IS NULL").
		Where("raw.manifest_type = ? AND raw.ignore_flag = 0", family)
	q = eligible(q, "raw", family)

	switch family {
	case FamilyAW1:
		q = q.Where(`NOT EXISTS (
			SELECT 1 FROM genomic_set_member m
			WHERE m.biobank_id = raw.biobank_id AND m.collection_tube_id = raw.collection_tube_id)`)
	case FamilyAW2:
		q = q.Where(`EXISTS (
			SELECT 1 FROM genomic_set_member m
			WHERE m.sample_id = raw.sample_id
			AND m.replated_member_id IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM genomic_gc_validation_metrics gm
				WHERE gm.genomic_set_member_id = m.id))`)
	}

	var rows []RawManifestRow
	if err := q.Order("raw.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("find %s ingestion deltas: %w", family, err)
	}
	metrics.ObserveDeltas(string(family), len(rows))
	if len(rows) > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"family": family,
			"deltas": len(rows),
		}).Warn("Raw manifest rows missing from ledger")
	}
	return rows, nil
}

// presentColumns are the columns a row of family must fill to take part in
// delta detection.
func presentColumns(family Family) []string {
	cols := []string{"biobank_id", "sample_id"}
	if family == FamilyAW1 {
		cols = append(cols, "collection_tube_id", "test_name")
	}
	return cols
}

func present(alias, column string) string {
	return fmt.Sprintf("%[1]s.%[2]s IS NOT NULL AND %[1]s.%[2]s != ''", alias, column)
}

// eligible restricts alias to rows whose key parts are all present.
func eligible(q *gorm.DB, alias string, family Family) *gorm.DB {
	for _, c := range presentColumns(family) {
		q = q.Where(present(alias, c))
	}
	return q
}

// newerDuplicate joins the newer live, eligible rows sharing raw's key, so
// that "later.id IS NULL" keeps only the winner of each key.
func newerDuplicate(family Family, keys []string) string {
	on := "later.manifest_type = raw.manifest_type AND later.ignore_flag = 0"
	for _, k := range keys {
		on += fmt.Sprintf(" AND later.%[1]s = raw.%[1]s", k)
	}
	for _, c := range presentColumns(family) {
		on += " AND " + present("later", c)
	}
	return "LEFT JOIN genomic_raw_manifest_row later ON " + on +
		" AND (later.created > raw.created OR (later.created = raw.created AND later.id > raw.id))"
}

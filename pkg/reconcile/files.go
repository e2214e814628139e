package reconcile

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/genomics/pkg/gcmetrics"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"gorm.io/gorm"
)

// completeMembers selects the ids of members holding every required,
// non-ignored data file type of genomeType. Array files are keyed by the
// chip well barcode on the metrics row, WGS files by sample id.
func completeMembers(db *gorm.DB, genomeType string) (*gorm.DB, error) {
	required, err := gcmetrics.RequiredFileTypes(genomeType)
	if err != nil {
		return nil, err
	}
	q := db.Table("genomic_set_member AS m").Select("m.id")
	if gcmetrics.IdentifierTypeFor(genomeType) == gcmetrics.IdentifierChipwellBarcode {
		q = q.Joins("JOIN genomic_gc_validation_metrics gm ON gm.genomic_set_member_id = m.id AND gm.ignore_flag = 0").
			Joins("JOIN genomic_gc_data_file df ON df.identifier_type = ? AND df.identifier_value = gm.chipwellbarcode",
				gcmetrics.IdentifierChipwellBarcode)
	} else {
		q = q.Joins("JOIN genomic_gc_data_file df ON df.identifier_type = ? AND df.identifier_value = m.sample_id",
			gcmetrics.IdentifierSampleID)
	}
	return q.
		Where("m.genome_type = ?", genomeType).
		Where("df.ignore_flag = 0 AND df.file_type IN ?", required).
		Group("m.id").
		Having("COUNT(DISTINCT df.file_type) = ?", len(required)), nil
}

// FindMissingRequiredFiles returns the GC_DATA_FILES_MISSING records of
// genomeType whose data files are now all present. A record with one file
// short is never returned. sampleIDs narrows the search when non-empty.
func (e *Engine) FindMissingRequiredFiles(ctx context.Context, genomeType string, sampleIDs []string) ([]ledger.SampleRecord, error) {
	db := e.db.WithContext(ctx)
	complete, err := completeMembers(db, genomeType)
	if err != nil {
		return nil, err
	}
	q := db.Model(&ledger.SampleRecord{}).
		Where("genomic_workflow_state = ? AND genome_type = ? AND ignore_flag = 0",
			genomic.StateGCDataFilesMissing, genomeType).
		Where("id IN (?)", complete)
	if len(sampleIDs) > 0 {
		q = q.Where("sample_id IN ?", sampleIDs)
	}
	var records []ledger.SampleRecord
	if err := q.Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("find complete data files for %s: %w", genomeType, err)
	}
	return records, nil
}

// HasAllRequiredFiles reports whether member has every data file its genome
// type requires, whatever its workflow state.
func (e *Engine) HasAllRequiredFiles(ctx context.Context, member ledger.SampleRecord) (bool, error) {
	db := e.db.WithContext(ctx)
	complete, err := completeMembers(db, member.GenomeType)
	if err != nil {
		return false, err
	}
	var count int64
	err = db.Table("(?) AS complete", complete.Where("m.id = ?", member.ID)).Count(&count).Error
	return count > 0, err
}

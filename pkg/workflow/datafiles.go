package workflow

import (
	"context"

	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/ledger"
)

// CompletenessFinder returns the GC_DATA_FILES_MISSING records of a genome
// type that now have every required data file.
type CompletenessFinder interface {
	FindMissingRequiredFiles(ctx context.Context, genomeType string, sampleIDs []string) ([]ledger.SampleRecord, error)
}

// readyAfterFiles is where a record goes once its data files are complete.
var readyAfterFiles = map[string]genomic.WorkflowState{
	config.GenomeTypeArray: genomic.StateGEMReady,
	config.GenomeTypeWGS:   genomic.StateCVLReady,
}

// ResolvedDataFiles advances records whose missing data files have all
// arrived and returns how many moved.
func (m *Machine) ResolvedDataFiles(ctx context.Context, finder CompletenessFinder) (int, error) {
	moved := 0
	for _, genomeType := range []string{config.GenomeTypeArray, config.GenomeTypeWGS} {
		complete, err := finder.FindMissingRequiredFiles(ctx, genomeType, nil)
		if err != nil {
			return moved, err
		}
		ids := make([]uint, len(complete))
		for i, rec := range complete {
			ids[i] = rec.ID
		}
		if err := m.AdvanceMany(ctx, ids, readyAfterFiles[genomeType]); err != nil {
			return moved, err
		}
		moved += len(ids)
		if len(ids) > 0 {
			logger.Log.WithFields(map[string]interface{}{
				"genome_type": genomeType,
				"members":     len(ids),
			}).Info("Resolved missing data files")
		}
	}
	return moved, nil
}

package subworkflow

import (
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
)

type Pipeline string

const (
	PipelineLongRead   Pipeline = "long_read"
	PipelineProteomics Pipeline = "proteomics"
	PipelineRNA        Pipeline = "rna"
)

// Stage is the manifest step of a pipeline: the request lists biobank ids,
// the sample manifest returns the lab's sample ids.
type Stage int

const (
	StageRequest Stage = iota + 1
	StageSample
)

func (s Stage) String() string {
	switch s {
	case StageRequest:
		return "request"
	case StageSample:
		return "sample"
	}
	return "unknown"
}

// Definition describes how members are selected for one pipeline.
type Definition struct {
	Pipeline      Pipeline
	RequestJob    genomic.Job
	SampleJob     genomic.Job
	RequestFamily reconcile.Family
	SampleFamily  reconcile.Family

	// SourceGenomeType is the ledger genome type members are drawn from.
	SourceGenomeType string
	// StoredSampleTest, when set, takes the collection tube from the
	// participant's stored sample with this test code instead of the
	// ledger record.
	StoredSampleTest string
	RequireQCPass    bool
	ExcludeAIAN      bool
	// Platforms lists the accepted sequencing platforms. Empty means the
	// pipeline has no platform.
	Platforms []string
	// SiteFromFileName reads the site of a sample manifest from its file
	// name prefix rather than from the rows.
	SiteFromFileName bool
}

var Definitions = []Definition{
	{
		Pipeline:         PipelineLongRead,
		RequestJob:       genomic.JobLRLRWorkflow,
		SampleJob:        genomic.JobLRL1Workflow,
		RequestFamily:    reconcile.FamilyLR,
		SampleFamily:     reconcile.FamilyL1,
		SourceGenomeType: config.GenomeTypeWGS,
		Platforms:        []string{"PACBIO_CCS", "ONT"},
	},
	{
		Pipeline:         PipelineProteomics,
		RequestJob:       genomic.JobPRPRWorkflow,
		SampleJob:        genomic.JobPRP1Workflow,
		RequestFamily:    reconcile.FamilyPR,
		SampleFamily:     reconcile.FamilyP1,
		SourceGenomeType: config.GenomeTypeArray,
		StoredSampleTest: "1ED10",
		RequireQCPass:    true,
		ExcludeAIAN:      true,
		SiteFromFileName: true,
	},
	{
		Pipeline:         PipelineRNA,
		RequestJob:       genomic.JobRNARRWorkflow,
		SampleJob:        genomic.JobRNAR1Workflow,
		RequestFamily:    reconcile.FamilyRR,
		SampleFamily:     reconcile.FamilyR1,
		SourceGenomeType: config.GenomeTypeArray,
		StoredSampleTest: "1PXR2",
		RequireQCPass:    true,
		ExcludeAIAN:      true,
		SiteFromFileName: true,
	},
}

// ForJob finds the pipeline and stage a job runs.
func ForJob(job genomic.Job) (Definition, Stage, bool) {
	for _, d := range Definitions {
		switch job {
		case d.RequestJob:
			return d, StageRequest, true
		case d.SampleJob:
			return d, StageSample, true
		}
	}
	return Definition{}, 0, false
}

// ForFamily finds the pipeline and stage a raw manifest family feeds.
func ForFamily(f reconcile.Family) (Definition, Stage, bool) {
	for _, d := range Definitions {
		switch f {
		case d.RequestFamily:
			return d, StageRequest, true
		case d.SampleFamily:
			return d, StageSample, true
		}
	}
	return Definition{}, 0, false
}

// Job returns the job a stage of the pipeline runs as.
func (d Definition) Job(s Stage) genomic.Job {
	if s == StageSample {
		return d.SampleJob
	}
	return d.RequestJob
}

func (d Definition) acceptsPlatform(p string) bool {
	for _, ok := range d.Platforms {
		if ok == p {
			return true
		}
	}
	return false
}

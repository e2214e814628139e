package workflow

import (
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/genomic"
)

// shape is the state alphabet of one genome type pipeline.
type shape struct {
	label    string
	valid    map[genomic.WorkflowState]struct{}
	terminal map[genomic.WorkflowState]struct{}
}

var terminalStates = toSet(genomic.StateIgnore, genomic.StateWithdrawn, genomic.StateControlSample)

var intake = []genomic.WorkflowState{
	genomic.StateUnset,
	genomic.StateAW0Ready,
	genomic.StateAW0,
	genomic.StateAW1,
	genomic.StateAW1FPre,
	genomic.StateAW1FPost,
	genomic.StateAW1C,
	genomic.StateAW1CFPre,
	genomic.StateAW1CFPost,
	genomic.StateAW2,
	genomic.StateGCDataFilesMissing,
	genomic.StateAW2Fail,
	genomic.StateExtractRequested,
}

var shapes = map[string]shape{
	config.GenomeTypeArray: {
		label:    "array",
		terminal: terminalStates,
		valid: toSet(append(intake,
			genomic.StateGEMReady,
			genomic.StateA1,
			genomic.StateA2,
			genomic.StateA2F,
			genomic.StateA3,
			genomic.StateGEMRptReady,
			genomic.StateGEMRptPendingDelete,
			genomic.StateGEMRptDeleted,
			genomic.StateGEMRptAccessed,
		)...),
	},
	config.GenomeTypeWGS: {
		label:    "wgs",
		terminal: terminalStates,
		valid: toSet(append(intake,
			genomic.StateCVLReady,
			genomic.StateW1,
			genomic.StateW2,
			genomic.StateW3,
			genomic.StateW4,
			genomic.StateW4F,
			genomic.StateCVLW1IL,
			genomic.StateCVLW2SC,
			genomic.StateRHPStart,
			genomic.StateRHPRptReady,
			genomic.StateRHPRptPendingDelete,
			genomic.StateRHPRptDeleted,
			genomic.StateRHPRptAccessed,
			genomic.StateCVLRptPendingDelete,
			genomic.StateCVLRptDeleted,
		)...),
	},
	config.GenomeTypeLongRead: {
		label:    "long read",
		terminal: terminalStates,
		valid: toSet(
			genomic.StateUnset,
			genomic.StateLRPending,
			genomic.StateLRAccepted,
			genomic.StateLRRejected,
		),
	},
}

func toSet(states ...genomic.WorkflowState) map[genomic.WorkflowState]struct{} {
	out := make(map[genomic.WorkflowState]struct{}, len(states))
	for _, s := range states {
		out[s] = struct{}{}
	}
	return out
}

// Shape reports whether moving a genomeType record from -> to stays inside
// its pipeline. The reason is empty when it does. Genome types without a
// table are never off shape.
func Shape(genomeType string, from, to genomic.WorkflowState) (bool, string) {
	sh, ok := shapes[genomeType]
	if !ok {
		return true, ""
	}
	if _, terminal := sh.terminal[from]; terminal && from != to {
		return false, "leaves terminal state " + from.String()
	}
	_, valid := sh.valid[to]
	_, terminal := sh.terminal[to]
	if !valid && !terminal {
		return false, to.String() + " is not a " + sh.label + " state"
	}
	return true, ""
}

// IsTerminal reports whether s ends every pipeline.
func IsTerminal(s genomic.WorkflowState) bool {
	_, ok := terminalStates[s]
	return ok
}

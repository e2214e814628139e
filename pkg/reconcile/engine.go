// Package reconcile diffs what partners sent (raw manifest rows, data files)
// against what the ledger and metrics tables hold.
package reconcile

import (
	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"gorm.io/gorm"
)

// Engine runs the reconciliation queries. It only reads, apart from the
// past-due ledger it owns.
type Engine struct {
	db       *gorm.DB
	clock    clock.Clock
	policy   database.RetryPolicy
	settings config.Settings
	policies map[genomic.ResultsModuleType]DeadlinePolicy
	raw      *RawRepository
}

func NewEngine(db *gorm.DB, clk clock.Clock, settings config.Settings) *Engine {
	clk = clock.Or(clk)
	return &Engine{
		db:       db,
		clock:    clk,
		policy:   database.DefaultRetryPolicy(),
		settings: settings,
		policies: PoliciesFromLimits(settings.CVLLimits),
		raw:      NewRawRepository(db, clk, settings),
	}
}

func (e *Engine) WithPolicy(policy database.RetryPolicy) *Engine {
	e.policy = policy
	return e
}

func (e *Engine) Raw() *RawRepository { return e.raw }

package jobs

import (
	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/gcmetrics"
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/jobrun"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"github.com/synaptica-ai/genomics/pkg/outreach"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
	"github.com/synaptica-ai/genomics/pkg/subworkflow"
	"github.com/synaptica-ai/genomics/pkg/workflow"
	"gorm.io/gorm"
)

// Env wires the repositories and engines the jobs share.
type Env struct {
	Config   *config.Config
	Settings config.Settings
	Clock    clock.Clock

	DB           *gorm.DB
	Runs         *jobrun.Repository
	Ledger       *ledger.Repository
	Participants *ledger.Participants
	Machine      *workflow.Machine
	Metrics      *gcmetrics.Repository
	Engine       *reconcile.Engine
	Incidents    *incident.Repository
	Reporter     *incident.Reporter
	Outreach     *outreach.Store
	Subworkflows *subworkflow.Runner

	// Sink receives the summary notifications jobs send to sites and
	// operators.
	Sink incident.Sink
}

func NewEnv(db *gorm.DB, cfg *config.Config, settings config.Settings, clk clock.Clock, sink incident.Sink, gate incident.Gate) *Env {
	clk = clock.Or(clk)
	policy := database.PolicyFromConfig(cfg)

	led := ledger.NewRepository(db, clk).WithPolicy(policy)
	incidents := incident.NewRepository(db, clk).WithMaxMessageLength(cfg.IncidentMaxMessageLen)
	reporter := incident.NewReporter(incidents, sink, gate)

	return &Env{
		Config:       cfg,
		Settings:     settings,
		Clock:        clk,
		DB:           db,
		Runs:         jobrun.NewRepository(db, clk),
		Ledger:       led,
		Participants: ledger.NewParticipants(db),
		Machine:      workflow.NewMachine(led),
		Metrics:      gcmetrics.NewRepository(db, clk),
		Engine:       reconcile.NewEngine(db, clk, settings).WithPolicy(policy),
		Incidents:    incidents,
		Reporter:     reporter,
		Outreach:     outreach.NewStore(db, clk),
		Subworkflows: subworkflow.NewRunner(db, clk, reporter),
		Sink:         sink,
	}
}

// Migrate creates or updates every table the service owns, plus the
// participant read models used in local runs.
func (e *Env) Migrate() error {
	for _, migrate := range []func() error{
		e.Runs.AutoMigrate,
		e.Ledger.AutoMigrate,
		e.Participants.AutoMigrate,
		e.Metrics.AutoMigrate,
		e.Engine.Raw().AutoMigrate,
		e.Incidents.AutoMigrate,
		e.Outreach.AutoMigrate,
		e.Subworkflows.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			return err
		}
	}
	return nil
}

// Package subworkflow enrolls ledger members into the long-read,
// proteomics and RNA pipelines and records the sample ids their labs
// return.
package subworkflow

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"gorm.io/gorm"
)

// Row is one line of a request or sample manifest. BiobankID is stored
// without the environment prefix.
type Row struct {
	BiobankID        string
	CollectionTubeID string
	SampleID         string
	GenomeType       string
	SiteID           string
	Platform         string
}

type Request struct {
	JobRunID         uint
	ManifestFileName string
	Rows             []Row
}

type Result struct {
	SetNumber int
	Inserted  int
	Updated   int
	Missing   []string
}

// Recorder stores incidents. incident.Reporter satisfies it.
type Recorder interface {
	Record(ctx context.Context, inc incident.Incident) (*incident.Incident, error)
}

type Runner struct {
	db        *gorm.DB
	clock     clock.Clock
	policy    database.RetryPolicy
	incidents Recorder
}

func NewRunner(db *gorm.DB, clk clock.Clock, incidents Recorder) *Runner {
	return &Runner{
		db:        db,
		clock:     clock.Or(clk),
		policy:    database.DefaultRetryPolicy(),
		incidents: incidents,
	}
}

func (r *Runner) AutoMigrate() error {
	return r.db.AutoMigrate(&PipelineMember{})
}

// Run executes the stage job belongs to.
func (r *Runner) Run(ctx context.Context, job genomic.Job, req Request) (Result, error) {
	def, stage, ok := ForJob(job)
	if !ok {
		return Result{}, genomic.NewValidationError("job %s has no sub-workflow", job)
	}
	return r.RunStage(ctx, def, stage, req)
}

func (r *Runner) RunStage(ctx context.Context, def Definition, stage Stage, req Request) (Result, error) {
	if len(req.Rows) == 0 {
		return Result{}, nil
	}
	if stage == StageSample {
		return r.runSample(ctx, def, req)
	}
	return r.runRequest(ctx, def, req)
}

type candidate struct {
	GenomicSetMemberID uint   `gorm:"column:genomic_set_member_id"`
	BiobankID          string `gorm:"column:biobank_id"`
	CollectionTubeID   string `gorm:"column:collection_tube_id"`
}

func (r *Runner) runRequest(ctx context.Context, def Definition, req Request) (Result, error) {
	first := req.Rows[0]
	platform, err := r.platform(def, first)
	if err != nil {
		return Result{}, err
	}
	requested := uniqueBiobankIDs(req.Rows)

	var res Result
	err = database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		var maxSet int
		if err := tx.Model(&PipelineMember{}).
			Where("pipeline = ?", def.Pipeline).
			Select("COALESCE(MAX(set_number), 0)").
			Scan(&maxSet).Error; err != nil {
			return fmt.Errorf("max %s set: %w", def.Pipeline, err)
		}
		res = Result{SetNumber: maxSet + 1}

		var found []candidate
		if err := eligible(tx, def, requested).Scan(&found).Error; err != nil {
			return fmt.Errorf("eligible %s members: %w", def.Pipeline, err)
		}

		now := r.clock.Now()
		runID := req.JobRunID
		members := make([]PipelineMember, 0, len(found))
		for _, c := range found {
			members = append(members, PipelineMember{
				Created:            now,
				Modified:           now,
				Pipeline:           def.Pipeline,
				GenomicSetMemberID: c.GenomicSetMemberID,
				BiobankID:          c.BiobankID,
				CollectionTubeID:   c.CollectionTubeID,
				GenomeType:         first.GenomeType,
				SiteID:             strings.ToLower(first.SiteID),
				Platform:           platform,
				SetNumber:          res.SetNumber,
				CreatedJobRunID:    &runID,
			})
		}
		if len(members) > 0 {
			if err := database.InsertInBatches(ctx, tx, &members, database.DefaultBatchSize); err != nil {
				return fmt.Errorf("insert %s members: %w", def.Pipeline, err)
			}
		}
		res.Inserted = len(members)
		res.Missing = missing(requested, found)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"pipeline":   def.Pipeline,
		"set_number": res.SetNumber,
		"inserted":   res.Inserted,
		"missing":    len(res.Missing),
		"manifest":   req.ManifestFileName,
	}).Info("Ingested sub-workflow request manifest")

	if len(res.Missing) > 0 {
		r.reportMissing(ctx, def, req, res.Missing)
	}
	return res, nil
}

// eligible selects the requested ledger members that may join the
// pipeline. Members already enrolled are left out and so count as missing.
func eligible(tx *gorm.DB, def Definition, biobankIDs []string) *gorm.DB {
	q := tx.Table("genomic_set_member AS m").
		Joins("JOIN participant_summary ps ON ps.participant_id = m.participant_id")

	if def.StoredSampleTest != "" {
		q = q.Select("DISTINCT m.id AS genomic_set_member_id, m.biobank_id, bss.biobank_stored_sample_id AS collection_tube_id").
			Joins("JOIN biobank_stored_sample bss ON bss.biobank_id = m.biobank_id AND bss.test = ?", def.StoredSampleTest)
	} else {
		q = q.Select("DISTINCT m.id AS genomic_set_member_id, m.biobank_id, m.collection_tube_id")
	}

	q = q.Where("ps.withdrawal_status = ? AND ps.suspension_status = ? AND ps.consent_for_study_enrollment = ?",
		ledger.WithdrawalNotWithdrawn, ledger.SuspensionNotSuspended, ledger.QuestionnaireSubmitted).
		Where("m.genome_type = ?", def.SourceGenomeType).
		Where("LOWER(m.gc_manifest_sample_source) = ?", "whole blood").
		Where("m.diversion_pouch_site_flag != 1 AND m.block_results != 1 AND m.block_research != 1 AND m.ignore_flag != 1").
		Where("m.biobank_id IN ?", biobankIDs).
		Where("NOT EXISTS (SELECT 1 FROM genomic_pipeline_member pm WHERE pm.pipeline = ? AND pm.genomic_set_member_id = m.id AND pm.ignore_flag = 0)", def.Pipeline)

	if def.RequireQCPass {
		q = q.Where("m.qc_status = ?", genomic.QcPass)
	}
	if def.ExcludeAIAN {
		q = q.Where("m.ai_an = ?", "N")
	}
	return q.Order("m.id")
}

func (r *Runner) reportMissing(ctx context.Context, def Definition, req Request, ids []string) {
	if r.incidents == nil {
		return
	}
	msg := fmt.Sprintf("%s: Biobank IDs [%s] failed request manifest validation: %s",
		def.RequestJob, strings.Join(ids, ","), req.ManifestFileName)
	inc := incident.New(genomic.IncidentRequestManifestValidationFail, msg).WithSlack()
	runID := req.JobRunID
	inc.SourceJobRunID = &runID
	inc.ManifestFileName = req.ManifestFileName
	if _, err := r.incidents.Record(ctx, inc); err != nil {
		logger.Log.WithError(err).WithField("pipeline", def.Pipeline).Error("Failed to record request manifest incident")
	}
}

func (r *Runner) runSample(ctx context.Context, def Definition, req Request) (Result, error) {
	withSample := make([]Row, 0, len(req.Rows))
	for _, row := range req.Rows {
		if row.SampleID != "" {
			withSample = append(withSample, row)
		}
	}
	if len(withSample) == 0 {
		return Result{}, nil
	}
	platform, err := r.platform(def, withSample[0])
	if err != nil {
		return Result{}, err
	}
	site := strings.ToLower(withSample[0].SiteID)
	if def.SiteFromFileName {
		site = siteFromFileName(req.ManifestFileName)
	}

	biobankIDs := uniqueBiobankIDs(withSample)
	tubes := make([]string, 0, len(withSample))
	bySampleKey := make(map[string]string, len(withSample))
	for _, row := range withSample {
		tubes = append(tubes, row.CollectionTubeID)
		bySampleKey[row.BiobankID+"|"+row.CollectionTubeID] = row.SampleID
	}

	var res Result
	err = database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		q := tx.Model(&PipelineMember{}).
			Where("pipeline = ? AND sample_id IS NULL AND ignore_flag = 0", def.Pipeline).
			Where("biobank_id IN ? AND collection_tube_id IN ?", biobankIDs, tubes).
			Where("site_id = ?", site)
		if platform != "" {
			q = q.Where("platform = ?", platform)
		}
		var pending []PipelineMember
		if err := q.Order("id").Find(&pending).Error; err != nil {
			return fmt.Errorf("pending %s members: %w", def.Pipeline, err)
		}

		now := r.clock.Now()
		updates := make([]database.RowUpdate, 0, len(pending))
		for _, m := range pending {
			sampleID, ok := bySampleKey[m.BiobankID+"|"+m.CollectionTubeID]
			if !ok {
				continue
			}
			updates = append(updates, database.RowUpdate{
				ID:     m.ID,
				Values: map[string]interface{}{"sample_id": sampleID, "modified": now},
			})
		}
		res.Updated = len(updates)
		return database.BulkUpdate(ctx, tx, &PipelineMember{}, updates)
	})
	if err != nil {
		return Result{}, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"pipeline": def.Pipeline,
		"site_id":  site,
		"updated":  res.Updated,
		"rows":     len(withSample),
	}).Info("Ingested sub-workflow sample manifest")
	return res, nil
}

func (r *Runner) platform(def Definition, row Row) (string, error) {
	if len(def.Platforms) == 0 {
		return "", nil
	}
	p := strings.ToUpper(strings.TrimSpace(row.Platform))
	if !def.acceptsPlatform(p) {
		return "", genomic.NewValidationError("unknown %s platform %q", def.Pipeline, row.Platform)
	}
	return p, nil
}

// MaxSet returns the highest set number used by the pipeline, 0 when empty.
func (r *Runner) MaxSet(ctx context.Context, p Pipeline) (int, error) {
	var maxSet int
	err := r.db.WithContext(ctx).Model(&PipelineMember{}).
		Where("pipeline = ?", p).
		Select("COALESCE(MAX(set_number), 0)").
		Scan(&maxSet).Error
	return maxSet, err
}

func (r *Runner) Members(ctx context.Context, p Pipeline) ([]PipelineMember, error) {
	var out []PipelineMember
	err := r.db.WithContext(ctx).Where("pipeline = ? AND ignore_flag = 0", p).Order("id").Find(&out).Error
	return out, err
}

func siteFromFileName(name string) string {
	base := path.Base(name)
	return strings.ToLower(strings.SplitN(base, "_", 2)[0])
}

func uniqueBiobankIDs(rows []Row) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.BiobankID]; ok || row.BiobankID == "" {
			continue
		}
		seen[row.BiobankID] = struct{}{}
		out = append(out, row.BiobankID)
	}
	return out
}

func missing(requested []string, found []candidate) []string {
	got := make(map[string]struct{}, len(found))
	for _, c := range found {
		got[c.BiobankID] = struct{}{}
	}
	var out []string
	for _, id := range requested {
		if _, ok := got[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

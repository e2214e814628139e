// Package jobs defines the batch jobs run by the genomic-jobs CLI and the
// worker's schedules. Every job runs under a jobrun.Tracker so it leaves
// exactly one terminal run record.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/jobrun"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
)

// defaultLookback bounds the first run of a job that reads "since the last
// successful run".
const defaultLookback = 7 * 24 * time.Hour

type Job struct {
	Name  string
	ID    genomic.Job
	Short string
	Run   jobrun.Func
}

// Registry lists every job. Bodies read env when they run, so env may be
// filled in after Registry is called.
func Registry(env *Env) []Job {
	return []Job{
		{
			Name:  "reconcile-raw-aw1",
			ID:    genomic.JobReconcileRawAW1Ingested,
			Short: "Report AW1 raw rows that never reached the sample ledger",
			Run:   env.deltas(reconcile.FamilyAW1),
		},
		{
			Name:  "reconcile-raw-aw2",
			ID:    genomic.JobReconcileRawAW2Ingested,
			Short: "Report AW2 raw rows without validation metrics",
			Run:   env.deltas(reconcile.FamilyAW2),
		},
		{
			Name:  "record-counts-aw1",
			ID:    genomic.JobCalculateRecordCountAW1,
			Short: "Compare AW1 file row counts against ingested records",
			Run:   env.counts(genomic.JobCalculateRecordCountAW1, reconcile.FamilyAW1),
		},
		{
			Name:  "record-counts-aw2",
			ID:    genomic.JobCalculateRecordCountAW2,
			Short: "Compare AW2 file row counts against ingested metrics",
			Run:   env.counts(genomic.JobCalculateRecordCountAW2, reconcile.FamilyAW2),
		},
		{
			Name:  "resolve-missing-files",
			ID:    genomic.JobUpdateMembersStateResolvedFiles,
			Short: "Advance records whose missing data files have arrived",
			Run:   env.resolveMissingFiles,
		},
		{
			Name:  "informing-loop-ready",
			ID:    genomic.JobCalculateInformingLoopReady,
			Short: "Flag records ready for the informing loop",
			Run:   env.informingLoopReady,
		},
		{
			Name:  "consent-removal",
			ID:    genomic.JobUpdateReportStatesForConsentRemove,
			Short: "Move GEM reports of revoked consents to pending delete",
			Run:   env.consentRemoval,
		},
		{
			Name:  "cvl-hdr-past-due",
			ID:    genomic.JobReconcileCVLHDRResults,
			Short: "Record HDR results past their deadline",
			Run:   env.pastDue(genomic.ModuleHDRV1),
		},
		{
			Name:  "cvl-pgx-past-due",
			ID:    genomic.JobReconcileCVLPGXResults,
			Short: "Record PGX results past their deadline",
			Run:   env.pastDue(genomic.ModulePGXV1),
		},
		{
			Name:  "cvl-resolve",
			ID:    genomic.JobReconcileCVLResolve,
			Short: "Resolve past-due results that have since arrived",
			Run:   env.resolvePastDue,
		},
		{
			Name:  "cvl-alerts",
			ID:    genomic.JobReconcileCVLAlerts,
			Short: "Alert CVL sites about their past-due results",
			Run:   env.alertPastDue,
		},
		{
			Name:  "validation-emails",
			ID:    genomic.JobDailySendValidationEmails,
			Short: "Notify GC sites about new ingestion incidents",
			Run:   env.validationEmails,
		},
		{
			Name:  "validation-fails-resolved",
			ID:    genomic.JobDailySummaryValidationFailsResolve,
			Short: "Summarize ingestion files whose incidents were resolved",
			Run:   env.resolvedManifests,
		},
		{
			Name:  "incident-summary",
			ID:    genomic.JobDailySummaryReportIncidents,
			Short: "Summarize the last day of incidents by code",
			Run:   env.incidentSummary,
		},
		{
			Name:  "backfill-gem-report-states",
			ID:    genomic.JobBackfillGEMReportStates,
			Short: "Create missing GEM report-state facts",
			Run:   env.backfillReportStates,
		},
	}
}

func (e *Env) since(ctx context.Context, job genomic.Job) (time.Time, error) {
	last, err := e.Runs.LastSuccessfulRuntime(ctx, job)
	if err != nil {
		return time.Time{}, err
	}
	if last == nil {
		return e.Clock.Now().Add(-defaultLookback), nil
	}
	return *last, nil
}

func (e *Env) deltas(family reconcile.Family) jobrun.Func {
	return func(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
		rows, err := e.Engine.FindIngestionDeltas(ctx, family)
		if err != nil {
			return genomic.ResultError, err
		}
		byFile := make(map[string]int)
		for _, r := range rows {
			byFile[r.FilePath]++
		}
		for path, n := range byFile {
			logger.WithJob(run.JobIDStr, run.ID).WithFields(map[string]interface{}{
				"file_path": path,
				"rows":      n,
			}).Warn("Raw rows not ingested")
		}
		return genomic.ResultSuccess, nil
	}
}

func (e *Env) counts(job genomic.Job, family reconcile.Family) jobrun.Func {
	return func(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
		from, err := e.since(ctx, job)
		if err != nil {
			return genomic.ResultError, err
		}
		counts, err := e.Engine.IngestionCountsSince(ctx, from, family)
		if err != nil {
			return genomic.ResultError, err
		}
		if len(counts) == 0 {
			return genomic.ResultNoFiles, nil
		}
		for _, c := range counts {
			if c.Complete() {
				continue
			}
			logger.WithJob(run.JobIDStr, run.ID).WithFields(map[string]interface{}{
				"file_path": c.FilePath,
				"raw":       c.RawCount,
				"ingested":  c.IngestedCount,
			}).Warn("File not fully ingested")
		}
		return genomic.ResultSuccess, nil
	}
}

func (e *Env) resolveMissingFiles(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	if _, err := e.Machine.ResolvedDataFiles(ctx, e.Engine); err != nil {
		return genomic.ResultError, err
	}
	return genomic.ResultSuccess, nil
}

func (e *Env) informingLoopReady(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	ready, err := e.Machine.FindReadyForInformingLoop(ctx, e.Config.InformingLoopBatch)
	if err != nil {
		return genomic.ResultError, err
	}
	if len(ready) == 0 {
		return genomic.ResultSuccess, nil
	}
	ids := make([]uint, len(ready))
	for i, r := range ready {
		ids[i] = r.ID
	}
	if err := e.Machine.SetInformingLoopReady(ctx, ids...); err != nil {
		return genomic.ResultError, err
	}
	logger.WithJob(run.JobIDStr, run.ID).WithField("members", len(ids)).Info("Flagged informing loop ready")
	return genomic.ResultSuccess, nil
}

func (e *Env) consentRemoval(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	from, err := e.since(ctx, genomic.JobUpdateReportStatesForConsentRemove)
	if err != nil {
		return genomic.ResultError, err
	}
	summary, err := e.Machine.ConsentRemoval(ctx, e.Participants, from)
	if err != nil {
		return genomic.ResultError, err
	}
	logger.WithJob(run.JobIDStr, run.ID).WithFields(map[string]interface{}{
		"pending_delete": summary.PendingDelete,
		"restored":       summary.Restored,
	}).Info("Applied consent removals")
	return genomic.ResultSuccess, nil
}

func (e *Env) pastDue(module genomic.ResultsModuleType) jobrun.Func {
	return func(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
		found, err := e.Engine.FindPastDueResults(ctx, module, e.Clock.Now())
		if err != nil {
			return genomic.ResultError, err
		}
		if err := e.Engine.RecordPastDue(ctx, found); err != nil {
			return genomic.ResultError, err
		}
		return genomic.ResultSuccess, nil
	}
}

func (e *Env) resolvePastDue(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	arrived, err := e.Engine.SamplesToResolve(ctx)
	if err != nil {
		return genomic.ResultError, err
	}
	ids := make([]uint, len(arrived))
	for i, r := range arrived {
		ids[i] = r.ID
	}
	if err := e.Engine.BatchUpdate(ctx, reconcile.ActionResolve, ids); err != nil {
		return genomic.ResultError, err
	}
	return genomic.ResultSuccess, nil
}

// alertPastDue sends one notification per CVL site and marks the site's
// rows alerted only when its notification went out.
func (e *Env) alertPastDue(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	pending, err := e.Engine.SamplesForNotification(ctx)
	if err != nil {
		return genomic.ResultError, err
	}
	bySite := make(map[string][]reconcile.PastDueResult)
	for _, r := range pending {
		bySite[r.CVLSiteID] = append(bySite[r.CVLSiteID], r)
	}

	var failed int
	for _, site := range sortedKeys(bySite) {
		rows := bySite[site]
		samples := make([]string, 0, len(rows))
		ids := make([]uint, 0, len(rows))
		for _, r := range rows {
			samples = append(samples, fmt.Sprintf("%s (%s)", r.SampleID, r.ResultsType))
			ids = append(ids, r.ID)
		}
		err := e.notify(ctx, run, genomic.JobReconcileCVLAlerts.String(), site,
			fmt.Sprintf("%s: %d results past due: %s", site, len(rows), strings.Join(samples, ", ")))
		if err != nil {
			failed++
			continue
		}
		if err := e.Engine.BatchUpdate(ctx, reconcile.ActionAlert, ids); err != nil {
			return genomic.ResultError, err
		}
	}
	if failed > 0 {
		return genomic.ResultError, fmt.Errorf("%d of %d site alerts failed", failed, len(bySite))
	}
	return genomic.ResultSuccess, nil
}

// validationEmails notifies each GC site of the incidents its files raised
// in the last day, then marks them emailed.
func (e *Env) validationEmails(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	fresh, err := e.Incidents.NewIngestionIncidents(ctx, 1)
	if err != nil {
		return genomic.ResultError, err
	}
	bySite := make(map[string][]incident.IngestionIncident)
	for _, inc := range fresh {
		site := strings.ToLower(inc.SubmittedGCSiteID)
		bySite[site] = append(bySite[site], inc)
	}

	var failed int
	for _, site := range sortedKeys(bySite) {
		incs := bySite[site]
		lines := make([]string, 0, len(incs))
		ids := make([]uint, 0, len(incs))
		for _, inc := range incs {
			lines = append(lines, fmt.Sprintf("%s %s: %s", inc.JobID, inc.FileName, inc.Message))
			ids = append(ids, inc.ID)
		}
		err := e.notify(ctx, run, genomic.JobDailySendValidationEmails.String(), site, strings.Join(lines, "\n"))
		if err != nil {
			failed++
			continue
		}
		if err := e.Incidents.MarkEmailed(ctx, ids); err != nil {
			return genomic.ResultError, err
		}
	}
	if failed > 0 {
		return genomic.ResultError, fmt.Errorf("%d of %d site notifications failed", failed, len(bySite))
	}
	return genomic.ResultSuccess, nil
}

func (e *Env) resolvedManifests(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	resolved, err := e.Incidents.ResolvedManifests(ctx, e.Clock.Now().Add(-24*time.Hour))
	if err != nil {
		return genomic.ResultError, err
	}
	if len(resolved) == 0 {
		return genomic.ResultSuccess, nil
	}
	lines := make([]string, 0, len(resolved))
	for _, r := range resolved {
		lines = append(lines, fmt.Sprintf("%s %s", r.JobID, r.FilePath))
	}
	if err := e.notify(ctx, run, genomic.JobDailySummaryValidationFailsResolve.String(), "", strings.Join(lines, "\n")); err != nil {
		return genomic.ResultError, err
	}
	return genomic.ResultSuccess, nil
}

func (e *Env) incidentSummary(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	report, err := e.Incidents.DailyReport(ctx, e.Clock.Now().Add(-24*time.Hour))
	if err != nil {
		return genomic.ResultError, err
	}
	byCode := make(map[string]int)
	for _, line := range report {
		byCode[line.Code]++
	}
	parts := make([]string, 0, len(byCode))
	for _, code := range sortedKeys(byCode) {
		parts = append(parts, fmt.Sprintf("%s: %d", code, byCode[code]))
	}
	msg := "No incidents in the last day"
	if len(parts) > 0 {
		msg = strings.Join(parts, "\n")
	}
	if err := e.notify(ctx, run, genomic.JobDailySummaryReportIncidents.String(), "", msg); err != nil {
		return genomic.ResultError, err
	}
	return genomic.ResultSuccess, nil
}

func (e *Env) backfillReportStates(ctx context.Context, run *jobrun.JobRun) (genomic.SubProcessResult, error) {
	n, err := e.Outreach.BackfillGEMReportStates(ctx)
	if err != nil {
		return genomic.ResultError, err
	}
	logger.WithJob(run.JobIDStr, run.ID).WithField("created", n).Info("Backfilled GEM report states")
	return genomic.ResultSuccess, nil
}

func (e *Env) notify(ctx context.Context, run *jobrun.JobRun, code, site, message string) error {
	log := logger.WithJob(run.JobIDStr, run.ID).WithField("site", site)
	if e.Sink == nil {
		log.Warn("No notification sink configured")
		return nil
	}
	runID := run.ID
	err := e.Sink.Notify(ctx, incident.Notification{
		SourceJobRunID:   &runID,
		Code:             code,
		Message:          message,
		ManifestFileName: site,
	})
	if err != nil {
		log.WithError(err).Error("Failed to send job notification")
	}
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

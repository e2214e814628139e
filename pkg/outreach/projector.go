// Package outreach projects participant-facing result and informing-loop
// events from the append-only report facts and the ledger.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
	"github.com/synaptica-ai/genomics/pkg/workflow"
	"gorm.io/gorm"
)

const (
	TypeResult        = "result"
	TypeInformingLoop = "informingLoop"

	ModuleGEM = "gem"
	ModuleHDR = "hdr"
	ModulePGX = "pgx"
)

var (
	AllModules = []string{ModuleGEM, ModuleHDR, ModulePGX}
	AllTypes   = []string{TypeResult, TypeInformingLoop}
)

// moduleReportStates are the report states surfaced per module. The CVL
// delete states are shared by HDR and PGX.
var moduleReportStates = map[string][]genomic.ReportState{
	ModuleGEM: {genomic.ReportGEMReady, genomic.ReportGEMPendingDelete, genomic.ReportGEMDeleted},
	ModulePGX: {genomic.ReportPGXReady, genomic.ReportCVLPendingDelete, genomic.ReportCVLDeleted},
	ModuleHDR: {
		genomic.ReportHDRUninformative, genomic.ReportHDRPositive,
		genomic.ReportCVLPendingDelete, genomic.ReportCVLDeleted,
	},
}

var moduleGenomeType = map[string]string{
	ModuleGEM: config.GenomeTypeArray,
	ModuleHDR: config.GenomeTypeWGS,
	ModulePGX: config.GenomeTypeWGS,
}

// Filter narrows a projection. Origins is an allow-list and must be set;
// empty Modules or Types mean all of them.
type Filter struct {
	ParticipantID uint
	Origins       []string
	Modules       []string
	Types         []string
}

func (f Filter) modules() []string {
	if len(f.Modules) == 0 {
		return AllModules
	}
	out := make([]string, 0, len(f.Modules))
	for _, m := range f.Modules {
		out = append(out, strings.ToLower(m))
	}
	return out
}

func (f Filter) wantsModule(module string) bool {
	for _, m := range f.modules() {
		if m == module {
			return true
		}
	}
	return false
}

func (f Filter) wantsType(t string) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, want := range f.Types {
		if want == t {
			return true
		}
	}
	return false
}

func (f Filter) genomeTypes() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range f.modules() {
		gt, ok := moduleGenomeType[m]
		if !ok {
			continue
		}
		if _, dup := seen[gt]; !dup {
			seen[gt] = struct{}{}
			out = append(out, gt)
		}
	}
	return out
}

func (f Filter) reportStates() []genomic.ReportState {
	var out []genomic.ReportState
	for _, m := range f.modules() {
		out = append(out, moduleReportStates[m]...)
	}
	return out
}

// Event is one participant-facing outreach record.
type Event struct {
	Type                 string  `json:"type"`
	ParticipantID        string  `json:"participant_id"`
	Module               string  `json:"module"`
	Status               string  `json:"status"`
	Decision             *string `json:"decision,omitempty"`
	ReportRevisionNumber *int    `json:"report_revision_number,omitempty"`
	HDRResultStatus      string  `json:"hdr_result_status,omitempty"`

	participant uint
	eventID     uint
}

func participantRef(id uint) string {
	return fmt.Sprintf("P%d", id)
}

// window bounds a projection. A zero start means unbounded.
type window struct {
	start time.Time
	end   time.Time
}

// authored applies the window to a fact table: authored or created after
// start, authored before end.
func (w window) authored(q *gorm.DB, alias string) *gorm.DB {
	if w.start.IsZero() {
		return q
	}
	return q.Where(
		fmt.Sprintf("(%[1]s.event_authored_time > ? OR %[1]s.created > ?) AND %[1]s.event_authored_time < ?", alias),
		w.start, w.start, w.end,
	)
}

// activeParticipant joins the participant summary of alias, dropping
// withdrawn and suspended participants.
func activeParticipant(q *gorm.DB, alias string) *gorm.DB {
	return q.Joins(
		fmt.Sprintf("JOIN participant_summary ps ON ps.participant_id = %s.participant_id"+
			" AND ps.withdrawal_status = ? AND ps.suspension_status = ?", alias),
		ledger.WithdrawalNotWithdrawn, ledger.SuspensionNotSuspended,
	)
}

type Projector struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewProjector(db *gorm.DB, clk clock.Clock) *Projector {
	return &Projector{db: db, clock: clock.Or(clk)}
}

// ProjectOutreach returns the informing-loop and result events for the
// window (start, end), all read from one snapshot. A zero end means now. The
// output is ordered by participant then source event id.
func (p *Projector) ProjectOutreach(ctx context.Context, f Filter, start, end time.Time) ([]Event, error) {
	if len(f.Origins) == 0 {
		return []Event{}, nil
	}
	if end.IsZero() {
		end = p.clock.Now()
	}
	w := window{start: start.UTC(), end: end.UTC()}

	var events []Event
	err := database.ReadSnapshot(ctx, p.db, func(tx *gorm.DB) error {
		if f.wantsType(TypeInformingLoop) {
			ready, err := readyLoops(tx, f, w)
			if err != nil {
				return fmt.Errorf("informing loop ready: %w", err)
			}
			decisions, err := latestDecisions(tx, f, w)
			if err != nil {
				return fmt.Errorf("informing loop decisions: %w", err)
			}
			events = append(events, ready...)
			events = append(events, decisions...)
		}
		if f.wantsType(TypeResult) {
			ready, err := resultsReady(tx, f, w)
			if err != nil {
				return fmt.Errorf("results ready: %w", err)
			}
			viewed, err := resultsViewed(tx, f, w)
			if err != nil {
				return fmt.Errorf("results viewed: %w", err)
			}
			events = append(events, ready...)
			events = append(events, viewed...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].participant != events[j].participant {
			return events[i].participant < events[j].participant
		}
		return events[i].eventID < events[j].eventID
	})
	for _, e := range events {
		metrics.ObserveOutreachEvent(e.Type)
	}
	logger.Log.WithFields(map[string]interface{}{
		"events": len(events),
		"start":  w.start,
		"end":    w.end,
	}).Debug("Projected outreach events")
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

type readyRow struct {
	ID            uint `gorm:"column:id"`
	ParticipantID uint `gorm:"column:participant_id"`
}

// readyLoops emits one ready event per CVL module for each participant
// whose record was flagged informing-loop ready in the window.
func readyLoops(tx *gorm.DB, f Filter, w window) ([]Event, error) {
	var cvl []string
	for _, m := range []string{ModuleHDR, ModulePGX} {
		if f.wantsModule(m) {
			cvl = append(cvl, m)
		}
	}
	if len(cvl) == 0 {
		return nil, nil
	}

	q := tx.Model(&ledger.SampleRecord{}).
		Scopes(workflow.InformingLoopReadyScope).
		Select("genomic_set_member.id, genomic_set_member.participant_id").
		Where("genomic_set_member.informing_loop_ready_flag = 1").
		Where("genomic_set_member.informing_loop_ready_flag_modified IS NOT NULL").
		Where("genomic_set_member.participant_origin IN ?", f.Origins)
	if f.ParticipantID != 0 {
		q = q.Where("genomic_set_member.participant_id = ?", f.ParticipantID)
	}
	if !w.start.IsZero() {
		q = q.Where("genomic_set_member.informing_loop_ready_flag_modified > ?", w.start).
			Where("genomic_set_member.informing_loop_ready_flag_modified < ?", w.end)
	}
	var rows []readyRow
	if err := q.Order("genomic_set_member.id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(rows))
	var out []Event
	for _, r := range rows {
		if _, dup := seen[r.ParticipantID]; dup {
			continue
		}
		seen[r.ParticipantID] = struct{}{}
		for _, m := range cvl {
			out = append(out, Event{
				Type:          TypeInformingLoop,
				ParticipantID: participantRef(r.ParticipantID),
				Module:        m,
				Status:        "ready",
				participant:   r.ParticipantID,
				eventID:       r.ID,
			})
		}
	}
	return out, nil
}

// decisionQuery selects decisions for which no later decision exists for
// the same participant and module. Later means authored later, or authored
// at the same time with a higher id.
func decisionQuery(tx *gorm.DB) *gorm.DB {
	return tx.Table("genomic_informing_loop AS il").
		Joins(`LEFT JOIN genomic_informing_loop later
			ON later.participant_id = il.participant_id
			AND LOWER(later.module_type) = LOWER(il.module_type)
			AND later.decision_value IS NOT NULL
			AND later.event_authored_time IS NOT NULL
			AND (later.event_authored_time > il.event_authored_time
				OR (later.event_authored_time = il.event_authored_time AND later.id > il.id))`).
		Where("later.id IS NULL").
		Where("il.decision_value IS NOT NULL AND il.event_authored_time IS NOT NULL")
}

func latestDecisions(tx *gorm.DB, f Filter, w window) ([]Event, error) {
	q := activeParticipant(decisionQuery(tx), "il").
		Select("il.*").
		Where("LOWER(il.module_type) IN ?", f.modules()).
		Where(`EXISTS (
			SELECT 1 FROM genomic_set_member m
			WHERE m.participant_id = il.participant_id
			AND m.genome_type IN ? AND m.ignore_flag != 1 AND m.participant_origin IN ?)`,
			f.genomeTypes(), f.Origins)
	if f.ParticipantID != 0 {
		q = q.Where("il.participant_id = ?", f.ParticipantID)
	}
	q = w.authored(q, "il")

	var rows []InformingLoop
	if err := q.Order("il.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, Event{
			Type:          TypeInformingLoop,
			ParticipantID: participantRef(r.ParticipantID),
			Module:        strings.ToLower(r.ModuleType),
			Status:        "completed",
			Decision:      r.DecisionValue,
			participant:   r.ParticipantID,
			eventID:       r.ID,
		})
	}
	return out, nil
}

// LatestDecision returns a participant's current informing-loop decision
// for module.
func (p *Projector) LatestDecision(ctx context.Context, participantID uint, module string) (*InformingLoop, error) {
	var row InformingLoop
	err := decisionQuery(p.db.WithContext(ctx)).
		Select("il.*").
		Where("il.participant_id = ? AND LOWER(il.module_type) = ?", participantID, strings.ToLower(module)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("informing loop decision", fmt.Sprintf("%d/%s", participantID, module))
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

type resultRow struct {
	ID                   uint                `gorm:"column:id"`
	ParticipantID        uint                `gorm:"column:participant_id"`
	Module               string              `gorm:"column:module"`
	ReportState          genomic.ReportState `gorm:"column:genomic_report_state"`
	ReportRevisionNumber *int                `gorm:"column:report_revision_number"`
	SwapName             *string             `gorm:"column:swap_name"`
	SwapCategory         *string             `gorm:"column:swap_category"`
}

func resultsReady(tx *gorm.DB, f Filter, w window) ([]Event, error) {
	q := activeParticipant(tx.Table("genomic_member_report_state AS rs"), "rs").
		Select("rs.id, rs.participant_id, rs.module, rs.genomic_report_state, rs.report_revision_number, " +
			"ss.name AS swap_name, ssm.category AS swap_category").
		Joins("JOIN genomic_set_member m ON m.id = rs.genomic_set_member_id AND m.genome_type IN ?", f.genomeTypes()).
		Joins("LEFT JOIN genomic_sample_swap_member ssm ON ssm.genomic_set_member_id = m.id").
		Joins("LEFT JOIN genomic_sample_swap ss ON ss.id = ssm.genomic_sample_swap_id").
		Where("rs.event_authored_time IS NOT NULL")
	q = resultFilters(q, f, "rs")
	q = w.authored(q, "rs")

	var rows []resultRow
	if err := q.Order("rs.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return resultEvents(rows, false), nil
}

func resultsViewed(tx *gorm.DB, f Filter, w window) ([]Event, error) {
	q := activeParticipant(tx.Table("genomic_result_viewed AS rv"), "rv").
		Select("rv.id, rv.participant_id, rs.module, rs.genomic_report_state, rs.report_revision_number").
		Joins("JOIN genomic_member_report_state rs ON rs.sample_id = rv.sample_id AND LOWER(rs.module) = LOWER(rv.module_type)").
		Joins("JOIN genomic_set_member m ON m.id = rs.genomic_set_member_id").
		Where("rv.event_authored_time IS NOT NULL")
	q = resultFilters(q, f, "rv")
	q = w.authored(q, "rv")

	var rows []resultRow
	if err := q.Order("rv.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return resultEvents(rows, true), nil
}

func resultFilters(q *gorm.DB, f Filter, alias string) *gorm.DB {
	q = q.Where("rs.genomic_report_state IN ? AND LOWER(rs.module) IN ?", f.reportStates(), f.modules()).
		Where("m.ignore_flag != 1 AND m.participant_origin IN ?", f.Origins)
	if f.ParticipantID != 0 {
		q = q.Where(alias+".participant_id = ?", f.ParticipantID)
	}
	return q
}

// resultEvents shapes report rows, keeping the first row per participant,
// module, state and revision.
func resultEvents(rows []resultRow, viewed bool) []Event {
	seen := make(map[string]struct{}, len(rows))
	var out []Event
	for _, r := range rows {
		ev, ok := resultEvent(r, viewed)
		if !ok {
			continue
		}
		rev := -1
		if r.ReportRevisionNumber != nil {
			rev = *r.ReportRevisionNumber
		}
		key := fmt.Sprintf("%d|%s|%d|%d", r.ParticipantID, ev.Module, r.ReportState, rev)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out
}

func resultEvent(r resultRow, viewed bool) (Event, bool) {
	module := strings.ToLower(r.Module)
	if !hasState(moduleReportStates[module], r.ReportState) {
		return Event{}, false
	}
	ev := Event{
		Type:                 TypeResult,
		ParticipantID:        participantRef(r.ParticipantID),
		Module:               module,
		Status:               reportStatus(r.ReportState),
		ReportRevisionNumber: r.ReportRevisionNumber,
		participant:          r.ParticipantID,
		eventID:              r.ID,
	}
	if module == ModuleHDR {
		ev.HDRResultStatus = ev.Status
		if r.ReportState == genomic.ReportHDRUninformative || r.ReportState == genomic.ReportHDRPositive {
			ev.Status = "ready"
		}
	}
	if r.SwapName != nil && r.SwapCategory != nil {
		ev.Module += strings.ToLower("_" + *r.SwapName + "_" + *r.SwapCategory)
	}
	if viewed {
		ev.Status = "viewed"
	}
	return ev, true
}

// reportStatus is the lowercased part of a report state name after its
// module and RPT segments, e.g. pending_delete.
func reportStatus(s genomic.ReportState) string {
	parts := strings.SplitN(s.String(), "_", 3)
	return strings.ToLower(parts[len(parts)-1])
}

func hasState(states []genomic.ReportState, s genomic.ReportState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

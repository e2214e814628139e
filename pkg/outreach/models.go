package outreach

import (
	"time"

	"github.com/synaptica-ai/genomics/pkg/genomic"
)

// MemberReportState records that a member's report reached a state.
type MemberReportState struct {
	ID                   uint                `gorm:"primaryKey;column:id"`
	Created              time.Time           `gorm:"column:created"`
	Modified             time.Time           `gorm:"column:modified"`
	GenomicSetMemberID   uint                `gorm:"column:genomic_set_member_id;index"`
	ParticipantID        uint                `gorm:"column:participant_id;index"`
	SampleID             string              `gorm:"column:sample_id;index"`
	Module               string              `gorm:"column:module"`
	ReportState          genomic.ReportState `gorm:"column:genomic_report_state"`
	ReportStateStr       string              `gorm:"column:genomic_report_state_str"`
	ReportRevisionNumber *int                `gorm:"column:report_revision_number"`
	EventAuthoredTime    *time.Time          `gorm:"column:event_authored_time"`
}

func (MemberReportState) TableName() string {
	return "genomic_member_report_state"
}

type ResultViewed struct {
	ID                uint       `gorm:"primaryKey;column:id"`
	Created           time.Time  `gorm:"column:created"`
	Modified          time.Time  `gorm:"column:modified"`
	ParticipantID     uint       `gorm:"column:participant_id;index"`
	SampleID          string     `gorm:"column:sample_id;index"`
	ModuleType        string     `gorm:"column:module_type"`
	EventAuthoredTime *time.Time `gorm:"column:event_authored_time"`
	FirstViewed       *time.Time `gorm:"column:first_viewed"`
	LastViewed        *time.Time `gorm:"column:last_viewed"`
}

func (ResultViewed) TableName() string {
	return "genomic_result_viewed"
}

// InformingLoop is one informing-loop event. Decisions carry a value.
type InformingLoop struct {
	ID                uint       `gorm:"primaryKey;column:id"`
	Created           time.Time  `gorm:"column:created"`
	Modified          time.Time  `gorm:"column:modified"`
	ParticipantID     uint       `gorm:"column:participant_id;index"`
	ModuleType        string     `gorm:"column:module_type"`
	EventType         string     `gorm:"column:event_type"`
	DecisionValue     *string    `gorm:"column:decision_value"`
	EventAuthoredTime *time.Time `gorm:"column:event_authored_time"`
}

func (InformingLoop) TableName() string {
	return "genomic_informing_loop"
}

type AppointmentEvent struct {
	ID                   uint       `gorm:"primaryKey;column:id"`
	Created              time.Time  `gorm:"column:created"`
	Modified             time.Time  `gorm:"column:modified"`
	AppointmentID        uint       `gorm:"column:appointment_id;index"`
	ParticipantID        uint       `gorm:"column:participant_id;index"`
	ModuleType           string     `gorm:"column:module_type"`
	EventType            string     `gorm:"column:event_type"`
	EventAuthoredTime    *time.Time `gorm:"column:event_authored_time"`
	AppointmentTimestamp *time.Time `gorm:"column:appointment_timestamp"`
	AppointmentTimezone  *string    `gorm:"column:appointment_timezone"`
	Source               *string    `gorm:"column:source"`
	Location             *string    `gorm:"column:location"`
	ContactNumber        *string    `gorm:"column:contact_number"`
	Language             *string    `gorm:"column:language"`
	CancellationReason   *string    `gorm:"column:cancellation_reason"`
}

func (AppointmentEvent) TableName() string {
	return "genomic_appointment_event"
}

// SampleSwap names an investigation into swapped samples.
type SampleSwap struct {
	ID      uint      `gorm:"primaryKey;column:id"`
	Created time.Time `gorm:"column:created"`
	Name    string    `gorm:"column:name"`
}

func (SampleSwap) TableName() string {
	return "genomic_sample_swap"
}

type SampleSwapMember struct {
	ID                  uint      `gorm:"primaryKey;column:id"`
	Created             time.Time `gorm:"column:created"`
	GenomicSampleSwapID uint      `gorm:"column:genomic_sample_swap_id;index"`
	GenomicSetMemberID  uint      `gorm:"column:genomic_set_member_id;index"`
	Category            string    `gorm:"column:category"`
}

func (SampleSwapMember) TableName() string {
	return "genomic_sample_swap_member"
}

// Models lists every table the projector reads or writes besides the ledger.
func Models() []interface{} {
	return []interface{}{
		&MemberReportState{}, &ResultViewed{}, &InformingLoop{},
		&AppointmentEvent{}, &SampleSwap{}, &SampleSwapMember{},
	}
}

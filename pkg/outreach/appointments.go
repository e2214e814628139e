package outreach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/database"
	"gorm.io/gorm"
)

// Appointment is the current appointment of a participant for a module.
type Appointment struct {
	AppointmentID        uint       `json:"appointment_id"`
	ParticipantID        string     `json:"participant_id"`
	Module               string     `json:"module"`
	Status               string     `json:"status"`
	Type                 string     `json:"type"`
	AppointmentTimestamp *time.Time `json:"appointment_timestamp,omitempty"`
	AppointmentTimezone  *string    `json:"appointment_timezone,omitempty"`
	Source               *string    `json:"source,omitempty"`
	Location             *string    `json:"location,omitempty"`
	ContactNumber        *string    `json:"contact_number,omitempty"`
	Language             *string    `json:"language,omitempty"`
	CancellationReason   *string    `json:"cancellation_reason,omitempty"`
	NoteAvailable        bool       `json:"note_available"`
}

type appointmentRow struct {
	AppointmentEvent
	NoteAvailable int `gorm:"column:note_available"`
}

// ProjectAppointments returns, per participant and module, the event that
// carries both the highest appointment id and the latest authored time of
// its group. A group where the two disagree yields nothing.
func (p *Projector) ProjectAppointments(ctx context.Context, f Filter, start, end time.Time) ([]Appointment, error) {
	if len(f.Origins) == 0 {
		return []Appointment{}, nil
	}
	if end.IsZero() {
		end = p.clock.Now()
	}

	var rows []appointmentRow
	err := database.ReadSnapshot(ctx, p.db, func(tx *gorm.DB) error {
		q := tx.Table("genomic_appointment_event AS ae").
			Select(`ae.*, CASE WHEN EXISTS (
				SELECT 1 FROM genomic_appointment_event note
				WHERE note.event_type LIKE '%note_available'
				AND note.participant_id = ae.participant_id
				AND note.module_type = ae.module_type
				AND note.appointment_id = ae.appointment_id) THEN 1 ELSE 0 END AS note_available`).
			Where("ae.event_authored_time IS NOT NULL").
			Where(`NOT EXISTS (
				SELECT 1 FROM genomic_appointment_event other
				WHERE other.participant_id = ae.participant_id AND other.module_type = ae.module_type
				AND other.appointment_id > ae.appointment_id)`).
			Where(`NOT EXISTS (
				SELECT 1 FROM genomic_appointment_event other
				WHERE other.participant_id = ae.participant_id AND other.module_type = ae.module_type
				AND other.event_authored_time > ae.event_authored_time)`).
			Where(`EXISTS (
				SELECT 1 FROM genomic_set_member m
				WHERE m.participant_id = ae.participant_id AND m.participant_origin IN ?)`, f.Origins)
		if len(f.Modules) > 0 {
			q = q.Where("LOWER(ae.module_type) IN ?", f.modules())
		}
		if f.ParticipantID != 0 {
			q = q.Where("ae.participant_id = ?", f.ParticipantID)
		}
		if !start.IsZero() {
			q = q.Where("ae.event_authored_time > ? AND ae.event_authored_time < ?", start.UTC(), end.UTC())
		}
		return q.Order("ae.participant_id, ae.module_type, ae.id").Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("project appointments: %w", err)
	}

	out := make([]Appointment, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		a := toAppointment(r)
		key := fmt.Sprintf("%d|%s", r.ParticipantID, a.Module)
		if i, dup := index[key]; dup {
			out[i] = a
			continue
		}
		index[key] = len(out)
		out = append(out, a)
	}
	return out, nil
}

func toAppointment(r appointmentRow) Appointment {
	status := r.EventType
	if parts := strings.SplitN(r.EventType, "_", 2); len(parts) == 2 {
		status = parts[1]
	}
	a := Appointment{
		AppointmentID:       r.AppointmentID,
		ParticipantID:       participantRef(r.ParticipantID),
		Module:              strings.ToLower(r.ModuleType),
		Status:              status,
		Type:                "appointment",
		AppointmentTimezone: r.AppointmentTimezone,
		Source:              r.Source,
		Location:            r.Location,
		ContactNumber:       r.ContactNumber,
		Language:            r.Language,
		CancellationReason:  r.CancellationReason,
		NoteAvailable:       r.NoteAvailable == 1,
	}
	if r.AppointmentTimestamp != nil {
		ts := r.AppointmentTimestamp.UTC()
		a.AppointmentTimestamp = &ts
	}
	return a
}

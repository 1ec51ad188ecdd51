package converter

import (
	"time"

	"vetclinic-scheduler/internal/delivery/dto"
	"vetclinic-scheduler/internal/domain/calendar"
	"vetclinic-scheduler/internal/domain/entity"
)

// Timing is what the derived flags of an appointment depend on besides its state
type Timing struct {
	Now          time.Time
	Location     *time.Location
	CancelNotice time.Duration
}

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(a *entity.Appointment, t Timing) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}

	resp := &dto.AppointmentResponse{
		ID:                 a.ID,
		PetID:              a.PetID,
		CustomerID:         a.CustomerID,
		VeterinarianID:     a.VeterinarianID,
		Date:               a.Date.Format(entity.DateLayout),
		Time:               a.Time,
		Duration:           a.Duration,
		Type:               string(a.Type),
		Priority:           string(a.Priority),
		IsEmergency:        a.IsEmergency,
		Reason:             a.Reason,
		Symptoms:           a.Symptoms,
		Notes:              a.Notes,
		VeterinarianNotes:  a.VeterinarianNotes,
		Diagnosis:          a.Diagnosis,
		Treatment:          a.Treatment,
		Medications:        MedicationsToResponses(a.Medications),
		Attachments:        AttachmentsToResponses(a.Attachments),
		Status:             string(a.Status),
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
		CancelledBy:        string(a.CancelledBy),
		RequiresFollowUp:   a.RequiresFollowUp,
		ReminderSentAt:     a.ReminderSentAt,
		Fee:                a.Fee,
		CanBeCancelled:     a.CanBeCancelled(t.Now, t.Location, t.CancelNotice),
		CanBeRescheduled:   a.CanBeRescheduled(t.Now, t.Location),
		CreatedBy:          a.CreatedBy,
		LastModifiedBy:     a.LastModifiedBy,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}

	if a.FollowUpDate != nil {
		resp.FollowUpDate = a.FollowUpDate.Format(entity.DateLayout)
	}

	return resp
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment, t Timing) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i], t)
	}
	return responses
}

func MedicationsToResponses(meds entity.MedicationList) []dto.MedicationResponse {
	responses := make([]dto.MedicationResponse, len(meds))
	for i, m := range meds {
		responses[i] = dto.MedicationResponse{
			Name:         m.Name,
			Dose:         m.Dose,
			Frequency:    m.Frequency,
			Duration:     m.Duration,
			Instructions: m.Instructions,
		}
	}
	return responses
}

func AttachmentsToResponses(atts entity.AttachmentList) []dto.AttachmentResponse {
	responses := make([]dto.AttachmentResponse, len(atts))
	for i, a := range atts {
		responses[i] = dto.AttachmentResponse{Name: a.Name, URL: a.URL, Kind: a.Kind}
	}
	return responses
}

// MedicationsFromRequests converts request DTOs to the stored list
func MedicationsFromRequests(reqs []dto.MedicationRequest) entity.MedicationList {
	if reqs == nil {
		return nil
	}
	meds := make(entity.MedicationList, len(reqs))
	for i, r := range reqs {
		meds[i] = entity.Medication{
			Name:         r.Name,
			Dose:         r.Dose,
			Frequency:    r.Frequency,
			Duration:     r.Duration,
			Instructions: r.Instructions,
		}
	}
	return meds
}

// AttachmentsFromRequests converts request DTOs to the stored list
func AttachmentsFromRequests(reqs []dto.AttachmentRequest) entity.AttachmentList {
	if reqs == nil {
		return nil
	}
	atts := make(entity.AttachmentList, len(reqs))
	for i, r := range reqs {
		atts[i] = entity.Attachment{Name: r.Name, URL: r.URL, Kind: r.Kind}
	}
	return atts
}

// SlotsToResponses converts catalog slots to SlotResponse DTOs
func SlotsToResponses(slots []calendar.Slot) []dto.SlotResponse {
	responses := make([]dto.SlotResponse, len(slots))
	for i, s := range slots {
		responses[i] = dto.SlotResponse{Time: s.Time, Period: string(s.Period)}
	}
	return responses
}

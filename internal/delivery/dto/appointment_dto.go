package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateAppointmentRequest struct {
	PetID       uuid.UUID `json:"pet_id" validate:"required"`
	Date        string    `json:"date" validate:"required,isodate"` // Format: YYYY-MM-DD
	Time        string    `json:"time" validate:"required,hhmm"`    // Format: HH:MM
	Type        string    `json:"type" validate:"required,oneof=consultation surgery vaccination emergency checkup dental_cleaning sterilization review"`
	Priority    string    `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	IsEmergency bool      `json:"is_emergency"`
	Reason      string    `json:"reason" validate:"required,min=10,max=500"`
	Symptoms    string    `json:"symptoms" validate:"omitempty,max=2000"`
	Notes       string    `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateAppointmentRequest is a patch: nil fields are left unchanged.
// veterinarian_id, notes and attachments are admin-only.
type UpdateAppointmentRequest struct {
	Date           *string             `json:"date" validate:"omitempty,isodate"`
	Time           *string             `json:"time" validate:"omitempty,hhmm"`
	Type           *string             `json:"type" validate:"omitempty,oneof=consultation surgery vaccination emergency checkup dental_cleaning sterilization review"`
	Priority       *string             `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	IsEmergency    *bool               `json:"is_emergency"`
	Reason         *string             `json:"reason" validate:"omitempty,min=10,max=500"`
	Symptoms       *string             `json:"symptoms" validate:"omitempty,max=2000"`
	Notes          *string             `json:"notes" validate:"omitempty,max=2000"`
	VeterinarianID *uuid.UUID          `json:"veterinarian_id"`
	Attachments    []AttachmentRequest `json:"attachments" validate:"omitempty,dive"`
}

type AttachmentRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url"`
	Kind string `json:"kind" validate:"omitempty,max=50"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RescheduleAppointmentRequest struct {
	Date   string `json:"date" validate:"required,isodate"`
	Time   string `json:"time" validate:"required,hhmm"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type CompleteAppointmentRequest struct {
	Diagnosis         string              `json:"diagnosis" validate:"omitempty,max=5000"`
	Treatment         string              `json:"treatment" validate:"omitempty,max=5000"`
	VeterinarianNotes string              `json:"veterinarian_notes" validate:"omitempty,max=5000"`
	Medications       []MedicationRequest `json:"medications" validate:"omitempty,dive"`
	RequiresFollowUp  bool                `json:"requires_follow_up"`
	FollowUpDate      string              `json:"follow_up_date" validate:"omitempty,isodate"`
}

type MedicationRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Dose         string `json:"dose" validate:"omitempty,max=100"`
	Frequency    string `json:"frequency" validate:"omitempty,max=100"`
	Duration     string `json:"duration" validate:"omitempty,max=100"`
	Instructions string `json:"instructions" validate:"omitempty,max=1000"`
}

// AppointmentListQuery is parsed from the query string of GET /appointments
type AppointmentListQuery struct {
	Date   string    `validate:"omitempty,isodate"`
	Status string    `validate:"omitempty,oneof=pending confirmed in_progress completed cancelled no_show"`
	Type   string    `validate:"omitempty,oneof=consultation surgery vaccination emergency checkup dental_cleaning sterilization review"`
	PetID  uuid.UUID `validate:"-"`
	Page   int       `validate:"gte=1"`
	Limit  int       `validate:"gte=1,lte=100"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                 uuid.UUID            `json:"id"`
	PetID              uuid.UUID            `json:"pet_id"`
	CustomerID         uuid.UUID            `json:"customer_id"`
	VeterinarianID     *uuid.UUID           `json:"veterinarian_id,omitempty"`
	Date               string               `json:"date"`
	Time               string               `json:"time"`
	Duration           int                  `json:"duration"`
	Type               string               `json:"type"`
	Priority           string               `json:"priority"`
	IsEmergency        bool                 `json:"is_emergency"`
	Reason             string               `json:"reason"`
	Symptoms           string               `json:"symptoms,omitempty"`
	Notes              string               `json:"notes,omitempty"`
	VeterinarianNotes  string               `json:"veterinarian_notes,omitempty"`
	Diagnosis          string               `json:"diagnosis,omitempty"`
	Treatment          string               `json:"treatment,omitempty"`
	Medications        []MedicationResponse `json:"medications"`
	Attachments        []AttachmentResponse `json:"attachments"`
	Status             string               `json:"status"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy        string               `json:"cancelled_by,omitempty"`
	RequiresFollowUp   bool                 `json:"requires_follow_up"`
	FollowUpDate       string               `json:"follow_up_date,omitempty"`
	ReminderSentAt     *time.Time           `json:"reminder_sent_at,omitempty"`
	Fee                decimal.Decimal      `json:"fee"`
	CanBeCancelled     bool                 `json:"can_be_cancelled"`
	CanBeRescheduled   bool                 `json:"can_be_rescheduled"`
	CreatedBy          uuid.UUID            `json:"created_by"`
	LastModifiedBy     *uuid.UUID           `json:"last_modified_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

type MedicationResponse struct {
	Name         string `json:"name"`
	Dose         string `json:"dose,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type AttachmentResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind string `json:"kind,omitempty"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
	Total        int64                 `json:"total"`
}

type SlotResponse struct {
	Time   string `json:"time"`
	Period string `json:"period"`
}

type AvailableSlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
	Total int            `json:"total"`
}

package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending    AppointmentStatus = "pending"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no_show"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusInProgress,
		AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave this state.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

// appointmentTransitions is the lifecycle graph. Rescheduling is handled
// separately because it re-enters pending from pending or confirmed.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:    {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed:  {AppointmentStatusInProgress, AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusInProgress: {AppointmentStatusCompleted},
}

// AppointmentType classifies the visit
type AppointmentType string

const (
	AppointmentTypeConsultation   AppointmentType = "consultation"
	AppointmentTypeSurgery        AppointmentType = "surgery"
	AppointmentTypeVaccination    AppointmentType = "vaccination"
	AppointmentTypeEmergency      AppointmentType = "emergency"
	AppointmentTypeCheckup        AppointmentType = "checkup"
	AppointmentTypeDentalCleaning AppointmentType = "dental_cleaning"
	AppointmentTypeSterilization  AppointmentType = "sterilization"
	AppointmentTypeReview         AppointmentType = "review"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case AppointmentTypeConsultation, AppointmentTypeSurgery, AppointmentTypeVaccination,
		AppointmentTypeEmergency, AppointmentTypeCheckup, AppointmentTypeDentalCleaning,
		AppointmentTypeSterilization, AppointmentTypeReview:
		return true
	}
	return false
}

// AppointmentPriority represents triage priority
type AppointmentPriority string

const (
	PriorityLow    AppointmentPriority = "low"
	PriorityNormal AppointmentPriority = "normal"
	PriorityHigh   AppointmentPriority = "high"
	PriorityUrgent AppointmentPriority = "urgent"
)

func (p AppointmentPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// CancelledBy identifies which party cancelled an appointment
type CancelledBy string

const (
	CancelledByCustomer     CancelledBy = "customer"
	CancelledByVeterinarian CancelledBy = "veterinarian"
	CancelledBySystem       CancelledBy = "system"
)

const (
	DefaultDurationMinutes = 30
	ReasonMinLength        = 10
	ReasonMaxLength        = 500
	DateLayout             = "2006-01-02"
	TimeLayout             = "15:04"
)

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// IsValidTimeOfDay checks the HH:MM 24-hour format
func IsValidTimeOfDay(s string) bool {
	return timeOfDayPattern.MatchString(s)
}

// NormalizeDate drops the time-of-day and zone, keeping the calendar day.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(d), nil
}

// Medication prescribed during a visit
type Medication struct {
	Name         string `json:"name"`
	Dose         string `json:"dose,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Attachment linked to an appointment (lab result, x-ray, ...)
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Kind string `json:"kind,omitempty"`
}

// MedicationList is stored as JSONB
type MedicationList []Medication

// AttachmentList is stored as JSONB
type AttachmentList []Attachment

// Value implements driver.Valuer
func (l MedicationList) Value() (driver.Value, error) {
	return jsonListValue(l)
}

// Scan implements sql.Scanner
func (l *MedicationList) Scan(value interface{}) error {
	return jsonListScan(value, l)
}

// Value implements driver.Valuer
func (l AttachmentList) Value() (driver.Value, error) {
	return jsonListValue(l)
}

// Scan implements sql.Scanner
func (l *AttachmentList) Scan(value interface{}) error {
	return jsonListScan(value, l)
}

func jsonListValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// nil slices marshal to "null", keep the column an empty array instead
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

func jsonListScan(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}
	return json.Unmarshal(bytes, dest)
}

// Appointment is a booking of one clinic slot for one pet.
// The active-slot uniqueness is enforced by the partial unique index
// uq_appointments_active_slot, see the migrations.
type Appointment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PetID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"pet_id"`
	CustomerID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"customer_id"`
	VeterinarianID *uuid.UUID `gorm:"type:uuid;index" json:"veterinarian_id,omitempty"`

	Date     time.Time `gorm:"column:appointment_date;type:date;not null;index" json:"date"`
	Time     string    `gorm:"column:appointment_time;type:varchar(5);not null" json:"time"`
	Duration int       `gorm:"column:duration_minutes;not null;default:30" json:"duration"`

	Type        AppointmentType     `gorm:"type:varchar(30);not null;index" json:"type"`
	Priority    AppointmentPriority `gorm:"type:varchar(10);not null;default:'normal'" json:"priority"`
	IsEmergency bool                `gorm:"not null;default:false" json:"is_emergency"`

	Reason            string         `gorm:"type:varchar(500);not null" json:"reason"`
	Symptoms          string         `gorm:"type:text" json:"symptoms,omitempty"`
	Notes             string         `gorm:"type:text" json:"notes,omitempty"`
	VeterinarianNotes string         `gorm:"type:text" json:"veterinarian_notes,omitempty"`
	Diagnosis         string         `gorm:"type:text" json:"diagnosis,omitempty"`
	Treatment         string         `gorm:"type:text" json:"treatment,omitempty"`
	Medications       MedicationList `gorm:"type:jsonb;not null;default:'[]'" json:"medications"`
	Attachments       AttachmentList `gorm:"type:jsonb;not null;default:'[]'" json:"attachments"`

	Status             AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CancellationReason string            `gorm:"type:varchar(500)" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CancelledBy        CancelledBy       `gorm:"type:varchar(20)" json:"cancelled_by,omitempty"`

	RequiresFollowUp bool       `gorm:"not null;default:false" json:"requires_follow_up"`
	FollowUpDate     *time.Time `gorm:"type:date" json:"follow_up_date,omitempty"`
	ReminderSentAt   *time.Time `json:"reminder_sent_at,omitempty"`

	Fee decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"fee"`

	CreatedBy      uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	LastModifiedBy *uuid.UUID `gorm:"type:uuid" json:"last_modified_by,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// ClinicalOutcome holds what the veterinarian records when closing a visit
type ClinicalOutcome struct {
	Diagnosis         string
	Treatment         string
	VeterinarianNotes string
	Medications       MedicationList
	RequiresFollowUp  bool
	FollowUpDate      *time.Time
}

// IsActive reports whether the appointment still occupies its slot
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

func (a *Appointment) IsPending() bool {
	return a.Status == AppointmentStatusPending
}

func (a *Appointment) IsConfirmed() bool {
	return a.Status == AppointmentStatusConfirmed
}

func (a *Appointment) IsOwnedBy(userID uuid.UUID) bool {
	return a.CustomerID == userID
}

// StartsAt is the appointment's start instant in the clinic's time zone.
// An unparseable time yields midnight of the appointment day.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	y, m, d := a.Date.Date()
	hh, mm := 0, 0
	if t, err := time.Parse(TimeLayout, a.Time); err == nil {
		hh, mm = t.Hour(), t.Minute()
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

// HasStarted reports whether the start instant has been reached
func (a *Appointment) HasStarted(now time.Time, loc *time.Location) bool {
	return !now.Before(a.StartsAt(loc))
}

// CanTransitionTo reports whether next is reachable from the current status in one step
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, s := range appointmentTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// CanBeCancelled is true while the appointment is pending or confirmed and
// at least notice remains before it starts.
func (a *Appointment) CanBeCancelled(now time.Time, loc *time.Location, notice time.Duration) bool {
	return a.CanTransitionTo(AppointmentStatusCancelled) && a.StartsAt(loc).Sub(now) >= notice
}

// CanBeRescheduled is true while the appointment is pending or confirmed and has not started
func (a *Appointment) CanBeRescheduled(now time.Time, loc *time.Location) bool {
	return (a.IsPending() || a.IsConfirmed()) && !a.HasStarted(now, loc)
}

// Confirm moves pending -> confirmed
func (a *Appointment) Confirm(by uuid.UUID) error {
	return a.transition(AppointmentStatusConfirmed, by)
}

// Start moves confirmed -> in_progress
func (a *Appointment) Start(by uuid.UUID) error {
	return a.transition(AppointmentStatusInProgress, by)
}

// Complete moves confirmed or in_progress -> completed and records the outcome
func (a *Appointment) Complete(by uuid.UUID, outcome ClinicalOutcome) error {
	if err := a.transition(AppointmentStatusCompleted, by); err != nil {
		return err
	}
	a.Diagnosis = outcome.Diagnosis
	a.Treatment = outcome.Treatment
	a.VeterinarianNotes = outcome.VeterinarianNotes
	if outcome.Medications != nil {
		a.Medications = outcome.Medications
	}
	a.RequiresFollowUp = outcome.RequiresFollowUp
	a.FollowUpDate = outcome.FollowUpDate
	if !outcome.RequiresFollowUp {
		a.FollowUpDate = nil
	}
	return nil
}

// Cancel moves pending or confirmed -> cancelled, provided enough notice is given
func (a *Appointment) Cancel(by uuid.UUID, party CancelledBy, reason string, now time.Time, loc *time.Location, notice time.Duration) error {
	if !a.CanTransitionTo(AppointmentStatusCancelled) {
		return ErrInvalidTransition
	}
	if !a.CanBeCancelled(now, loc, notice) {
		return ErrCannotCancel
	}
	at := now.UTC()
	a.Status = AppointmentStatusCancelled
	a.CancellationReason = reason
	a.CancelledAt = &at
	a.CancelledBy = party
	a.touch(by)
	return nil
}

// Reschedule moves the appointment to a new slot and back to pending.
// The reminder has to be sent again for the new slot.
func (a *Appointment) Reschedule(by uuid.UUID, date time.Time, timeOfDay string, now time.Time, loc *time.Location) error {
	if !a.IsPending() && !a.IsConfirmed() {
		return ErrInvalidTransition
	}
	if a.HasStarted(now, loc) {
		return ErrCannotReschedule
	}
	a.Date = NormalizeDate(date)
	a.Time = timeOfDay
	a.Status = AppointmentStatusPending
	a.ReminderSentAt = nil
	a.touch(by)
	return nil
}

// MarkNoShow moves confirmed -> no_show once the start time has passed
func (a *Appointment) MarkNoShow(by uuid.UUID, now time.Time, loc *time.Location) error {
	if !a.CanTransitionTo(AppointmentStatusNoShow) || !a.HasStarted(now, loc) {
		return ErrInvalidTransition
	}
	return a.transition(AppointmentStatusNoShow, by)
}

// MarkReminderSent records delivery of the reminder for a confirmed appointment
func (a *Appointment) MarkReminderSent(by uuid.UUID, at time.Time) error {
	if !a.IsConfirmed() {
		return ErrInvalidTransition
	}
	t := at.UTC()
	a.ReminderSentAt = &t
	a.touch(by)
	return nil
}

func (a *Appointment) transition(next AppointmentStatus, by uuid.UUID) error {
	if !a.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	a.Status = next
	a.touch(by)
	return nil
}

func (a *Appointment) touch(by uuid.UUID) {
	id := by
	a.LastModifiedBy = &id
}

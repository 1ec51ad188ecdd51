package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vetclinic-scheduler/internal/converter"
	"vetclinic-scheduler/internal/delivery/dto"
	"vetclinic-scheduler/internal/domain/calendar"
	"vetclinic-scheduler/internal/domain/entity"
	"vetclinic-scheduler/internal/domain/repository"
	"vetclinic-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrValidation             = errors.New("invalid appointment data")
	ErrUnauthorized           = errors.New("you are not allowed to perform this action")
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrPetNotFound            = errors.New("pet not found")
	ErrVeterinarianNotFound   = errors.New("veterinarian not found")
	ErrInvalidStatus          = errors.New("appointment status does not allow this action")
	ErrPastDate               = errors.New("cannot book a date or time in the past")
	ErrClosedDay              = errors.New("the clinic is closed on that day")
	ErrSlotOutsideHours       = errors.New("time is not one of the clinic's slots")
	ErrFollowUpDateRequired   = fmt.Errorf("%w: follow_up_date is required when a follow up is needed", ErrValidation)
	ErrFollowUpBeforeAppt     = fmt.Errorf("%w: follow_up_date must be after the appointment date", ErrValidation)
	errConcurrentModification = errors.New("appointment was modified concurrently")
)

// Notifier triggers owner notifications
type Notifier interface {
	SendReminder(ctx context.Context, appt *entity.Appointment) error
	NotifyConfirmed(appt *entity.Appointment)
}

// AppointmentSettings carries the clinic policy the usecase applies
type AppointmentSettings struct {
	Location     *time.Location
	CancelNotice time.Duration
	Fees         map[string]decimal.Decimal
	Clock        func() time.Time
}

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	ListAppointments(ctx context.Context, actor entity.Actor, query *dto.AppointmentListQuery) (*dto.AppointmentListResponse, error)
	GetAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	UpdateAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CancelAppointmentRequest) error
	RescheduleAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error)
	ConfirmAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	StartAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	CompleteAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CompleteAppointmentRequest) (*dto.AppointmentResponse, error)
	MarkNoShow(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error)
	ListAvailableSlots(ctx context.Context, date string) (*dto.AvailableSlotsResponse, error)
	SendReminder(ctx context.Context, actor entity.Actor, id uuid.UUID) error
}

type appointmentUsecase struct {
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
	petRepo         repository.PetRepository
	userRepo        repository.UserRepository
	catalog         *calendar.Catalog
	slotCache       service.SlotCache
	auditService    service.AuditService
	notifier        Notifier
	settings        AppointmentSettings
}

// NewAppointmentUsecase wires the booking service. slotCache may be nil.
func NewAppointmentUsecase(
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	petRepo repository.PetRepository,
	userRepo repository.UserRepository,
	catalog *calendar.Catalog,
	slotCache service.SlotCache,
	auditService service.AuditService,
	notifier Notifier,
	settings AppointmentSettings,
) AppointmentUsecase {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	return &appointmentUsecase{
		log:             log,
		appointmentRepo: appointmentRepo,
		petRepo:         petRepo,
		userRepo:        userRepo,
		catalog:         catalog,
		slotCache:       slotCache,
		auditService:    auditService,
		notifier:        notifier,
		settings:        settings,
	}
}

// CreateAppointment books a slot for a pet.
//
// Flow:
// 1. Validate fields and the target slot against the clinic calendar
// 2. Check the pet exists and the caller may book for it
// 3. Pre-check the slot (fast rejection only)
// 4. Insert; the active-slot unique index decides under concurrency
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	if !actor.IsCustomer() && !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}

	date, err := parseDay(req.Date)
	if err != nil {
		return nil, err
	}
	apptType := entity.AppointmentType(req.Type)
	if !apptType.IsValid() {
		return nil, fmt.Errorf("%w: unknown appointment type %q", ErrValidation, req.Type)
	}
	priority := entity.PriorityNormal
	if req.Priority != "" {
		priority = entity.AppointmentPriority(req.Priority)
		if !priority.IsValid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, req.Priority)
		}
	}
	if err := validateReason(req.Reason); err != nil {
		return nil, err
	}
	if err := u.checkBookable(date, req.Time); err != nil {
		return nil, err
	}

	pet, err := u.petRepo.FindByID(ctx, req.PetID)
	if err != nil {
		u.log.Warnf("Failed to find pet %s: %+v", req.PetID, err)
		return nil, err
	}
	if pet == nil {
		return nil, ErrPetNotFound
	}
	if err := authorizeCreate(actor, pet); err != nil {
		return nil, err
	}

	taken, err := u.appointmentRepo.ExistsActiveAt(ctx, date, req.Time, uuid.Nil)
	if err != nil {
		u.log.Warnf("Failed to check slot %s %s: %+v", req.Date, req.Time, err)
		return nil, err
	}
	if taken {
		return nil, entity.ErrSlotTaken
	}

	appt := &entity.Appointment{
		PetID:       pet.ID,
		CustomerID:  pet.OwnerID,
		Date:        date,
		Time:        req.Time,
		Duration:    entity.DefaultDurationMinutes,
		Type:        apptType,
		Priority:    priority,
		IsEmergency: req.IsEmergency,
		Reason:      strings.TrimSpace(req.Reason),
		Symptoms:    req.Symptoms,
		Status:      entity.AppointmentStatusPending,
		Fee:         u.feeFor(apptType),
		CreatedBy:   actor.UserID,
	}
	// Internal notes are staff data
	if actor.IsAdmin() {
		appt.Notes = req.Notes
	}

	if err := u.appointmentRepo.Create(ctx, appt); err != nil {
		if errors.Is(err, entity.ErrSlotTaken) {
			return nil, entity.ErrSlotTaken
		}
		u.log.Warnf("Failed to create appointment: %+v", err)
		return nil, err
	}

	u.invalidateSlots(ctx, appt.Date)
	u.recordCreate(ctx, actor, appt)

	u.log.Infof("Appointment created: id=%s, pet=%s, slot=%s %s", appt.ID, appt.PetID, req.Date, appt.Time)
	return u.toResponse(appt), nil
}

// ListAppointments returns one page. Customers only ever see their own appointments.
func (u *appointmentUsecase) ListAppointments(ctx context.Context, actor entity.Actor, query *dto.AppointmentListQuery) (*dto.AppointmentListResponse, error) {
	if !actor.IsCustomer() && !actor.IsStaff() {
		return nil, ErrUnauthorized
	}

	page, limit := normalizePage(query.Page, query.Limit)
	filter := &entity.AppointmentFilter{
		Status: entity.AppointmentStatus(query.Status),
		Type:   entity.AppointmentType(query.Type),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if query.Date != "" {
		date, err := parseDay(query.Date)
		if err != nil {
			return nil, err
		}
		filter.Date = &date
	}
	if query.PetID != uuid.Nil {
		petID := query.PetID
		filter.PetID = &petID
	}
	if actor.IsCustomer() {
		customerID := actor.UserID
		filter.CustomerID = &customerID
	}

	appointments, total, err := u.appointmentRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments, u.timing()),
		Page:         page,
		Limit:        limit,
		Total:        total,
	}, nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appt, err := u.findAuthorized(ctx, actor, id, actionView)
	if err != nil {
		return nil, err
	}
	return u.toResponse(appt), nil
}

// UpdateAppointment applies a patch. Owners may edit only while pending.
// A slot change is a reschedule: it is refused once the current slot has
// started, puts the appointment back to pending and re-runs the availability
// checks, excluding the appointment itself.
func (u *appointmentUsecase) UpdateAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	appt, err := u.findAuthorized(ctx, actor, id, actionUpdate)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if touchesAdminFields(req) {
			return nil, ErrUnauthorized
		}
		if !appt.IsPending() {
			return nil, ErrInvalidStatus
		}
	}

	old := *appt
	slotChanged, err := u.applyPatch(ctx, appt, req)
	if err != nil {
		return nil, err
	}

	if slotChanged {
		if !old.IsPending() && !old.IsConfirmed() {
			return nil, ErrInvalidStatus
		}
		newDate, newTime := appt.Date, appt.Time
		appt.Date, appt.Time = old.Date, old.Time
		if err := appt.Reschedule(actor.UserID, newDate, newTime, u.now(), u.settings.Location); err != nil {
			return nil, err
		}
		if err := u.checkBookable(appt.Date, appt.Time); err != nil {
			return nil, err
		}
		taken, err := u.appointmentRepo.ExistsActiveAt(ctx, appt.Date, appt.Time, appt.ID)
		if err != nil {
			u.log.Warnf("Failed to check slot for appointment %s: %+v", id, err)
			return nil, err
		}
		if taken {
			return nil, entity.ErrSlotTaken
		}
	}
	lastModifiedBy := actor.UserID
	appt.LastModifiedBy = &lastModifiedBy

	if err := u.save(ctx, appt, old.Status); err != nil {
		if errors.Is(err, errConcurrentModification) {
			return nil, ErrInvalidStatus
		}
		return nil, err
	}

	if slotChanged {
		u.invalidateSlots(ctx, old.Date, appt.Date)
	}
	u.recordUpdate(ctx, actor, entity.AuditActionAppointmentUpdate, &old, appt, nil)

	u.log.Infof("Appointment updated: id=%s", appt.ID)
	return u.toResponse(appt), nil
}

// CancelAppointment frees the slot. Requires the configured notice before the start.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CancelAppointmentRequest) error {
	appt, err := u.findAuthorized(ctx, actor, id, actionCancel)
	if err != nil {
		return err
	}

	old := *appt
	reason := strings.TrimSpace(req.Reason)
	if err := appt.Cancel(actor.UserID, cancellingParty(actor), reason, u.now(), u.settings.Location, u.settings.CancelNotice); err != nil {
		return err
	}

	if err := u.save(ctx, appt, old.Status); err != nil {
		if errors.Is(err, errConcurrentModification) {
			return entity.ErrInvalidTransition
		}
		return err
	}

	u.invalidateSlots(ctx, appt.Date)
	u.recordUpdate(ctx, actor, entity.AuditActionAppointmentCancel, &old, appt, map[string]interface{}{"reason": reason})

	u.log.Infof("Appointment cancelled: id=%s, by=%s", appt.ID, appt.CancelledBy)
	return nil
}

// RescheduleAppointment moves the appointment to another free slot and back to pending.
func (u *appointmentUsecase) RescheduleAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	appt, err := u.findAuthorized(ctx, actor, id, actionReschedule)
	if err != nil {
		return nil, err
	}

	date, err := parseDay(req.Date)
	if err != nil {
		return nil, err
	}

	now := u.now()
	if !appt.IsPending() && !appt.IsConfirmed() {
		return nil, entity.ErrInvalidTransition
	}
	if !appt.CanBeRescheduled(now, u.settings.Location) {
		return nil, entity.ErrCannotReschedule
	}
	if err := u.checkBookable(date, req.Time); err != nil {
		return nil, err
	}
	taken, err := u.appointmentRepo.ExistsActiveAt(ctx, date, req.Time, appt.ID)
	if err != nil {
		u.log.Warnf("Failed to check slot for appointment %s: %+v", id, err)
		return nil, err
	}
	if taken {
		return nil, entity.ErrSlotTaken
	}

	old := *appt
	if err := appt.Reschedule(actor.UserID, date, req.Time, now, u.settings.Location); err != nil {
		return nil, err
	}

	if err := u.save(ctx, appt, old.Status); err != nil {
		if errors.Is(err, errConcurrentModification) {
			return nil, entity.ErrInvalidTransition
		}
		return nil, err
	}

	u.invalidateSlots(ctx, old.Date, appt.Date)
	u.recordUpdate(ctx, actor, entity.AuditActionAppointmentReschedule, &old, appt, map[string]interface{}{"reason": strings.TrimSpace(req.Reason)})

	u.log.Infof("Appointment rescheduled: id=%s, from=%s %s, to=%s %s",
		appt.ID, old.Date.Format(entity.DateLayout), old.Time, appt.Date.Format(entity.DateLayout), appt.Time)
	return u.toResponse(appt), nil
}

func (u *appointmentUsecase) ConfirmAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appt, err := u.transition(ctx, actor, id, entity.AuditActionAppointmentConfirm, func(a *entity.Appointment) error {
		return a.Confirm(actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	// Fire-and-forget, the confirmation stands whatever the mail relay does
	if u.notifier != nil {
		u.notifier.NotifyConfirmed(appt)
	}
	return u.toResponse(appt), nil
}

func (u *appointmentUsecase) StartAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appt, err := u.transition(ctx, actor, id, entity.AuditActionAppointmentStart, func(a *entity.Appointment) error {
		return a.Start(actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	return u.toResponse(appt), nil
}

func (u *appointmentUsecase) CompleteAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CompleteAppointmentRequest) (*dto.AppointmentResponse, error) {
	outcome := entity.ClinicalOutcome{
		Diagnosis:         req.Diagnosis,
		Treatment:         req.Treatment,
		VeterinarianNotes: req.VeterinarianNotes,
		Medications:       converter.MedicationsFromRequests(req.Medications),
		RequiresFollowUp:  req.RequiresFollowUp,
	}
	if req.RequiresFollowUp {
		if req.FollowUpDate == "" {
			return nil, ErrFollowUpDateRequired
		}
		followUp, err := parseDay(req.FollowUpDate)
		if err != nil {
			return nil, err
		}
		outcome.FollowUpDate = &followUp
	}

	appt, err := u.transition(ctx, actor, id, entity.AuditActionAppointmentComplete, func(a *entity.Appointment) error {
		if outcome.FollowUpDate != nil && !outcome.FollowUpDate.After(a.Date) {
			return ErrFollowUpBeforeAppt
		}
		return a.Complete(actor.UserID, outcome)
	})
	if err != nil {
		return nil, err
	}
	return u.toResponse(appt), nil
}

func (u *appointmentUsecase) MarkNoShow(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	now := u.now()
	appt, err := u.transition(ctx, actor, id, entity.AuditActionAppointmentNoShow, func(a *entity.Appointment) error {
		return a.MarkNoShow(actor.UserID, now, u.settings.Location)
	})
	if err != nil {
		return nil, err
	}
	return u.toResponse(appt), nil
}

// ListAvailableSlots is the catalog of the day minus occupied slots and, for
// today, minus slots that already started. The occupied set may come from the cache.
func (u *appointmentUsecase) ListAvailableSlots(ctx context.Context, dateStr string) (*dto.AvailableSlotsResponse, error) {
	date, err := parseDay(dateStr)
	if err != nil {
		return nil, err
	}

	now := u.now().In(u.settings.Location)
	today := entity.NormalizeDate(now)
	if date.Before(today) {
		return nil, ErrPastDate
	}
	if u.catalog.IsClosed(date) {
		return nil, ErrClosedDay
	}

	slots, err := u.catalog.Slots(date, today)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDate) {
			return nil, ErrPastDate
		}
		return nil, err
	}

	occupied, err := u.occupiedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	available := make([]calendar.Slot, 0, len(slots))
	for _, s := range slots {
		if _, ok := taken[s.Time]; ok {
			continue
		}
		if date.Equal(today) && !startsAt(date, s.Time, u.settings.Location).After(now) {
			continue
		}
		available = append(available, s)
	}

	return &dto.AvailableSlotsResponse{
		Date:  date.Format(entity.DateLayout),
		Slots: converter.SlotsToResponses(available),
		Total: len(available),
	}, nil
}

// SendReminder delivers the reminder synchronously. A delivery failure is
// reported to the caller and leaves the appointment unchanged.
func (u *appointmentUsecase) SendReminder(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	appt, err := u.findAuthorized(ctx, actor, id, actionRemind)
	if err != nil {
		return err
	}
	if !appt.IsConfirmed() {
		return ErrInvalidStatus
	}

	if u.notifier == nil {
		return service.ErrNotificationFailed
	}
	if err := u.notifier.SendReminder(ctx, appt); err != nil {
		return err
	}

	old := *appt
	if err := appt.MarkReminderSent(actor.UserID, u.now()); err != nil {
		return ErrInvalidStatus
	}
	if err := u.save(ctx, appt, old.Status); err != nil {
		if errors.Is(err, errConcurrentModification) {
			u.log.Warnf("Reminder sent but appointment %s changed status meanwhile", appt.ID)
			return ErrInvalidStatus
		}
		return err
	}

	u.recordUpdate(ctx, actor, entity.AuditActionAppointmentReminder, &old, appt, nil)
	return nil
}

// transition runs one staff lifecycle step: load, authorize, mutate, compare-and-swap, audit.
func (u *appointmentUsecase) transition(ctx context.Context, actor entity.Actor, id uuid.UUID, action string, mutate func(a *entity.Appointment) error) (*entity.Appointment, error) {
	appt, err := u.findAuthorized(ctx, actor, id, actionManage)
	if err != nil {
		return nil, err
	}

	old := *appt
	if err := mutate(appt); err != nil {
		return nil, err
	}

	if err := u.save(ctx, appt, old.Status); err != nil {
		if errors.Is(err, errConcurrentModification) {
			return nil, entity.ErrInvalidTransition
		}
		return nil, err
	}

	u.recordUpdate(ctx, actor, action, &old, appt, nil)
	u.log.Infof("Appointment %s: id=%s, %s -> %s", action, appt.ID, old.Status, appt.Status)
	return appt, nil
}

func (u *appointmentUsecase) findAuthorized(ctx context.Context, actor entity.Actor, id uuid.UUID, action appointmentAction) (*entity.Appointment, error) {
	appt, err := u.appointmentRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}
	if err := authorize(actor, action, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// save writes appt only if the stored status is still expected
func (u *appointmentUsecase) save(ctx context.Context, appt *entity.Appointment, expected entity.AppointmentStatus) error {
	rows, err := u.appointmentRepo.UpdateIfStatus(ctx, appt, expected)
	if err != nil {
		if errors.Is(err, entity.ErrSlotTaken) {
			return entity.ErrSlotTaken
		}
		u.log.Warnf("Failed to update appointment %s: %+v", appt.ID, err)
		return err
	}
	if rows == 0 {
		return errConcurrentModification
	}
	return nil
}

func (u *appointmentUsecase) applyPatch(ctx context.Context, appt *entity.Appointment, req *dto.UpdateAppointmentRequest) (bool, error) {
	slotChanged := false

	if req.Date != nil {
		date, err := parseDay(*req.Date)
		if err != nil {
			return false, err
		}
		if !date.Equal(appt.Date) {
			appt.Date = date
			slotChanged = true
		}
	}
	if req.Time != nil && *req.Time != appt.Time {
		if !entity.IsValidTimeOfDay(*req.Time) {
			return false, fmt.Errorf("%w: time must be HH:MM", ErrValidation)
		}
		appt.Time = *req.Time
		slotChanged = true
	}
	if req.Type != nil {
		t := entity.AppointmentType(*req.Type)
		if !t.IsValid() {
			return false, fmt.Errorf("%w: unknown appointment type %q", ErrValidation, *req.Type)
		}
		appt.Type = t
	}
	if req.Priority != nil {
		p := entity.AppointmentPriority(*req.Priority)
		if !p.IsValid() {
			return false, fmt.Errorf("%w: unknown priority %q", ErrValidation, *req.Priority)
		}
		appt.Priority = p
	}
	if req.IsEmergency != nil {
		appt.IsEmergency = *req.IsEmergency
	}
	if req.Reason != nil {
		if err := validateReason(*req.Reason); err != nil {
			return false, err
		}
		appt.Reason = strings.TrimSpace(*req.Reason)
	}
	if req.Symptoms != nil {
		appt.Symptoms = *req.Symptoms
	}
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}
	if req.Attachments != nil {
		appt.Attachments = converter.AttachmentsFromRequests(req.Attachments)
	}
	if req.VeterinarianID != nil {
		vet, err := u.userRepo.FindByID(ctx, *req.VeterinarianID)
		if err != nil {
			u.log.Warnf("Failed to find veterinarian %s: %+v", *req.VeterinarianID, err)
			return false, err
		}
		if vet == nil || vet.RoleID != entity.RoleIDVeterinarian {
			return false, ErrVeterinarianNotFound
		}
		vetID := vet.ID
		appt.VeterinarianID = &vetID
	}

	return slotChanged, nil
}

// checkBookable validates a target slot against the calendar and the clock
func (u *appointmentUsecase) checkBookable(date time.Time, timeOfDay string) error {
	if !entity.IsValidTimeOfDay(timeOfDay) {
		return fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}

	now := u.now().In(u.settings.Location)
	if date.Before(entity.NormalizeDate(now)) {
		return ErrPastDate
	}
	if u.catalog.IsClosed(date) {
		return ErrClosedDay
	}
	if !u.catalog.Contains(timeOfDay) {
		return ErrSlotOutsideHours
	}
	if !startsAt(date, timeOfDay, u.settings.Location).After(now) {
		return ErrPastDate
	}
	return nil
}

func (u *appointmentUsecase) occupiedTimes(ctx context.Context, date time.Time) ([]string, error) {
	cacheable := false
	var generation int64
	if u.slotCache != nil {
		times, ok, err := u.slotCache.OccupiedTimes(ctx, date)
		switch {
		case err != nil:
			u.log.Warnf("Slot cache unavailable, reading from database: %+v", err)
		case ok:
			return times, nil
		default:
			// taken before the database read so a write committed meanwhile voids the store
			generation, err = u.slotCache.Generation(ctx, date)
			cacheable = err == nil
		}
	}

	times, err := u.appointmentRepo.FindActiveTimesByDate(ctx, date)
	if err != nil {
		u.log.Warnf("Failed to find occupied slots for %s: %+v", date.Format(entity.DateLayout), err)
		return nil, err
	}

	if cacheable {
		// errors are logged by the cache
		_ = u.slotCache.StoreOccupiedTimes(ctx, date, times, generation)
	}
	return times, nil
}

func (u *appointmentUsecase) invalidateSlots(ctx context.Context, dates ...time.Time) {
	if u.slotCache == nil {
		return
	}
	// Log but don't fail - entries expire on their own
	_ = u.slotCache.Invalidate(ctx, dates...)
}

func (u *appointmentUsecase) recordCreate(ctx context.Context, actor entity.Actor, appt *entity.Appointment) {
	if u.auditService == nil {
		return
	}
	userID := actor.UserID
	_ = u.auditService.LogCreate(ctx, &userID, entity.AuditActionAppointmentCreate, entity.AuditEntityAppointment, appt.ID.String(), auditSnapshot(appt, nil))
}

func (u *appointmentUsecase) recordUpdate(ctx context.Context, actor entity.Actor, action string, old, updated *entity.Appointment, extra map[string]interface{}) {
	if u.auditService == nil {
		return
	}
	userID := actor.UserID
	_ = u.auditService.LogUpdate(ctx, &userID, action, entity.AuditEntityAppointment, updated.ID.String(), auditSnapshot(old, nil), auditSnapshot(updated, extra))
}

func (u *appointmentUsecase) feeFor(t entity.AppointmentType) decimal.Decimal {
	if fee, ok := u.settings.Fees[string(t)]; ok {
		return fee
	}
	return decimal.Zero
}

func (u *appointmentUsecase) now() time.Time {
	return u.settings.Clock()
}

func (u *appointmentUsecase) timing() converter.Timing {
	return converter.Timing{
		Now:          u.now(),
		Location:     u.settings.Location,
		CancelNotice: u.settings.CancelNotice,
	}
}

func (u *appointmentUsecase) toResponse(appt *entity.Appointment) *dto.AppointmentResponse {
	return converter.AppointmentToResponse(appt, u.timing())
}

func auditSnapshot(a *entity.Appointment, extra map[string]interface{}) map[string]interface{} {
	snapshot := map[string]interface{}{
		"status": a.Status,
		"date":   a.Date.Format(entity.DateLayout),
		"time":   a.Time,
		"type":   a.Type,
	}
	if a.VeterinarianID != nil {
		snapshot["veterinarian_id"] = a.VeterinarianID.String()
	}
	for k, v := range extra {
		snapshot[k] = v
	}
	return snapshot
}

func parseDay(s string) (time.Time, error) {
	d, err := entity.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return d, nil
}

func validateReason(reason string) error {
	n := len([]rune(strings.TrimSpace(reason)))
	if n < entity.ReasonMinLength || n > entity.ReasonMaxLength {
		return fmt.Errorf("%w: reason must be between %d and %d characters", ErrValidation, entity.ReasonMinLength, entity.ReasonMaxLength)
	}
	return nil
}

func startsAt(date time.Time, timeOfDay string, loc *time.Location) time.Time {
	a := entity.Appointment{Date: date, Time: timeOfDay}
	return a.StartsAt(loc)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

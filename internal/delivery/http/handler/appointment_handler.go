package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"vetclinic-scheduler/internal/delivery/dto"
	"vetclinic-scheduler/internal/delivery/http/middleware"
	"vetclinic-scheduler/internal/domain/entity"
	"vetclinic-scheduler/internal/service"
	"vetclinic-scheduler/internal/usecase"
	"vetclinic-scheduler/pkg/response"
	"vetclinic-scheduler/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
	log                *logrus.Logger
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator, log *logrus.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
		log:                log,
	}
}

// CreateAppointment handles booking a slot
// @Summary Book an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param request body dto.CreateAppointmentRequest true "Create Appointment Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	var req dto.CreateAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.CreateAppointment(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, err, "Failed to create appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment created successfully", appointment)
}

// ListAppointments handles GET /appointments?date=&status=&type=&pet_id=&page=&limit=
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}

	q := r.URL.Query()
	query := dto.AppointmentListQuery{
		Date:   q.Get("date"),
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Page:   queryInt(q.Get("page"), 1),
		Limit:  queryInt(q.Get("limit"), 10),
	}
	if raw := q.Get("pet_id"); raw != "" {
		petID, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "Invalid pet ID")
			return
		}
		query.PetID = petID
	}
	if err := h.validator.Validate(&query); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.appointmentUsecase.ListAppointments(r.Context(), actor, &query)
	if err != nil {
		h.writeError(w, err, "Failed to get appointments")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Appointments retrieved successfully",
		result.Appointments, response.NewMeta(result.Page, result.Limit, result.Total))
}

func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.GetAppointment(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err, "Failed to get appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment retrieved successfully", appointment)
}

func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.UpdateAppointment(r.Context(), actor, id, &req)
	if err != nil {
		h.writeError(w, err, "Failed to update appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment updated successfully", appointment)
}

// CancelAppointment handles cancellation by the owner or clinic staff
// @Summary Cancel an appointment
// @Tags Appointments
// @Param id path string true "Appointment ID"
// @Param request body dto.CancelAppointmentRequest true "Cancel Appointment Request"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.CancelAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.appointmentUsecase.CancelAppointment(r.Context(), actor, id, &req); err != nil {
		h.writeError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", nil)
}

func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.RescheduleAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.RescheduleAppointment(r.Context(), actor, id, &req)
	if err != nil {
		h.writeError(w, err, "Failed to reschedule appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment rescheduled successfully", appointment)
}

func (h *AppointmentHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.ConfirmAppointment(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err, "Failed to confirm appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment confirmed successfully", appointment)
}

func (h *AppointmentHandler) StartAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.StartAppointment(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err, "Failed to start appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment started successfully", appointment)
}

func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req dto.CompleteAppointmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	appointment, err := h.appointmentUsecase.CompleteAppointment(r.Context(), actor, id, &req)
	if err != nil {
		h.writeError(w, err, "Failed to complete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment completed successfully", appointment)
}

func (h *AppointmentHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.MarkNoShow(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err, "Failed to mark appointment as no-show")
		return
	}

	response.Success(w, http.StatusOK, "Appointment marked as no-show", appointment)
}

// ListAvailableSlots handles GET /appointments/available-slots?date=YYYY-MM-DD
func (h *AppointmentHandler) ListAvailableSlots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		response.ValidationError(w, map[string]string{"date": "date is required"})
		return
	}

	slots, err := h.appointmentUsecase.ListAvailableSlots(r.Context(), date)
	if err != nil {
		h.writeError(w, err, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}

func (h *AppointmentHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.appointmentUsecase.SendReminder(r.Context(), actor, id); err != nil {
		h.writeError(w, err, "Failed to send reminder")
		return
	}

	response.Success(w, http.StatusOK, "Reminder sent successfully", nil)
}

func (h *AppointmentHandler) actorAndID(w http.ResponseWriter, r *http.Request) (entity.Actor, uuid.UUID, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return entity.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return entity.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func (h *AppointmentHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return false
	}
	return true
}

// writeError maps domain errors to status codes and stable error kinds.
// Anything unrecognised is logged and reported as a generic 500.
func (h *AppointmentHandler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		response.Error(w, http.StatusBadRequest, response.CodeValidation, err.Error(), nil)
	case errors.Is(err, usecase.ErrUnauthorized):
		response.Forbidden(w, err.Error())
	case errors.Is(err, usecase.ErrAppointmentNotFound):
		response.NotFound(w, "Appointment not found")
	case errors.Is(err, usecase.ErrPetNotFound):
		response.Error(w, http.StatusNotFound, response.CodePetNotFound, "Pet not found", nil)
	case errors.Is(err, usecase.ErrVeterinarianNotFound):
		response.NotFound(w, "Veterinarian not found")
	case errors.Is(err, entity.ErrSlotTaken):
		response.Error(w, http.StatusConflict, response.CodeSlotTaken, "The requested slot is already booked", nil)
	case errors.Is(err, usecase.ErrInvalidStatus):
		response.Error(w, http.StatusConflict, response.CodeInvalidStatus, err.Error(), nil)
	case errors.Is(err, entity.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, response.CodeInvalidTransition, err.Error(), nil)
	case errors.Is(err, entity.ErrCannotCancel):
		response.Error(w, http.StatusUnprocessableEntity, response.CodeCannotCancel, err.Error(), nil)
	case errors.Is(err, entity.ErrCannotReschedule):
		response.Error(w, http.StatusUnprocessableEntity, response.CodeCannotReschedule, err.Error(), nil)
	case errors.Is(err, usecase.ErrPastDate):
		response.Error(w, http.StatusBadRequest, response.CodePastDate, err.Error(), nil)
	case errors.Is(err, usecase.ErrSlotOutsideHours):
		response.Error(w, http.StatusBadRequest, response.CodeValidation, err.Error(), nil)
	case errors.Is(err, usecase.ErrClosedDay):
		response.Error(w, http.StatusBadRequest, response.CodeClosedDay, err.Error(), nil)
	case errors.Is(err, service.ErrNotificationFailed):
		response.Error(w, http.StatusBadGateway, response.CodeNotificationFail, "Failed to deliver the notification", nil)
	default:
		h.log.Errorf("%s: %+v", fallback, err)
		response.InternalServerError(w, fallback)
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

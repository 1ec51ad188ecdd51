package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

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

// stubAppointmentUsecase returns err from every call and records the last actor and query
type stubAppointmentUsecase struct {
	err       error
	lastActor entity.Actor
	lastQuery *dto.AppointmentListQuery
	lastDate  string
}

func (s *stubAppointmentUsecase) appointment(id uuid.UUID) *dto.AppointmentResponse {
	return &dto.AppointmentResponse{ID: id, Status: "pending"}
}

func (s *stubAppointmentUsecase) CreateAppointment(ctx context.Context, actor entity.Actor, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return s.appointment(uuid.New()), nil
}

func (s *stubAppointmentUsecase) ListAppointments(ctx context.Context, actor entity.Actor, query *dto.AppointmentListQuery) (*dto.AppointmentListResponse, error) {
	s.lastActor, s.lastQuery = actor, query
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentListResponse{Appointments: []dto.AppointmentResponse{}, Page: query.Page, Limit: query.Limit, Total: 25}, nil
}

func (s *stubAppointmentUsecase) GetAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return s.appointment(id), nil
}

func (s *stubAppointmentUsecase) UpdateAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	return s.GetAppointment(ctx, actor, id)
}

func (s *stubAppointmentUsecase) CancelAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CancelAppointmentRequest) error {
	s.lastActor = actor
	return s.err
}

func (s *stubAppointmentUsecase) RescheduleAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.RescheduleAppointmentRequest) (*dto.AppointmentResponse, error) {
	return s.GetAppointment(ctx, actor, id)
}

func (s *stubAppointmentUsecase) ConfirmAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return s.GetAppointment(ctx, actor, id)
}

func (s *stubAppointmentUsecase) StartAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return s.GetAppointment(ctx, actor, id)
}

func (s *stubAppointmentUsecase) CompleteAppointment(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.CompleteAppointmentRequest) (*dto.AppointmentResponse, error) {
	return s.GetAppointment(ctx, actor, id)
}

func (s *stubAppointmentUsecase) MarkNoShow(ctx context.Context, actor entity.Actor, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return s.GetAppointment(ctx, actor, id)
}

func (s *stubAppointmentUsecase) ListAvailableSlots(ctx context.Context, date string) (*dto.AvailableSlotsResponse, error) {
	s.lastDate = date
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AvailableSlotsResponse{Date: date, Slots: []dto.SlotResponse{{Time: "07:00", Period: "morning"}}, Total: 1}, nil
}

func (s *stubAppointmentUsecase) SendReminder(ctx context.Context, actor entity.Actor, id uuid.UUID) error {
	s.lastActor = actor
	return s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var customer = entity.Actor{UserID: uuid.New(), RoleID: entity.RoleIDCustomer}

func newRequest(method, target string, body interface{}, actor *entity.Actor, vars map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func validCreateBody() dto.CreateAppointmentRequest {
	return dto.CreateAppointmentRequest{
		PetID:  uuid.New(),
		Date:   "2030-06-04",
		Time:   "09:00",
		Type:   "consultation",
		Reason: "Annual checkup visit",
	}
}

func TestCreateAppointment_Created(t *testing.T) {
	stub := &stubAppointmentUsecase{}
	h := NewAppointmentHandler(stub, validator.NewValidator(), quietLogger())

	rec := httptest.NewRecorder()
	h.CreateAppointment(rec, newRequest(http.MethodPost, "/api/v1/appointments", validCreateBody(), &customer, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastActor != customer {
		t.Fatalf("actor not forwarded: %+v", stub.lastActor)
	}
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Fatal("expected success envelope")
	}
}

func TestCreateAppointment_RequestErrors(t *testing.T) {
	h := NewAppointmentHandler(&stubAppointmentUsecase{}, validator.NewValidator(), quietLogger())

	bad := validCreateBody()
	bad.Time = "9am"

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{"no identity", newRequest(http.MethodPost, "/", validCreateBody(), nil, nil), http.StatusUnauthorized, response.CodeUnauthorized},
		{"malformed json", httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{")), http.StatusBadRequest, response.CodeValidation},
		{"bad time", newRequest(http.MethodPost, "/", bad, &customer, nil), http.StatusBadRequest, response.CodeValidation},
	}
	tests[1].req = tests[1].req.WithContext(middleware.WithActor(tests[1].req.Context(), customer))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.CreateAppointment(rec, tt.req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if resp := decodeResponse(t, rec); resp.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAppointmentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("%w: reason too short", usecase.ErrValidation), http.StatusBadRequest, response.CodeValidation},
		{usecase.ErrUnauthorized, http.StatusForbidden, response.CodeUnauthorized},
		{usecase.ErrAppointmentNotFound, http.StatusNotFound, response.CodeNotFound},
		{usecase.ErrPetNotFound, http.StatusNotFound, response.CodePetNotFound},
		{entity.ErrSlotTaken, http.StatusConflict, response.CodeSlotTaken},
		{usecase.ErrInvalidStatus, http.StatusConflict, response.CodeInvalidStatus},
		{entity.ErrInvalidTransition, http.StatusConflict, response.CodeInvalidTransition},
		{entity.ErrCannotCancel, http.StatusUnprocessableEntity, response.CodeCannotCancel},
		{entity.ErrCannotReschedule, http.StatusUnprocessableEntity, response.CodeCannotReschedule},
		{usecase.ErrPastDate, http.StatusBadRequest, response.CodePastDate},
		{usecase.ErrClosedDay, http.StatusBadRequest, response.CodeClosedDay},
		{fmt.Errorf("%w: timeout", service.ErrNotificationFailed), http.StatusBadGateway, response.CodeNotificationFail},
		{errors.New("connection refused"), http.StatusInternalServerError, response.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode+"/"+tt.err.Error(), func(t *testing.T) {
			h := NewAppointmentHandler(&stubAppointmentUsecase{err: tt.err}, validator.NewValidator(), quietLogger())
			id := uuid.New()

			rec := httptest.NewRecorder()
			h.GetAppointment(rec, newRequest(http.MethodGet, "/", nil, &customer, map[string]string{"id": id.String()}))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			resp := decodeResponse(t, rec)
			if resp.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, resp.Code)
			}
			if tt.wantStatus == http.StatusInternalServerError && resp.Message != "Failed to get appointment" {
				t.Fatalf("internal errors must not leak detail, got %q", resp.Message)
			}
		})
	}
}

func TestAppointmentHandler_InvalidID(t *testing.T) {
	h := NewAppointmentHandler(&stubAppointmentUsecase{}, validator.NewValidator(), quietLogger())

	rec := httptest.NewRecorder()
	h.ConfirmAppointment(rec, newRequest(http.MethodPost, "/", nil, &customer, map[string]string{"id": "42"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCancelAppointment_RequiresReason(t *testing.T) {
	stub := &stubAppointmentUsecase{}
	h := NewAppointmentHandler(stub, validator.NewValidator(), quietLogger())
	vars := map[string]string{"id": uuid.New().String()}

	rec := httptest.NewRecorder()
	h.CancelAppointment(rec, newRequest(http.MethodPost, "/", dto.CancelAppointmentRequest{}, &customer, vars))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reason, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CancelAppointment(rec, newRequest(http.MethodPost, "/", dto.CancelAppointmentRequest{Reason: "moving"}, &customer, vars))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListAppointments_Query(t *testing.T) {
	stub := &stubAppointmentUsecase{}
	h := NewAppointmentHandler(stub, validator.NewValidator(), quietLogger())
	petID := uuid.New()

	rec := httptest.NewRecorder()
	h.ListAppointments(rec, newRequest(http.MethodGet, "/appointments?status=confirmed&page=2&limit=10&pet_id="+petID.String(), nil, &customer, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastQuery.Status != "confirmed" || stub.lastQuery.Page != 2 || stub.lastQuery.PetID != petID {
		t.Fatalf("query not parsed: %+v", stub.lastQuery)
	}
	resp := decodeResponse(t, rec)
	if resp.Meta == nil || resp.Meta.Total != 25 || resp.Meta.TotalPages != 3 {
		t.Fatalf("unexpected meta %+v", resp.Meta)
	}

	rec = httptest.NewRecorder()
	h.ListAppointments(rec, newRequest(http.MethodGet, "/appointments?status=archived", nil, &customer, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListAppointments(rec, newRequest(http.MethodGet, "/appointments?limit=1000", nil, &customer, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized page: expected 400, got %d", rec.Code)
	}
}

func TestListAvailableSlots(t *testing.T) {
	stub := &stubAppointmentUsecase{}
	h := NewAppointmentHandler(stub, validator.NewValidator(), quietLogger())

	rec := httptest.NewRecorder()
	h.ListAvailableSlots(rec, newRequest(http.MethodGet, "/appointments/available-slots?date=2030-06-04", nil, &customer, nil))
	if rec.Code != http.StatusOK || stub.lastDate != "2030-06-04" {
		t.Fatalf("unexpected %d date=%q", rec.Code, stub.lastDate)
	}

	rec = httptest.NewRecorder()
	h.ListAvailableSlots(rec, newRequest(http.MethodGet, "/appointments/available-slots", nil, &customer, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date: expected 400, got %d", rec.Code)
	}

	stub.err = usecase.ErrClosedDay
	rec = httptest.NewRecorder()
	h.ListAvailableSlots(rec, newRequest(http.MethodGet, "/appointments/available-slots?date=2030-06-09", nil, &customer, nil))
	if resp := decodeResponse(t, rec); rec.Code != http.StatusBadRequest || resp.Code != response.CodeClosedDay {
		t.Fatalf("expected 400 CLOSED_DAY, got %d %s", rec.Code, resp.Code)
	}
}

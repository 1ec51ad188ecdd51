package usecase

import (
	"context"
	"errors"
	"testing"

	"vetclinic-scheduler/internal/delivery/dto"
	"vetclinic-scheduler/internal/domain/entity"
)

type memAuditLogRepo struct {
	logs       []entity.AuditLog
	lastFilter *entity.AuditLogFilter
	err        error
}

func (r *memAuditLogRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	log.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memAuditLogRepo) FindAll(ctx context.Context, filter *entity.AuditLogFilter) ([]entity.AuditLog, int64, error) {
	r.lastFilter = filter
	if r.err != nil {
		return nil, 0, r.err
	}
	var out []entity.AuditLog
	for _, l := range r.logs {
		if filter.EntityID != "" && l.EntityID != filter.EntityID {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (r *memAuditLogRepo) FindByID(ctx context.Context, id int64) (*entity.AuditLog, error) {
	for i := range r.logs {
		if r.logs[i].ID == id {
			return &r.logs[i], nil
		}
	}
	return nil, nil
}

func TestAuditLogUsecase_List(t *testing.T) {
	repo := &memAuditLogRepo{}
	_ = repo.Create(context.Background(), &entity.AuditLog{Action: entity.AuditActionAppointmentCreate, EntityType: entity.AuditEntityAppointment, EntityID: "a"})
	_ = repo.Create(context.Background(), &entity.AuditLog{Action: entity.AuditActionAppointmentCancel, EntityType: entity.AuditEntityAppointment, EntityID: "b"})
	uc := NewAuditLogUsecase(quietLogger(), repo)

	resp, err := uc.ListAuditLogs(context.Background(), &dto.AuditLogListQuery{EntityID: "b", Page: 3, Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 1 || resp.Logs[0].Action != entity.AuditActionAppointmentCancel {
		t.Fatalf("unexpected response %+v", resp)
	}
	if repo.lastFilter.Offset != 40 || repo.lastFilter.Limit != 20 {
		t.Fatalf("unexpected paging %+v", repo.lastFilter)
	}

	// zero paging falls back to the defaults
	resp, err = uc.ListAuditLogs(context.Background(), &dto.AuditLogListQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Page != 1 || resp.Limit != 10 {
		t.Fatalf("expected page 1 limit 10, got %d %d", resp.Page, resp.Limit)
	}
}

func TestAuditLogUsecase_Get(t *testing.T) {
	repo := &memAuditLogRepo{}
	_ = repo.Create(context.Background(), &entity.AuditLog{Action: entity.AuditActionAppointmentCreate, EntityType: entity.AuditEntityAppointment, EntityID: "a"})
	uc := NewAuditLogUsecase(quietLogger(), repo)

	got, err := uc.GetAuditLog(context.Background(), 1)
	if err != nil || got.EntityID != "a" {
		t.Fatalf("unexpected result %+v, %v", got, err)
	}
	if _, err := uc.GetAuditLog(context.Background(), 42); !errors.Is(err, ErrAuditLogNotFound) {
		t.Fatalf("expected ErrAuditLogNotFound, got %v", err)
	}
}

func TestAuditLogUsecase_RepoError(t *testing.T) {
	boom := errors.New("db down")
	uc := NewAuditLogUsecase(quietLogger(), &memAuditLogRepo{err: boom})

	if _, err := uc.ListAuditLogs(context.Background(), &dto.AuditLogListQuery{Page: 1, Limit: 10}); !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

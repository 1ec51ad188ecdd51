package service

import (
	"context"

	"vetclinic-scheduler/internal/domain/entity"
	"vetclinic-scheduler/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditService writes the audit trail. Entries are recorded after the
// mutation has committed; a failure here never undoes the mutation.
type AuditService interface {
	LogCreate(ctx context.Context, userID *uuid.UUID, action string, entityType string, entityID string, newValue interface{}) error
	LogUpdate(ctx context.Context, userID *uuid.UUID, action string, entityType string, entityID string, oldValue, newValue interface{}) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

// LogCreate logs a create action
func (s *auditService) LogCreate(ctx context.Context, userID *uuid.UUID, action string, entityType string, entityID string, newValue interface{}) error {
	return s.write(ctx, userID, action, entityType, entityID, nil, newValue)
}

// LogUpdate logs an update action with old and new values
func (s *auditService) LogUpdate(ctx context.Context, userID *uuid.UUID, action string, entityType string, entityID string, oldValue, newValue interface{}) error {
	return s.write(ctx, userID, action, entityType, entityID, oldValue, newValue)
}

func (s *auditService) write(ctx context.Context, userID *uuid.UUID, action, entityType, entityID string, oldValue, newValue interface{}) error {
	auditLog := &entity.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata: entity.JSON{
			"old_value": oldValue,
			"new_value": newValue,
		},
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}

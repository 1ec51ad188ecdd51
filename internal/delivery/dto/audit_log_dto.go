package dto

import (
	"time"

	"vetclinic-scheduler/internal/domain/entity"

	"github.com/google/uuid"
)

// AuditLogListQuery is parsed from the query string of GET /admin/audit-logs
type AuditLogListQuery struct {
	EntityType string
	EntityID   string
	Action     string
	Page       int `validate:"gte=1"`
	Limit      int `validate:"gte=1,lte=100"`
}

// Response DTOs

type AuditLogResponse struct {
	ID         int64       `json:"id"`
	UserID     *uuid.UUID  `json:"user_id,omitempty"`
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Metadata   entity.JSON `json:"metadata"`
	CreatedAt  time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Total int64              `json:"total"`
}

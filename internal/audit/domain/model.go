package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event types recorded by the evaluator.
const (
	EventLicenseUpload  = "license.upload"
	EventLicenseDelete  = "license.delete"
	EventSettingsUpdate = "settings.update"
	EventForceOverride  = "feature.force_override"
	EventMemberAdd      = "member.add"
	EventAccessDenied   = "access.denied"
)

type Entry struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	EventType   string            `gorm:"type:text;not null;index"`
	ActorID     *snowflake.ID     `gorm:"index"`
	TargetType  string            `gorm:"type:text;not null"`
	TargetID    *string           `gorm:"type:text"`
	NamespaceID *snowflake.ID     `gorm:"index"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Entry) TableName() string { return "audit_events" }

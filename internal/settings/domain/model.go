// Package domain contains namespace setting rows and the resolved view the
// entitlement engine consumes.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// InstanceNamespaceID marks rows holding instance-wide values.
const InstanceNamespaceID int64 = 0

// Row is one explicit setting value for a namespace. The version column backs
// the optimistic write check; Enforced is meaningful only on instance rows and
// locks every descendant to the instance value.
type Row struct {
	NamespaceID int64          `gorm:"primaryKey;autoIncrement:false"`
	Key         string         `gorm:"primaryKey;type:text"`
	Value       datatypes.JSON `gorm:"not null"`
	Enforced    bool           `gorm:"not null;default:false"`
	Version     int64          `gorm:"not null;default:1"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Row) TableName() string { return "namespace_settings" }

// Source identifies the authority layer a resolved value came from.
type Source string

const (
	SourceInstance Source = "instance"
	SourceAncestor Source = "ancestor"
	SourceSelf     Source = "self"
	SourceDefault  Source = "default"
)

// InheritedFromInstance is the sentinel reported when the instance fixed the
// value; otherwise InheritedFrom carries the ancestor namespace ID.
const InheritedFromInstance = "instance"

// Resolved is the effective value of a setting for one namespace.
type Resolved struct {
	Key           string  `json:"key"`
	Value         any     `json:"value"`
	Locked        bool    `json:"locked"`
	InheritedFrom *string `json:"inherited_from,omitempty"`
	Source        Source  `json:"source"`
}

// BoolValue coerces the resolved value to a boolean, defaulting to false.
func (r Resolved) BoolValue() bool {
	switch v := r.Value.(type) {
	case bool:
		return v
	default:
		return false
	}
}

// Int64Value coerces the resolved value to an integer, defaulting to 0.
// JSON decoding yields float64 for numbers.
func (r Resolved) Int64Value() int64 {
	switch v := r.Value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

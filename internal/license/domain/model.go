// Package domain contains the license grant model and plan ordering.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Plan is an ordered license tier. Higher tiers cover every feature a lower
// tier covers.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanPremium  Plan = "premium"
	PlanUltimate Plan = "ultimate"
)

var planRank = map[Plan]int{
	PlanFree:     0,
	PlanPremium:  1,
	PlanUltimate: 2,
}

// Covers reports whether p satisfies the required tier.
func (p Plan) Covers(required Plan) bool {
	return planRank[p] >= planRank[required]
}

// Valid reports whether p is a recognized tier.
func (p Plan) Valid() bool {
	_, ok := planRank[p]
	return ok
}

// ParsePlan normalizes a raw plan string.
func ParsePlan(raw string) (Plan, error) {
	plan := Plan(strings.ToLower(strings.TrimSpace(raw)))
	if !plan.Valid() {
		return "", ErrInvalidPlan
	}
	return plan, nil
}

// Grant is one issued license. Rows are append-only; a newer grant supersedes
// older ones without deleting them so historical seat counts stay queryable.
type Grant struct {
	ID                  snowflake.ID      `gorm:"primaryKey"`
	Plan                Plan              `gorm:"type:text;not null"`
	StartsAt            time.Time         `gorm:"not null"`
	ExpiresAt           time.Time         `gorm:"not null"`
	RestrictedUserCount int               `gorm:"not null;default:0"`
	HistoricalMaxUsers  int               `gorm:"not null;default:0"`
	AddOns              datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Grant) TableName() string { return "licenses" }

// Expired reports whether the grant has lapsed at the given instant.
func (g *Grant) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// SeatLimit returns the seat ceiling, 0 meaning unlimited.
func (g *Grant) SeatLimit() int {
	if g.RestrictedUserCount < 0 {
		return 0
	}
	return g.RestrictedUserCount
}

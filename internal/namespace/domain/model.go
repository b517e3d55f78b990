// Package domain contains the namespace tree (groups, subgroups, projects)
// and membership rows. Nodes reference their parent by id only; the tree is
// walked as an arena, never through owned pointers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindGroup   Kind = "group"
	KindProject Kind = "project"
)

// Role is the membership access level inside a namespace.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleReporter   Role = "reporter"
	RoleDeveloper  Role = "developer"
	RoleMaintainer Role = "maintainer"
	RoleOwner      Role = "owner"
)

var roleRank = map[Role]int{
	RoleGuest:      10,
	RoleReporter:   20,
	RoleDeveloper:  30,
	RoleMaintainer: 40,
	RoleOwner:      50,
}

// AtLeast reports whether r grants the access level of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Max returns the higher of two roles.
func Max(a, b Role) Role {
	if roleRank[a] >= roleRank[b] {
		return a
	}
	return b
}

type Namespace struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	ParentID  *snowflake.ID `gorm:"index"`
	Kind      Kind          `gorm:"type:text;not null"`
	Name      string        `gorm:"type:text;not null"`
	Path      string        `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Namespace) TableName() string { return "namespaces" }

type Member struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	NamespaceID snowflake.ID `gorm:"not null;uniqueIndex:ux_members_namespace_user,priority:1"`
	UserID      snowflake.ID `gorm:"not null;uniqueIndex:ux_members_namespace_user,priority:2"`
	Role        Role         `gorm:"type:text;not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Member) TableName() string { return "namespace_members" }

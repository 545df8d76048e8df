/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RoleName defines a user's role within the platform.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleTenant  RoleName = "tenant"
)

// User represents an account that can be assigned work, receive
// notifications, or operate the API. Account provisioning and credential
// management live outside this service; we only read users.
type User struct {
	ID        string   `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string   `gorm:"type:varchar(255)" json:"name"`
	Phone     string   `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Role      RoleName `gorm:"type:varchar(32);not null;default:'tenant'" json:"role"`
	Suspended bool     `gorm:"not null;default:false" json:"suspended"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}

// Unit represents a rentable physical unit in a managed property.
type Unit struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	RoomNumber string  `gorm:"type:varchar(32);index:idx_units_room;not null" json:"room_number"`
	Floor      int     `gorm:"index:idx_units_floor;not null" json:"floor"`
	UnitType   string  `gorm:"type:varchar(64);index:idx_units_type" json:"unit_type"` // e.g. "studio", "1br", "2br"
	SizeSqm    float64 `json:"size_sqm,omitempty"`
	Rent       float64 `json:"rent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Unit) TableName() string {
	return "units"
}

// LeaseStatus defines the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusEnded      LeaseStatus = "ended"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// Lease binds a tenant to a unit for a period. A unit is considered
// occupied exactly when it has a lease with status=active.
type Lease struct {
	ID       string      `gorm:"type:uuid;primaryKey" json:"id"`
	UnitID   string      `gorm:"type:uuid;index:idx_leases_unit;not null" json:"unit_id"`
	TenantID string      `gorm:"type:uuid;index:idx_leases_tenant;not null" json:"tenant_id"`
	Status   LeaseStatus `gorm:"type:varchar(32);index:idx_leases_status;not null;default:'active'" json:"status"`

	StartDate time.Time  `gorm:"not null" json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Relationships
	Unit   *Unit `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Tenant *User `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Lease) TableName() string {
	return "leases"
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"github.com/friendsincode/hearthwarden/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		// Directory models
		&models.User{},
		&models.Unit{},
		&models.Lease{},

		// Maintenance engine
		&models.MaintenanceSchedule{},
		&models.MaintenanceRequest{},
		&models.ScheduleLog{},

		// Notifications
		&models.NotificationPreference{},
		&models.Notification{},
	)
}

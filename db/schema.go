package db

import "gorm.io/gorm"

// RegisterCoreMigrations adds the pieces AutoMigrate cannot express.
// The exclusion constraint is the database-level slot-conflict
// backstop: even if two repeatable-read transactions both pass the
// locking read, the second commit of an overlapping non-cancelled
// range for the same staff member fails with SQLSTATE 23P01.
func RegisterCoreMigrations(m *Migrator) {
	m.AddMigration("0001", "btree_gist_extension", func(db *gorm.DB) error {
		return db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error
	})

	m.AddMigration("0002", "appointments_no_overlap", func(db *gorm.DB) error {
		return db.Exec(`
			ALTER TABLE appointments
			ADD CONSTRAINT appointments_no_overlap
			EXCLUDE USING gist (
				staff_id WITH =,
				tstzrange(starts_at, ends_at) WITH &&
			)
			WHERE (status <> 'cancelled')
		`).Error
	})
}

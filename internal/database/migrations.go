package database

import "fmt"

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&SessionToken{}, &UploadFailure{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Listing failures filters by resource and sorts by time
	if err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_upload_failures_resource_created
		ON upload_failures(resource, created_at);
	`).Error; err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

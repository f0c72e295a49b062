package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"housingadmin/console/internal/session"
)

// SessionToken is a bearer token kept for one browser session under a role
// key such as "adminToken".
type SessionToken struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:64;not null;uniqueIndex:idx_session_key"`
	RoleKey   string `gorm:"size:32;not null;uniqueIndex:idx_session_key"`
	Token     string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UploadFailure is a file that was skipped during a multi-file upload.
type UploadFailure struct {
	ID        uint   `gorm:"primaryKey"`
	Resource  string `gorm:"size:32;index"`
	File      string
	Reason    string
	CreatedAt time.Time
}

type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatabase(dbPath string, log *logrus.Logger) (*Database, error) {
	if log == nil {
		log = logrus.New()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db, logger: log}
	if err := d.RunMigrations(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadToken returns session.ErrNoToken when nothing is stored under key.
func (d *Database) LoadToken(sessionID, key string) (string, error) {
	var t SessionToken
	err := d.db.Where("session_id = ? AND role_key = ?", sessionID, key).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", session.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return t.Token, nil
}

// SaveToken inserts or replaces the token under key.
func (d *Database) SaveToken(sessionID, key, token string) error {
	t := SessionToken{SessionID: sessionID, RoleKey: key, Token: token}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "role_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&t).Error
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (d *Database) DeleteTokens(sessionID string) error {
	if err := d.db.Where("session_id = ?", sessionID).Delete(&SessionToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

// PurgeTokens removes tokens not touched since before.
func (d *Database) PurgeTokens(before time.Time) (int64, error) {
	res := d.db.Where("updated_at < ?", before).Delete(&SessionToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (d *Database) RecordUploadFailure(ctx context.Context, resource, file, reason string) error {
	f := UploadFailure{Resource: resource, File: file, Reason: reason}
	if err := d.db.WithContext(ctx).Create(&f).Error; err != nil {
		return fmt.Errorf("failed to record upload failure: %w", err)
	}
	d.logger.WithFields(logrus.Fields{
		"resource": resource,
		"file":     file,
		"reason":   reason,
	}).Info("Recorded upload failure")
	return nil
}

// UploadFailures lists the most recent failures first. An empty resource
// returns every kind.
func (d *Database) UploadFailures(ctx context.Context, resource string, limit int) ([]UploadFailure, error) {
	q := d.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if resource != "" {
		q = q.Where("resource = ?", resource)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []UploadFailure
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list upload failures: %w", err)
	}
	return out, nil
}

// SaveUploadFailures writes a batch in one transaction.
func (d *Database) SaveUploadFailures(ctx context.Context, batch []UploadFailure) error {
	if len(batch) == 0 {
		return nil
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&batch).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save upload failures: %w", err)
	}
	return nil
}

// PruneUploadFailures drops failures recorded before the given time.
func (d *Database) PruneUploadFailures(ctx context.Context, before time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Where("created_at < ?", before).Delete(&UploadFailure{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune upload failures: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package gormstore implements store.Store with GORM over SQLite or
// PostgreSQL.
//
// SQLite runs through the pure-Go glebarez driver, so this backend needs no
// CGO. A path of ":memory:" opens a private in-memory database pinned to a
// single connection.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/store"
)

// userRow is the users table.
type userRow struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

// markerRow is the markers table.
type markerRow struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	OwnerID   int64   `gorm:"not null;index"`
	Lat       float64 `gorm:"not null"`
	Lng       float64 `gorm:"not null"`
	Kind      string  `gorm:"size:16;not null"`
	Label     string  `gorm:"size:200;not null"`
	Category  string  `gorm:"size:16;not null"`
	CreatedAt time.Time
}

func (markerRow) TableName() string { return "markers" }

func (r *userRow) toModel() *models.User {
	return &models.User{ID: r.ID, Username: r.Username, PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt}
}

func (r *markerRow) toModel() models.Marker {
	return models.Marker{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Lat:       r.Lat,
		Lng:       r.Lng,
		Kind:      models.Kind(r.Kind),
		Label:     r.Label,
		Category:  models.Category(r.Category),
		CreatedAt: r.CreatedAt,
	}
}

func newMarkerRow(ownerID int64, f models.MarkerFields) *markerRow {
	return &markerRow{
		OwnerID:  ownerID,
		Lat:      f.Lat,
		Lng:      f.Lng,
		Kind:     string(f.Kind),
		Label:    f.Label,
		Category: string(f.Category),
	}
}

// Store is a GORM-backed store.Store.
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	driver string
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(path string) (*Store, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = "file::memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return setup(db, "sqlite", func(sqlDB *sql.DB) {
		// One writer; an in-memory database also lives on a single connection.
		sqlDB.SetMaxOpenConns(1)
	})
}

// OpenPostgres connects to PostgreSQL using dsn.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	return setup(db, "postgres", func(sqlDB *sql.DB) {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	})
}

func setup(db *gorm.DB, driver string, tune func(*sql.DB)) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	tune(sqlDB)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}

	if err := db.AutoMigrate(&userRow{}, &markerRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logging.Info().Str("driver", driver).Msg("GORM store ready")
	return &Store{db: db, sqlDB: sqlDB, driver: driver}, nil
}

// Driver returns "sqlite" or "postgres".
func (s *Store) Driver() string { return s.driver }

// Ping implements store.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// CreateUser implements store.UserStore.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	start := time.Now()
	row := &userRow{Username: username, PasswordHash: passwordHash}
	err := s.db.WithContext(ctx).Create(row).Error
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)
	if err != nil {
		if isDuplicate(err) {
			return nil, store.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return row.toModel(), nil
}

// GetUserByUsername implements store.UserStore.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// GetUserByID implements store.UserStore.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *Store) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	start := time.Now()
	var row userRow
	err := s.db.WithContext(ctx).Where(where, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.RecordDBQuery("select", "users", time.Since(start), nil)
		return nil, store.ErrUserNotFound
	}
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toModel(), nil
}

// CreateMarker implements store.MarkerStore.
func (s *Store) CreateMarker(ctx context.Context, ownerID int64, fields models.MarkerFields) (*models.Marker, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	row := newMarkerRow(ownerID, fields)
	err := s.db.WithContext(ctx).Create(row).Error
	metrics.RecordDBQuery("insert", "markers", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to create marker: %w", err)
	}
	m := row.toModel()
	return &m, nil
}

// DeleteMarker implements store.MarkerStore.
func (s *Store) DeleteMarker(ctx context.Context, ownerID, id int64) (bool, error) {
	start := time.Now()
	res := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&markerRow{})
	metrics.RecordDBQuery("delete", "markers", time.Since(start), res.Error)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete marker: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListMarkers implements store.MarkerStore.
func (s *Store) ListMarkers(ctx context.Context, ownerID int64) ([]models.Marker, error) {
	start := time.Now()
	var rows []markerRow
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id").Find(&rows).Error
	metrics.RecordDBQuery("select", "markers", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}

	markers := make([]models.Marker, 0, len(rows))
	for i := range rows {
		markers = append(markers, rows[i].toModel())
	}
	return markers, nil
}

// ReplaceMarkers implements store.MarkerStore.
func (s *Store) ReplaceMarkers(ctx context.Context, ownerID int64, removeIDs []int64, fields models.MarkerFields) (*models.Marker, int, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, 0, err
	}

	start := time.Now()
	row := newMarkerRow(ownerID, fields)
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(removeIDs) > 0 {
			res := tx.Where("owner_id = ? AND id IN ?", ownerID, removeIDs).Delete(&markerRow{})
			if res.Error != nil {
				return res.Error
			}
			removed = int(res.RowsAffected)
		}
		return tx.Create(row).Error
	})
	metrics.RecordDBQuery("replace", "markers", time.Since(start), err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to replace markers: %w", err)
	}

	m := row.toModel()
	return &m, removed, nil
}

// isDuplicate matches translated and raw unique violations of both drivers.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

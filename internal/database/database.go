package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/kitaplik/internal/config"
	"github.com/mrlokans/kitaplik/internal/entities"
)

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

// NewDatabase opens the configured driver, migrates the schema and seeds
// the fixed lookup tables.
func NewDatabase(cfg config.Database) (*Database, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}

	dialector, err := openDialector(driver, cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
		// Referential checks are done by the service before deletes.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Status{},
		&entities.EventType{},
		&entities.Authority{},
		&entities.User{},
		&entities.Author{},
		&entities.Publisher{},
		&entities.Category{},
		&entities.Book{},
		&entities.BookCategory{},
		&entities.Reading{},
		&entities.Log{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := backfillSearchNames(db); err != nil {
		return nil, fmt.Errorf("failed to backfill search names: %w", err)
	}

	database := &Database{DB: db, Driver: driver}

	if err := database.seedLookups(); err != nil {
		return nil, fmt.Errorf("failed to seed lookup tables: %w", err)
	}

	log.Printf("Database initialized successfully (%s)", driver)

	return database, nil
}

func openDialector(driver config.DatabaseDriver, cfg config.Database) (gorm.Dialector, error) {
	switch driver {
	case config.DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite database path is not set")
		}
		return sqlite.Open(cfg.Path), nil
	case config.DriverPostgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgres connection string is not set (DATABASE_URL)")
		}
		// lib/pq owns the pool so the session store can share it.
		sqlDB, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres connection: %w", err)
		}
		return postgres.New(postgres.Config{Conn: sqlDB}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying pool, e.g. for the session store.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

// backfillSearchNames fills search_name on catalog rows written before the
// column existed. Saving runs the models' BeforeSave hooks.
func backfillSearchNames(db *gorm.DB) error {
	if err := backfill[entities.Author](db); err != nil {
		return err
	}
	if err := backfill[entities.Publisher](db); err != nil {
		return err
	}
	return backfill[entities.Category](db)
}

func backfill[T any](db *gorm.DB) error {
	var rows []T
	if err := db.Where("search_name = ?", "").Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		if err := db.Save(&rows[i]).Error; err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		log.Printf("[DATABASE] Backfilled search names on %d rows", len(rows))
	}
	return nil
}

func (d *Database) seedLookups() error {
	statuses := make([]entities.Status, 0, len(entities.AllStatuses))
	for _, s := range entities.AllStatuses {
		statuses = append(statuses, entities.Status{ID: s, Name: s.Name(), Label: s.Label()})
	}
	if err := d.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses).Error; err != nil {
		return fmt.Errorf("failed to seed statuses: %w", err)
	}

	eventTypes := make([]entities.EventType, 0, len(entities.AllEventTypes))
	for _, e := range entities.AllEventTypes {
		eventTypes = append(eventTypes, entities.EventType{ID: e, Name: e.Name()})
	}
	if err := d.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&eventTypes).Error; err != nil {
		return fmt.Errorf("failed to seed event types: %w", err)
	}

	authorities := make([]entities.Authority, 0, len(entities.AllAuthorities))
	for _, a := range entities.AllAuthorities {
		authorities = append(authorities, entities.Authority{ID: a, Name: a.Name()})
	}
	if err := d.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&authorities).Error; err != nil {
		return fmt.Errorf("failed to seed authorities: %w", err)
	}

	return nil
}

// Statuses returns the lookup rows in id order.
func (d *Database) Statuses() ([]entities.Status, error) {
	var statuses []entities.Status
	err := d.DB.Order("id ASC").Find(&statuses).Error
	return statuses, err
}

// Ping checks connectivity.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// AllModels is the migration set for AutoMigrate.
var AllModels = []any{
	&models.Category{},
	&models.Product{},
	&models.ProductVariation{},
	&models.ProductImage{},
	&models.Review{},
	&models.Cart{},
	&models.CartItem{},
	&models.Membership{},
	&models.Account{},
	&models.Interest{},
	&models.Customer{},
	&models.BillingAddress{},
	&models.OptionalShippingAddress{},
	&models.Order{},
	&models.OrderItem{},
	&models.ProcessedWebhookEvent{},
	&models.BlogPost{},
	&models.Tag{},
	&models.TaggedItem{},
	&models.Ailment{},
	&models.AilmentItem{},
}

// GormConfig is shared by the Postgres connection and the sqlite test helper.
// Constraints are owned by the SQL migrations, so AutoMigrate does not emit them.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Prepare brings the schema up to date and seeds reference data.
func Prepare(db *gorm.DB, autoMigrate bool, log *slog.Logger) error {
	if autoMigrate {
		if err := db.AutoMigrate(AllModels...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		log.Info("schema auto-migrated")
	} else {
		if err := RunMigrations(db); err != nil {
			return err
		}
		log.Info("sql migrations applied")
	}
	return SeedMemberships(db)
}

// RunMigrations applies the embedded SQL migrations to a Postgres database.
func RunMigrations(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// SeedMemberships inserts the default tiers that are missing.
func SeedMemberships(db *gorm.DB) error {
	for _, m := range models.DefaultMemberships {
		m := m
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "label"}},
			DoNothing: true,
		}).Create(&m).Error; err != nil {
			return fmt.Errorf("seed membership %s: %w", m.Label, err)
		}
	}
	return nil
}

// ForUpdate locks the selected rows on Postgres. sqlite has no row locks and
// already serializes writers.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsUniqueViolation recognises duplicate-key errors from either driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

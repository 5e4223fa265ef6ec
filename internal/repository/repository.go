// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/repository/flagpostgres"
	"github.com/junker098/universe-app/internal/repository/flagsqlite"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

// FlagRepository - хранилище последнего снимка флагов удаления
type FlagRepository interface {
	LoadFlags(ctx context.Context) (model.Flags, error) // nil если ничего не сохраняли
	SaveFlags(ctx context.Context, flags model.Flags) error
}

// PurgeLogRepo - журнал выполненных очисток корзины
type PurgeLogRepo interface {
	RecordPurge(ctx context.Context, rec *model.PurgeRecord) error
	ListPurges(ctx context.Context, req *model.ListRequest) ([]model.PurgeRecord, error)
}

// Store is both a flag store and a purge log.
type Store interface {
	FlagRepository
	PurgeLogRepo
}

func NewPostgresRepo(dbconn *dbpg.DB) Store {
	return flagpostgres.PostgresRepo{DB: dbconn}
}

func NewSqliteRepo(path string) (*flagsqlite.SqliteRepo, error) {
	return flagsqlite.Open(path)
}

func ConnectWithRetries(appConfig *config.Config, retryCount int, idleTime time.Duration) *dbpg.DB {
	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}
	dsnLink := appConfig.GetString("POSTGRES_DSN")
	var dbConn *dbpg.DB
	var err error

	for range retryCount {
		dbConn, err = dbpg.New(dsnLink, nil, &dbOptions)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to PGDB: %s\nWaiting %v before next retry...", err, idleTime)
		time.Sleep(idleTime)
	}

	if err != nil {
		log.Fatal("Failed to connect to DB. Exiting the app...")
	}

	return dbConn
}

func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) {
	for i := range retries {
		log.Printf("Migration try #%d...", i+1)
		err := runMigrate(db, migrationsPath)
		if err == nil {
			return
		}
		log.Printf("Migration try #%d was unsuccessful: %v. Waiting %v before next try...", i+1, err, idle)
		time.Sleep(idle)
	}
	log.Fatalln("Out of migration retries. Exiting...")
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	log.Println("Running migrations from:", sourceURL)

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	log.Println("Database migrations applied successfully")
	return nil
}

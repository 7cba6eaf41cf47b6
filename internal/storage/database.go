package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"casedesk/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database for the given driver.
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
			dbCfg.Params,
		)
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the required tables are present. Every table is keyed
// by team_id first; no record is addressable without a team scope.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS jobs (
				team_id TEXT NOT NULL,
				job_id TEXT NOT NULL,
				type TEXT NOT NULL,
				status TEXT NOT NULL,
				title TEXT NOT NULL,
				created_by TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				input_file_ids TEXT NOT NULL,
				params TEXT,
				PRIMARY KEY (team_id, job_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_jobs_team_created ON jobs(team_id, created_at DESC)`,
			`CREATE TABLE IF NOT EXISTS job_artifacts (
				team_id TEXT NOT NULL,
				job_id TEXT NOT NULL,
				artifact_id TEXT NOT NULL,
				bucket TEXT NOT NULL,
				object_key TEXT NOT NULL,
				content_type TEXT NOT NULL,
				PRIMARY KEY (team_id, job_id, artifact_id),
				FOREIGN KEY(team_id, job_id) REFERENCES jobs(team_id, job_id) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS upload_files (
				team_id TEXT NOT NULL,
				file_id TEXT NOT NULL,
				file_name TEXT NOT NULL,
				content_type TEXT NOT NULL,
				size INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				bucket TEXT NOT NULL,
				object_key TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (team_id, file_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_upload_files_team_created ON upload_files(team_id, created_at DESC)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS jobs (
				team_id VARCHAR(64) NOT NULL,
				job_id VARCHAR(32) NOT NULL,
				type VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				title VARCHAR(255) NOT NULL,
				created_by VARCHAR(255) NOT NULL,
				created_at DATETIME NOT NULL,
				input_file_ids TEXT NOT NULL,
				params TEXT,
				PRIMARY KEY (team_id, job_id),
				INDEX idx_jobs_team_created (team_id, created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS job_artifacts (
				team_id VARCHAR(64) NOT NULL,
				job_id VARCHAR(32) NOT NULL,
				artifact_id VARCHAR(64) NOT NULL,
				bucket VARCHAR(255) NOT NULL,
				object_key VARCHAR(512) NOT NULL,
				content_type VARCHAR(255) NOT NULL,
				PRIMARY KEY (team_id, job_id, artifact_id),
				CONSTRAINT fk_job_artifacts_job FOREIGN KEY (team_id, job_id) REFERENCES jobs(team_id, job_id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS upload_files (
				team_id VARCHAR(64) NOT NULL,
				file_id VARCHAR(64) NOT NULL,
				file_name VARCHAR(255) NOT NULL,
				content_type VARCHAR(255) NOT NULL,
				size BIGINT NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				bucket VARCHAR(255) NOT NULL,
				object_key VARCHAR(512) NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (team_id, file_id),
				INDEX idx_upload_files_team_created (team_id, created_at)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"casedesk/internal/models"
)

// FileStore is the upload file registry: it tracks input files and
// their readiness state per team. The job dispatcher only reads from it.
type FileStore struct {
	db *sql.DB
}

// NewFileStore constructs the registry over an open database handle.
func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{db: db}
}

// Create registers a new upload in pending state.
func (s *FileStore) Create(ctx context.Context, f *models.UploadFile) error {
	if f == nil {
		return fmt.Errorf("file required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO upload_files (team_id, file_id, file_name, content_type, size, status, bucket, object_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.TeamID, f.FileID, f.FileName, f.ContentType, f.Size, f.Status, f.Bucket, f.ObjectKey, f.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert upload file: %w", err)
	}
	return nil
}

// Get looks a file up in the team partition.
// Returns sql.ErrNoRows when the team holds no such file.
func (s *FileStore) Get(ctx context.Context, teamID, fileID string) (*models.UploadFile, error) {
	var f models.UploadFile
	err := s.db.QueryRowContext(ctx,
		`SELECT team_id, file_id, file_name, content_type, size, status, bucket, object_key, created_at
		 FROM upload_files WHERE team_id = ? AND file_id = ?`,
		teamID, fileID,
	).Scan(&f.TeamID, &f.FileID, &f.FileName, &f.ContentType, &f.Size, &f.Status, &f.Bucket, &f.ObjectKey, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

// SetStatus moves a file between readiness states.
// Returns sql.ErrNoRows when the file is absent from the team partition.
func (s *FileStore) SetStatus(ctx context.Context, teamID, fileID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE upload_files SET status = ? WHERE team_id = ? AND file_id = ?`,
		status, teamID, fileID,
	)
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

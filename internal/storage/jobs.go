package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"casedesk/internal/models"
)

// JobStore is the durable, team-partitioned record of job lifecycle,
// inputs, and produced artifacts. Every operation takes a team id; a
// bare job id is never a key.
type JobStore struct {
	db *sql.DB
}

// NewJobStore constructs the store over an open database handle.
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

// Create persists a freshly dispatched job. Artifacts are never written
// here; only the worker fleet appends them.
func (s *JobStore) Create(ctx context.Context, job *models.Job) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	fileIDs, err := json.Marshal(job.InputFileIDs)
	if err != nil {
		return fmt.Errorf("encode input file ids: %w", err)
	}
	var params sql.NullString
	if len(job.Params) > 0 {
		raw, err := json.Marshal(job.Params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		params = sql.NullString{String: string(raw), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (team_id, job_id, type, status, title, created_by, created_at, input_file_ids, params)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.TeamID, job.JobID, job.Type, job.Status, job.Title, job.CreatedBy,
		job.CreatedAt.UTC(), string(fileIDs), params,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get loads one job with its artifacts, scoped to the team partition.
// Returns sql.ErrNoRows when the team holds no such job.
func (s *JobStore) Get(ctx context.Context, teamID, jobID string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT team_id, job_id, type, status, title, created_by, created_at, input_file_ids, params
		 FROM jobs WHERE team_id = ? AND job_id = ?`,
		teamID, jobID,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	job.Artifacts, err = s.loadArtifacts(ctx, teamID, jobID)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListRecent returns the team's newest jobs first.
func (s *JobStore) ListRecent(ctx context.Context, teamID string, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, job_id, type, status, title, created_by, created_at, input_file_ids, params
		 FROM jobs WHERE team_id = ? ORDER BY created_at DESC, job_id DESC LIMIT ?`,
		teamID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	for _, job := range jobs {
		job.Artifacts, err = s.loadArtifacts(ctx, teamID, job.JobID)
		if err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// SetStatus records a worker-driven lifecycle transition.
// Returns sql.ErrNoRows when the job is absent from the team partition.
func (s *JobStore) SetStatus(ctx context.Context, teamID, jobID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE team_id = ? AND job_id = ?`,
		status, teamID, jobID,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddArtifact appends a worker-produced artifact reference to the job.
// Artifacts are immutable once inserted.
func (s *JobStore) AddArtifact(ctx context.Context, teamID, jobID string, artifact models.Artifact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_artifacts (team_id, job_id, artifact_id, bucket, object_key, content_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		teamID, jobID, artifact.ArtifactID, artifact.Bucket, artifact.ObjectKey, artifact.ContentType,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (s *JobStore) loadArtifacts(ctx context.Context, teamID, jobID string) ([]models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT artifact_id, bucket, object_key, content_type
		 FROM job_artifacts WHERE team_id = ? AND job_id = ? ORDER BY artifact_id`,
		teamID, jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := make([]models.Artifact, 0, 2)
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ArtifactID, &a.Bucket, &a.ObjectKey, &a.ContentType); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job       models.Job
		createdAt time.Time
		fileIDs   string
		params    sql.NullString
	)
	err := row.Scan(&job.TeamID, &job.JobID, &job.Type, &job.Status, &job.Title,
		&job.CreatedBy, &createdAt, &fileIDs, &params)
	if err != nil {
		return nil, err
	}
	job.CreatedAt = createdAt.UTC()
	if err := json.Unmarshal([]byte(fileIDs), &job.InputFileIDs); err != nil {
		return nil, fmt.Errorf("decode input file ids: %w", err)
	}
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &job.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	job.Artifacts = make([]models.Artifact, 0)
	return &job, nil
}

package dispatch

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"casedesk/internal/apperr"
	"casedesk/internal/models"
	"casedesk/internal/queue"
	"casedesk/internal/storage"
)

const (
	maxInputFiles    = 8
	maxContractFiles = 2
	minFileIDLength  = 6
	jobIDBytes       = 8 // 16 hex characters
)

// SubmitRequest is a validated job submission.
type SubmitRequest struct {
	JobType string            `json:"job_type"`
	Title   string            `json:"title"`
	FileIDs []string          `json:"file_ids"`
	Params  map[string]string `json:"params"`
}

// Dispatcher validates job requests, persists the job record, and
// enqueues the work message for the external worker fleet.
type Dispatcher struct {
	jobs  *storage.JobStore
	files *storage.FileStore
	queue queue.Publisher
	now   func() time.Time
}

// NewDispatcher wires the dispatcher to its collaborators.
func NewDispatcher(jobs *storage.JobStore, files *storage.FileStore, publisher queue.Publisher) *Dispatcher {
	return &Dispatcher{jobs: jobs, files: files, queue: publisher, now: time.Now}
}

// Submit runs the validation sequence fail-fast (first violation wins),
// then performs exactly two side effects in order: one durable write and
// one queue publish. Validation failures produce no side effects. A
// publish failure is NOT rolled back: the job stays queued with no
// message behind it and the error surfaces as INTERNAL.
func (d *Dispatcher) Submit(ctx context.Context, ws *models.WorkspaceContext, req SubmitRequest) (*models.Job, error) {
	if !models.KnownJobType(req.JobType) {
		return nil, apperr.BadRequest("unknown job type %q", req.JobType)
	}
	if len(req.FileIDs) == 0 {
		return nil, apperr.BadRequest("at least one file id is required")
	}
	if len(req.FileIDs) > maxInputFiles {
		return nil, apperr.BadRequest("at most %d file ids are allowed", maxInputFiles)
	}
	for _, id := range req.FileIDs {
		if len(strings.TrimSpace(id)) < minFileIDLength {
			return nil, apperr.BadRequest("invalid file id %q", id)
		}
	}

	// Per-type input arity: contract review compares up to two
	// documents, everything else takes exactly one.
	if req.JobType == models.JobTypeContractReview {
		if len(req.FileIDs) > maxContractFiles {
			return nil, apperr.TooManyFiles("contract_review accepts at most %d files", maxContractFiles)
		}
	} else if len(req.FileIDs) != 1 {
		return nil, apperr.InvalidFileCount("%s requires exactly one file", req.JobType)
	}

	// All inputs must be present and uploaded before any side effect;
	// there is no partial job creation.
	for _, fileID := range req.FileIDs {
		f, err := d.files.Get(ctx, ws.TeamID, fileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.FileNotFound(fileID)
			}
			return nil, apperr.Internal(fmt.Errorf("lookup file %s: %w", fileID, err))
		}
		if f.Status != models.FileStatusUploaded {
			return nil, apperr.FileNotUploaded(fileID)
		}
	}

	jobID, err := newJobID()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = models.DefaultJobTitle(req.JobType)
	}

	job := &models.Job{
		JobID:        jobID,
		TeamID:       ws.TeamID,
		Type:         req.JobType,
		Status:       models.JobStatusQueued,
		Title:        title,
		CreatedBy:    ws.MemberName,
		CreatedAt:    d.now().UTC(),
		InputFileIDs: req.FileIDs,
		Params:       req.Params,
		Artifacts:    make([]models.Artifact, 0),
	}
	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := d.queue.Publish(ctx, queue.Message{TeamID: ws.TeamID, JobID: jobID}); err != nil {
		// Orphaned job: persisted but never dispatched. Operators
		// reconcile out of band; there is no automatic sweeper.
		log.Printf("enqueue failed for job %s (team %s), record left queued: %v", jobID, ws.TeamID, err)
		return nil, apperr.Internal(fmt.Errorf("enqueue job %s: %w", jobID, err))
	}
	return job, nil
}

// newJobID returns 16 hex characters from crypto/rand. No uniqueness
// check is made against the store; the id space carries the risk.
func newJobID() (string, error) {
	buf := make([]byte, jobIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

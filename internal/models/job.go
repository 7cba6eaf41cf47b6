package models

import "time"

// Job types recognized by the dispatcher.
const (
	JobTypeExitProjection    = "exit_projection"
	JobTypeDiagnosisAnalysis = "diagnosis_analysis"
	JobTypePDFEvidence       = "pdf_evidence"
	JobTypePDFParse          = "pdf_parse"
	JobTypeContractReview    = "contract_review"
)

// Job lifecycle statuses. A job is created queued and only the worker
// fleet moves it forward.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// Job is a unit of asynchronous analysis work submitted against one or
// more uploaded files. Addressed by (team_id, job_id).
type Job struct {
	JobID        string            `json:"job_id"`
	TeamID       string            `json:"team_id"`
	Type         string            `json:"type"`
	Status       string            `json:"status"`
	Title        string            `json:"title"`
	CreatedBy    string            `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	InputFileIDs []string          `json:"input_file_ids"`
	Params       map[string]string `json:"params,omitempty"`
	Artifacts    []Artifact        `json:"artifacts"`
}

// Artifact references a worker-produced object in external object
// storage. Immutable once appended to a job.
type Artifact struct {
	ArtifactID  string `json:"artifact_id"`
	Bucket      string `json:"bucket"`
	ObjectKey   string `json:"object_key"`
	ContentType string `json:"content_type"`
}

// KnownJobType reports whether t is one of the recognized job types.
func KnownJobType(t string) bool {
	switch t {
	case JobTypeExitProjection, JobTypeDiagnosisAnalysis, JobTypePDFEvidence, JobTypePDFParse, JobTypeContractReview:
		return true
	default:
		return false
	}
}

// DefaultJobTitle returns the human-readable fallback title for a job type.
func DefaultJobTitle(t string) string {
	switch t {
	case JobTypeExitProjection:
		return "Exit projection"
	case JobTypeDiagnosisAnalysis:
		return "Diagnosis analysis"
	case JobTypePDFEvidence:
		return "PDF evidence extraction"
	case JobTypePDFParse:
		return "PDF parse"
	case JobTypeContractReview:
		return "Contract review"
	default:
		return "Analysis job"
	}
}

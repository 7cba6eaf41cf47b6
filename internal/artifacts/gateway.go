package artifacts

import (
	"context"
	"database/sql"
	"errors"

	"casedesk/internal/apperr"
	"casedesk/internal/models"
	"casedesk/internal/storage"
)

// Gateway issues short-lived retrieval URLs for artifacts referenced by
// a job in the caller's team. Jobs from other teams are indistinguishable
// from absent ones.
type Gateway struct {
	jobs   *storage.JobStore
	signer URLSigner
}

// NewGateway constructs the artifact access gateway.
func NewGateway(jobs *storage.JobStore, signer URLSigner) *Gateway {
	return &Gateway{jobs: jobs, signer: signer}
}

// ArtifactURL loads the job scoped to the caller's team and signs a
// retrieval URL for the named artifact.
func (g *Gateway) ArtifactURL(ctx context.Context, ws *models.WorkspaceContext, jobID, artifactID string) (string, error) {
	job, err := g.jobs.Get(ctx, ws.TeamID, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("job %s not found", jobID)
		}
		return "", apperr.Internal(err)
	}
	for _, a := range job.Artifacts {
		if a.ArtifactID == artifactID {
			url, err := g.signer.PresignGet(ctx, a.Bucket, a.ObjectKey, a.ContentType)
			if err != nil {
				return "", apperr.Internal(err)
			}
			return url, nil
		}
	}
	return "", apperr.NotFound("artifact %s not found", artifactID)
}

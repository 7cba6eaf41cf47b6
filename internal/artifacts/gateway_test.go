package artifacts

import (
	"context"
	"testing"
	"time"

	"casedesk/internal/apperr"
	"casedesk/internal/config"
	"casedesk/internal/models"
	"casedesk/internal/storage"
)

type stubSigner struct{}

func (stubSigner) PresignGet(_ context.Context, bucket, key, _ string) (string, error) {
	return "https://signed.example.com/" + bucket + "/" + key, nil
}

func (stubSigner) PresignPut(_ context.Context, bucket, key, _ string) (string, error) {
	return "https://signed.example.com/put/" + bucket + "/" + key, nil
}

func newGatewayFixture(t *testing.T) (*Gateway, *storage.JobStore) {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	jobs := storage.NewJobStore(db)
	return NewGateway(jobs, stubSigner{}), jobs
}

func seedJobWithArtifact(t *testing.T, jobs *storage.JobStore, teamID, jobID string) {
	t.Helper()
	ctx := context.Background()
	err := jobs.Create(ctx, &models.Job{
		JobID:        jobID,
		TeamID:       teamID,
		Type:         models.JobTypePDFParse,
		Status:       models.JobStatusDone,
		Title:        "PDF parse",
		CreatedBy:    "alice",
		CreatedAt:    time.Now().UTC(),
		InputFileIDs: []string{"file-0001"},
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	err = jobs.AddArtifact(ctx, teamID, jobID, models.Artifact{
		ArtifactID:  "report",
		Bucket:      "casedesk-artifacts",
		ObjectKey:   teamID + "/" + jobID + "/report.pdf",
		ContentType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
}

func TestArtifactURLSignsOwnTeamArtifact(t *testing.T) {
	gw, jobs := newGatewayFixture(t)
	seedJobWithArtifact(t, jobs, "team-a", "abcdef0123456789")

	ws := &models.WorkspaceContext{TeamID: "team-a", MemberName: "alice"}
	url, err := gw.ArtifactURL(context.Background(), ws, "abcdef0123456789", "report")
	if err != nil {
		t.Fatalf("ArtifactURL error: %v", err)
	}
	want := "https://signed.example.com/casedesk-artifacts/team-a/abcdef0123456789/report.pdf"
	if url != want {
		t.Fatalf("url %q, want %q", url, want)
	}
}

func TestArtifactURLForeignTeamIsNotFound(t *testing.T) {
	gw, jobs := newGatewayFixture(t)
	seedJobWithArtifact(t, jobs, "team-b", "abcdef0123456789")

	// The pair is valid for team-b; team-a must see nothing.
	ws := &models.WorkspaceContext{TeamID: "team-a", MemberName: "alice"}
	_, err := gw.ArtifactURL(context.Background(), ws, "abcdef0123456789", "report")
	if code := apperr.CodeOf(err); code != apperr.CodeNotFound {
		t.Fatalf("code %s, want %s (err: %v)", code, apperr.CodeNotFound, err)
	}
}

func TestArtifactURLUnknownArtifactIsNotFound(t *testing.T) {
	gw, jobs := newGatewayFixture(t)
	seedJobWithArtifact(t, jobs, "team-a", "abcdef0123456789")

	ws := &models.WorkspaceContext{TeamID: "team-a", MemberName: "alice"}
	_, err := gw.ArtifactURL(context.Background(), ws, "abcdef0123456789", "transcript")
	if code := apperr.CodeOf(err); code != apperr.CodeNotFound {
		t.Fatalf("code %s, want %s (err: %v)", code, apperr.CodeNotFound, err)
	}
}

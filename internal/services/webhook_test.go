package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
)

const gitHubPushBody = `{
  "ref": "refs/heads/main",
  "repository": {"full_name": "devpulse/api"},
  "commits": [
    {
      "id": "abc123",
      "message": "Add webhook ingest",
      "timestamp": "2026-03-02T10:00:00Z",
      "author": {"name": "Alice", "email": "alice@example.com"},
      "added": ["webhook.go"],
      "modified": ["routes.go"]
    },
    {
      "id": "def456",
      "message": "Drive-by commit",
      "timestamp": "2026-03-02T11:00:00Z",
      "author": {"name": "Stranger", "email": "nobody@example.com"}
    }
  ]
}`

func newWebhookTestService() (*WebhookService, *store.Stores, *recordingQueue) {
	stores := store.NewMemoryStores()
	store.SeedUser(stores, models.User{
		ID:       1,
		Username: "alice",
		GitName:  "Alice",
		GitEmail: "alice@example.com",
		IsActive: true,
	})
	queue := &recordingQueue{}
	return NewWebhookService(stores, queue), stores, queue
}

func TestHandleGitHubPush(t *testing.T) {
	svc, stores, _ := newWebhookTestService()

	result, err := svc.HandleGitHubPush(context.Background(), []byte(gitHubPushBody))
	if err != nil {
		t.Fatalf("HandleGitHubPush failed: %v", err)
	}

	if result.Stored != 1 {
		t.Errorf("Stored = %d, expected 1", result.Stored)
	}
	if result.UnknownAuthors != 1 {
		t.Errorf("UnknownAuthors = %d, expected 1 for the unattributable commit", result.UnknownAuthors)
	}

	commit, err := stores.Commits.GetByHash(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("stored commit not found: %v", err)
	}
	if commit.UserID != 1 {
		t.Errorf("commit attributed to user %d, expected 1", commit.UserID)
	}
	if commit.Branch != "main" {
		t.Errorf("branch = %q, expected the stripped %q", commit.Branch, "main")
	}
	if commit.Repository != "devpulse/api" {
		t.Errorf("repository = %q", commit.Repository)
	}
	if commit.FilesChanged != 2 {
		t.Errorf("files changed = %d, expected 2", commit.FilesChanged)
	}
}

func TestHandleGitHubPushIsIdempotent(t *testing.T) {
	svc, _, _ := newWebhookTestService()

	if _, err := svc.HandleGitHubPush(context.Background(), []byte(gitHubPushBody)); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	result, err := svc.HandleGitHubPush(context.Background(), []byte(gitHubPushBody))
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if result.Stored != 0 {
		t.Errorf("redelivery stored %d commits, expected 0", result.Stored)
	}
	if result.Skipped != 1 {
		t.Errorf("redelivery skipped %d, expected 1", result.Skipped)
	}
}

func TestHandleGitLabPush(t *testing.T) {
	svc, stores, _ := newWebhookTestService()

	body := `{
  "ref": "refs/heads/develop",
  "project": {"path_with_namespace": "team/devpulse"},
  "commits": [
    {
      "id": "fff999",
      "message": "Tune scheduler",
      "timestamp": "2026-03-02T09:00:00Z",
      "author": {"name": "Alice", "email": "alice@example.com"},
      "modified": ["scheduler.go"]
    }
  ]
}`

	result, err := svc.HandleGitLabPush(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("HandleGitLabPush failed: %v", err)
	}
	if result.Stored != 1 {
		t.Errorf("Stored = %d, expected 1", result.Stored)
	}

	commit, err := stores.Commits.GetByHash(context.Background(), "fff999")
	if err != nil {
		t.Fatalf("stored commit not found: %v", err)
	}
	if commit.Repository != "team/devpulse" {
		t.Errorf("repository = %q", commit.Repository)
	}
	if commit.Branch != "develop" {
		t.Errorf("branch = %q", commit.Branch)
	}
}

func TestHandleGitHubPushQueuesReanalysis(t *testing.T) {
	svc, _, queue := newWebhookTestService()

	body := fmt.Sprintf(`{
  "ref": "refs/heads/main",
  "repository": {"full_name": "devpulse/api"},
  "commits": [
    {
      "id": "old001",
      "message": "Late-arriving backfill",
      "timestamp": "2020-05-04T10:00:00Z",
      "author": {"name": "Alice", "email": "alice@example.com"}
    },
    {
      "id": "new001",
      "message": "Fresh commit",
      "timestamp": %q,
      "author": {"name": "Alice", "email": "alice@example.com"}
    }
  ]
}`, time.Now().UTC().Format(time.RFC3339))

	if _, err := svc.HandleGitHubPush(context.Background(), []byte(body)); err != nil {
		t.Fatalf("HandleGitHubPush failed: %v", err)
	}

	if len(queue.tasks) != 1 {
		t.Fatalf("queued %d tasks, expected 1 for the past day only", len(queue.tasks))
	}
	task := queue.tasks[0]
	if task.UserID != 1 || task.Date != "2020-05-04" || !task.Force {
		t.Errorf("queued task = %+v, expected forced re-analysis of 2020-05-04 for user 1", task)
	}

	// Redelivery skips every commit, so nothing new is queued.
	if _, err := svc.HandleGitHubPush(context.Background(), []byte(body)); err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if len(queue.tasks) != 1 {
		t.Errorf("redelivery queued %d extra tasks, expected 0", len(queue.tasks)-1)
	}
}

func TestHandleGitHubPushBadPayload(t *testing.T) {
	svc, _, _ := newWebhookTestService()
	if _, err := svc.HandleGitHubPush(context.Background(), []byte("not json")); err == nil {
		t.Error("malformed payload must error")
	}
}

func TestVerifyGitLabSignature(t *testing.T) {
	if !VerifyGitLabSignature("secret-token", "secret-token") {
		t.Error("matching token must verify")
	}
	if VerifyGitLabSignature("secret-token", "wrong") {
		t.Error("mismatched token must not verify")
	}
}

func TestVerifyGitHubSignature(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"ref": "refs/heads/main"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !VerifyGitHubSignature(secret, body, valid) {
		t.Error("correctly signed payload must verify")
	}
	if VerifyGitHubSignature(secret, body, "sha256=deadbeef") {
		t.Error("wrong digest must not verify")
	}
	if VerifyGitHubSignature(secret, body, "sha1=something") {
		t.Error("non-sha256 prefix must not verify")
	}
	if VerifyGitHubSignature("other-secret", body, valid) {
		t.Error("signature from a different secret must not verify")
	}
}

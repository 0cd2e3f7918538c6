package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/logger"
)

// WebhookService ingests push events from GitHub and GitLab into the commit
// table. Unknown authors and duplicate hashes are skipped, never errors: a
// webhook retry must stay idempotent.
//
// When a push lands commits on a day the nightly batch has already passed,
// a forced re-analysis is queued for each affected author-day.
type WebhookService struct {
	stores *store.Stores
	queue  TaskQueue
}

func NewWebhookService(stores *store.Stores, queue TaskQueue) *WebhookService {
	return &WebhookService{stores: stores, queue: queue}
}

type WebhookResult struct {
	Stored         int `json:"stored"`
	Skipped        int `json:"skipped"`
	UnknownAuthors int `json:"unknown_authors"`
}

// gitHubPushEvent is the subset of the push payload we consume.
type gitHubPushEvent struct {
	Ref        string `json:"ref"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Commits []struct {
		ID        string    `json:"id"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
		Author    struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"author"`
		Added    []string `json:"added"`
		Removed  []string `json:"removed"`
		Modified []string `json:"modified"`
	} `json:"commits"`
}

type gitLabPushEvent struct {
	Ref     string `json:"ref"`
	Project struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	Commits []struct {
		ID        string    `json:"id"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
		Author    struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"author"`
		Added    []string `json:"added"`
		Removed  []string `json:"removed"`
		Modified []string `json:"modified"`
	} `json:"commits"`
}

func (s *WebhookService) HandleGitHubPush(ctx context.Context, body []byte) (*WebhookResult, error) {
	var event gitHubPushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}

	result := &WebhookResult{}
	branch := strings.TrimPrefix(event.Ref, "refs/heads/")
	touched := make(map[authorDay]struct{})

	for _, c := range event.Commits {
		files := make([]string, 0, len(c.Added)+len(c.Modified)+len(c.Removed))
		files = append(files, c.Added...)
		files = append(files, c.Modified...)
		files = append(files, c.Removed...)

		s.storeCommit(ctx, result, touched, &models.Commit{
			CommitHash:   c.ID,
			Repository:   event.Repository.FullName,
			Branch:       branch,
			Message:      c.Message,
			ChangedFiles: strings.Join(files, ","),
			FilesChanged: len(files),
			CommittedAt:  c.Timestamp,
		}, c.Author.Name, c.Author.Email)
	}
	s.queueReanalysis(touched)

	logger.Infof("[Webhook] GitHub push for %s: stored=%d, skipped=%d, unknown_authors=%d",
		event.Repository.FullName, result.Stored, result.Skipped, result.UnknownAuthors)
	return result, nil
}

func (s *WebhookService) HandleGitLabPush(ctx context.Context, body []byte) (*WebhookResult, error) {
	var event gitLabPushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}

	result := &WebhookResult{}
	branch := strings.TrimPrefix(event.Ref, "refs/heads/")
	touched := make(map[authorDay]struct{})

	for _, c := range event.Commits {
		files := make([]string, 0, len(c.Added)+len(c.Modified)+len(c.Removed))
		files = append(files, c.Added...)
		files = append(files, c.Modified...)
		files = append(files, c.Removed...)

		s.storeCommit(ctx, result, touched, &models.Commit{
			CommitHash:   c.ID,
			Repository:   event.Project.PathWithNamespace,
			Branch:       branch,
			Message:      c.Message,
			ChangedFiles: strings.Join(files, ","),
			FilesChanged: len(files),
			CommittedAt:  c.Timestamp,
		}, c.Author.Name, c.Author.Email)
	}
	s.queueReanalysis(touched)

	logger.Infof("[Webhook] GitLab push for %s: stored=%d, skipped=%d, unknown_authors=%d",
		event.Project.PathWithNamespace, result.Stored, result.Skipped, result.UnknownAuthors)
	return result, nil
}

type authorDay struct {
	userID uint
	date   string
}

func (s *WebhookService) storeCommit(ctx context.Context, result *WebhookResult, touched map[authorDay]struct{}, commit *models.Commit, authorName, authorEmail string) {
	if _, err := s.stores.Commits.GetByHash(ctx, commit.CommitHash); err == nil {
		result.Skipped++
		return
	}

	user, err := s.stores.Users.GetByGitIdentity(ctx, authorName, authorEmail)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warnf("[Webhook] Author lookup failed for %s: %v", authorEmail, err)
		}
		result.UnknownAuthors++
		return
	}

	commit.UserID = user.ID
	if err := s.stores.Commits.Create(ctx, commit); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			result.Skipped++
			return
		}
		logger.Warnf("[Webhook] Failed to store commit %s: %v", shortHash(commit.CommitHash), err)
		return
	}
	result.Stored++
	touched[authorDay{userID: user.ID, date: store.Day(commit.CommittedAt).Format("2006-01-02")}] = struct{}{}
}

// queueReanalysis forces re-analysis for author-days already behind the
// nightly batch. Today's commits are left for tonight's run.
func (s *WebhookService) queueReanalysis(touched map[authorDay]struct{}) {
	if s.queue == nil {
		return
	}
	today := store.Day(time.Now()).Format("2006-01-02")
	for ad := range touched {
		if ad.date >= today {
			continue
		}
		if err := s.queue.Enqueue(&AnalysisTask{UserID: ad.userID, Date: ad.date, Force: true}); err != nil {
			logger.Warnf("[Webhook] Failed to queue re-analysis for user %d on %s: %v", ad.userID, ad.date, err)
		}
	}
}

// VerifyGitLabSignature verifies GitLab webhook token
func VerifyGitLabSignature(secret, token string) bool {
	return secret == token
}

// VerifyGitHubSignature verifies GitHub webhook HMAC signature
func VerifyGitHubSignature(secret string, body []byte, signature string) bool {
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.TrimPrefix(signature, "sha256=")), []byte(expectedMAC))
}

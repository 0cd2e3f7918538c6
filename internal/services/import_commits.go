package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devpulse/devpulse/internal/models"
	"github.com/devpulse/devpulse/internal/store"
	"github.com/devpulse/devpulse/pkg/logger"
)

// ImportCommitsService backfills commit history from a hosting platform's
// REST API. Commits are attributed to users by git name/email; commits by
// unknown authors are counted but not stored.
type ImportCommitsService struct {
	stores     *store.Stores
	httpClient *http.Client
}

func NewImportCommitsService(stores *store.Stores) *ImportCommitsService {
	return &ImportCommitsService{
		stores:     stores,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type ImportCommitsRequest struct {
	Platform    string `json:"platform" binding:"required"` // github or gitlab
	RepoURL     string `json:"repo_url" binding:"required"`
	AccessToken string `json:"access_token" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"` // Format: 2006-01-02
	EndDate     string `json:"end_date" binding:"required"`   // Format: 2006-01-02
}

type ImportCommitsResponse struct {
	Imported       int      `json:"imported"`
	Skipped        int      `json:"skipped"`
	UnknownAuthors int      `json:"unknown_authors"`
	Errors         []string `json:"errors,omitempty"`
}

type gitLabCommit struct {
	ID            string    `json:"id"`
	ShortID       string    `json:"short_id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	AuthorName    string    `json:"author_name"`
	AuthorEmail   string    `json:"author_email"`
	CommittedDate time.Time `json:"committed_date"`
	Stats         *struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
		Total     int `json:"total"`
	} `json:"stats"`
}

type gitHubCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Stats *struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
		Total     int `json:"total"`
	} `json:"stats"`
	Files []struct {
		Filename string `json:"filename"`
	} `json:"files"`
}

func (s *ImportCommitsService) ImportCommits(ctx context.Context, req *ImportCommitsRequest) (*ImportCommitsResponse, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date format: %w", err)
	}

	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date format: %w", err)
	}

	// Include the entire end day.
	endDate = endDate.Add(24*time.Hour - time.Second)

	info, err := parseRepoInfo(req.RepoURL)
	if err != nil {
		return nil, err
	}

	logger.Infof("[ImportCommits] Importing %s/%s (%s) from %s to %s",
		info.owner, info.repo, req.Platform, req.StartDate, req.EndDate)

	switch req.Platform {
	case "gitlab":
		return s.importGitLabCommits(ctx, info, req.AccessToken, startDate, endDate)
	case "github":
		return s.importGitHubCommits(ctx, info, req.AccessToken, startDate, endDate)
	default:
		return nil, fmt.Errorf("unsupported platform: %s", req.Platform)
	}
}

func (s *ImportCommitsService) importGitLabCommits(ctx context.Context, info *repoInfo, token string, startDate, endDate time.Time) (*ImportCommitsResponse, error) {
	encodedPath := url.PathEscape(info.projectPath)
	apiURL := fmt.Sprintf("%s/api/v4/projects/%s/repository/commits?since=%s&until=%s&with_stats=true&per_page=100",
		info.baseURL, encodedPath, startDate.Format(time.RFC3339), endDate.Format(time.RFC3339))

	response := &ImportCommitsResponse{}
	page := 1

	for {
		pageURL := fmt.Sprintf("%s&page=%d", apiURL, page)
		req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("PRIVATE-TOKEN", token)

		var commits []gitLabCommit
		if err := s.doJSON(req, &commits, "GitLab"); err != nil {
			return nil, err
		}

		if len(commits) == 0 {
			break
		}

		for _, commit := range commits {
			additions, deletions := 0, 0
			if commit.Stats != nil {
				additions = commit.Stats.Additions
				deletions = commit.Stats.Deletions
			}
			s.storeCommit(ctx, response, &models.Commit{
				CommitHash:  commit.ID,
				Repository:  info.owner + "/" + info.repo,
				Message:     commit.Message,
				Additions:   additions,
				Deletions:   deletions,
				CommittedAt: commit.CommittedDate,
			}, commit.AuthorName, commit.AuthorEmail, commit.ShortID)
		}

		page++
	}

	logger.Infof("[ImportCommits] GitLab import complete: imported=%d, skipped=%d, unknown_authors=%d",
		response.Imported, response.Skipped, response.UnknownAuthors)
	return response, nil
}

func (s *ImportCommitsService) importGitHubCommits(ctx context.Context, info *repoInfo, token string, startDate, endDate time.Time) (*ImportCommitsResponse, error) {
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/commits?since=%s&until=%s&per_page=100",
		info.owner, info.repo, startDate.Format(time.RFC3339), endDate.Format(time.RFC3339))

	response := &ImportCommitsResponse{}
	page := 1

	for {
		pageURL := fmt.Sprintf("%s&page=%d", apiURL, page)
		req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("Authorization", "token "+token)

		var commits []gitHubCommit
		if err := s.doJSON(req, &commits, "GitHub"); err != nil {
			return nil, err
		}

		if len(commits) == 0 {
			break
		}

		for _, commit := range commits {
			additions, deletions, files := s.fetchGitHubCommitStats(ctx, info, token, commit.SHA)
			s.storeCommit(ctx, response, &models.Commit{
				CommitHash:   commit.SHA,
				Repository:   info.owner + "/" + info.repo,
				Message:      commit.Commit.Message,
				ChangedFiles: strings.Join(files, ","),
				Additions:    additions,
				Deletions:    deletions,
				FilesChanged: len(files),
				CommittedAt:  commit.Commit.Author.Date,
			}, commit.Commit.Author.Name, commit.Commit.Author.Email, shortHash(commit.SHA))
		}

		page++
	}

	logger.Infof("[ImportCommits] GitHub import complete: imported=%d, skipped=%d, unknown_authors=%d",
		response.Imported, response.Skipped, response.UnknownAuthors)
	return response, nil
}

// fetchGitHubCommitStats fetches per-commit stats which the list endpoint
// omits. Missing stats degrade to zeros instead of failing the import.
func (s *ImportCommitsService) fetchGitHubCommitStats(ctx context.Context, info *repoInfo, token, sha string) (additions, deletions int, files []string) {
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/commits/%s", info.owner, info.repo, sha)

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+token)

	var commit gitHubCommit
	if err := s.doJSON(req, &commit, "GitHub"); err != nil {
		return
	}

	if commit.Stats != nil {
		additions = commit.Stats.Additions
		deletions = commit.Stats.Deletions
	}
	for _, f := range commit.Files {
		files = append(files, f.Filename)
	}
	return
}

func (s *ImportCommitsService) doJSON(req *http.Request, out any, platform string) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s API returned %d: %s", platform, resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *ImportCommitsService) storeCommit(ctx context.Context, response *ImportCommitsResponse, commit *models.Commit, authorName, authorEmail, short string) {
	if _, err := s.stores.Commits.GetByHash(ctx, commit.CommitHash); err == nil {
		response.Skipped++
		return
	}

	user, err := s.stores.Users.GetByGitIdentity(ctx, authorName, authorEmail)
	if errors.Is(err, store.ErrNotFound) {
		response.UnknownAuthors++
		return
	}
	if err != nil {
		response.Errors = append(response.Errors, fmt.Sprintf("Author lookup failed for %s: %v", short, err))
		return
	}

	commit.UserID = user.ID
	if err := s.stores.Commits.Create(ctx, commit); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			response.Skipped++
			return
		}
		response.Errors = append(response.Errors, fmt.Sprintf("Failed to store commit %s: %v", short, err))
		return
	}
	response.Imported++
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

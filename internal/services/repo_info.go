package services

import (
	"fmt"
	"strings"
)

type repoInfo struct {
	owner       string
	repo        string
	projectPath string
	baseURL     string
}

// parseRepoInfo splits a repository URL into host and path parts. Works for
// both cloud and self-hosted instances, so the GitLab API base comes from
// the URL itself.
func parseRepoInfo(repoURL string) (*repoInfo, error) {
	urlStr := strings.TrimSuffix(repoURL, ".git")

	protocolIdx := strings.Index(urlStr, "://")
	if protocolIdx == -1 {
		return nil, fmt.Errorf("invalid repository URL (no protocol): %s", repoURL)
	}

	protocol := urlStr[:protocolIdx+3]
	rest := urlStr[protocolIdx+3:]

	slashIdx := strings.Index(rest, "/")
	if slashIdx == -1 {
		return nil, fmt.Errorf("invalid repository URL (no path): %s", repoURL)
	}

	host := rest[:slashIdx]
	projectPath := rest[slashIdx+1:]

	if projectPath == "" {
		return nil, fmt.Errorf("invalid repository URL (empty path): %s", repoURL)
	}

	pathParts := strings.Split(projectPath, "/")
	if len(pathParts) < 2 {
		return nil, fmt.Errorf("invalid repository URL (need at least owner/repo): %s", repoURL)
	}

	return &repoInfo{
		owner:       pathParts[len(pathParts)-2],
		repo:        pathParts[len(pathParts)-1],
		projectPath: projectPath,
		baseURL:     protocol + host,
	}, nil
}

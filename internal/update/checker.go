package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubChecker checks for updates via GitHub API
type GitHubChecker struct {
	appName        string
	currentVersion string
	githubToken    string // Optional, for rate limiting
	owner          string // Repository owner
	repo           string // Repository name
	client         *http.Client
	baseURL        string // Base URL for GitHub API (for testing or mirrors)
	platform       Platform
}

// GitHubRelease represents a GitHub release response
type GitHubRelease struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	HTMLURL    string `json:"html_url"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// NewGitHubChecker creates a new GitHub checker for the release assets of appName.
func NewGitHubChecker(appName, currentVersion, owner, repo string) *GitHubChecker {
	return &GitHubChecker{
		appName:        appName,
		currentVersion: currentVersion,
		owner:          owner,
		repo:           repo,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  defaultGitHubAPI,
		platform: Detect(),
	}
}

// WithToken sets an optional GitHub token for authentication
func (c *GitHubChecker) WithToken(token string) *GitHubChecker {
	c.githubToken = token
	return c
}

// WithBaseURL points the checker at a GitHub-compatible API root.
func (c *GitHubChecker) WithBaseURL(baseURL string) *GitHubChecker {
	if baseURL != "" {
		c.baseURL = baseURL
	}
	return c
}

// WithPlatform overrides the detected platform used for asset selection.
func (c *GitHubChecker) WithPlatform(p Platform) *GitHubChecker {
	c.platform = p
	return c
}

// CheckForUpdate checks if an update is available
func (c *GitHubChecker) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	release, err := c.getLatestRelease(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest release: %w", err)
	}

	available, err := IsNewer(c.currentVersion, release.TagName)
	if err != nil {
		return nil, err
	}

	assetURL, checksumURL := c.findAssetURLs(release)

	info := &UpdateInfo{
		Available:      available,
		CurrentVersion: NormalizeVersion(c.currentVersion),
		LatestVersion:  NormalizeVersion(release.TagName),
		ReleaseURL:     release.HTMLURL,
		ReleaseNotes:   release.Body,
		AssetURL:       assetURL,
		ChecksumURL:    checksumURL,
	}

	return info, nil
}

// getLatestRelease fetches the latest release from GitHub API
func (c *GitHubChecker) getLatestRelease(ctx context.Context) (*GitHubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.appName+"-updater")
	if c.githubToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.githubToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &release, nil
}

// findAssetURLs finds the binary and checksum URLs for the configured platform
func (c *GitHubChecker) findAssetURLs(release *GitHubRelease) (string, string) {
	assetName := c.platform.AssetName(c.appName)
	var assetURL, checksumURL string

	for _, asset := range release.Assets {
		if asset.Name == assetName {
			assetURL = asset.BrowserDownloadURL
		}
		if asset.Name == "checksums.txt" {
			checksumURL = asset.BrowserDownloadURL
		}
	}

	return assetURL, checksumURL
}

package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	. "aktis-collector-monday/internal/common"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const githubAPIVersion = "2022-11-28"

// ContentsWrite is the confirmation of a contents API write
type ContentsWrite struct {
	HTMLURL string
	SHA     string
}

// GitHubContentsClient reads and writes single files through the GitHub
// contents API
type GitHubContentsClient struct {
	client *resty.Client
	owner  string
	repo   string
	branch string
}

// NewGitHubContentsClient builds a client for the repository in config.Repo
// ("owner/name")
func NewGitHubContentsClient(config *GitHubConfig) (*GitHubContentsClient, error) {
	owner, repo, ok := strings.Cut(config.Repo, "/")
	if !ok || owner == "" || repo == "" {
		return nil, NewConfigurationError("invalid_github_repo",
			fmt.Sprintf("github repo must be \"owner/name\", got %q", config.Repo))
	}

	baseURL := strings.TrimRight(config.APIURL, "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60*time.Second).
		SetAuthScheme("Bearer").
		SetAuthToken(config.Token).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", githubAPIVersion).
		SetHeader("User-Agent", UserAgent())

	return &GitHubContentsClient{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: config.Branch,
	}, nil
}

// Repository returns "owner/name"
func (gc *GitHubContentsClient) Repository() string {
	return gc.owner + "/" + gc.repo
}

func (gc *GitHubContentsClient) contentsPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("/repos/%s/%s/contents/%s",
		url.PathEscape(gc.owner), url.PathEscape(gc.repo), strings.Join(segments, "/"))
}

// GetSHA returns the blob sha of the file at path. found is false when the
// file does not exist, which is not an error.
func (gc *GitHubContentsClient) GetSHA(ctx context.Context, path string) (sha string, found bool, err error) {
	request := gc.client.R().SetContext(ctx)
	if gc.branch != "" {
		request.SetQueryParam("ref", gc.branch)
	}

	resp, err := request.Get(gc.contentsPath(path))
	if err != nil {
		return "", false, NewTransportError("github_unreachable", "failed to read current file version").
			WithContext("path", path).
			WithCause(err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return "", false, nil
	case resp.StatusCode() < 200 || resp.StatusCode() > 299:
		return "", false, NewUpstreamError("github_read_status", "github contents read failed").
			WithStatus(resp.StatusCode()).
			WithContext("path", path).
			WithDetails(truncateBody(resp.String()))
	}

	sha = gjson.GetBytes(resp.Body(), "sha").String()
	if sha == "" {
		return "", false, NewUpstreamError("github_missing_sha", "github contents response has no sha").
			WithContext("path", path).
			WithDetails(truncateBody(resp.String()))
	}
	return sha, true, nil
}

// PutContents creates or replaces the file at path. sha must be the current
// blob sha when the file exists and empty when it does not.
func (gc *GitHubContentsClient) PutContents(ctx context.Context, path string, content []byte, message, sha string) (*ContentsWrite, error) {
	body := map[string]interface{}{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if sha != "" {
		body["sha"] = sha
	}
	if gc.branch != "" {
		body["branch"] = gc.branch
	}

	resp, err := gc.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Put(gc.contentsPath(path))
	if err != nil {
		return nil, NewTransportError("github_unreachable", "failed to write file").
			WithContext("path", path).
			WithCause(err)
	}

	status := resp.StatusCode()
	if isStaleWrite(status, resp.Body()) {
		return nil, NewConflictError("stale_version_token", "remote file changed since its version was read").
			WithStatus(status).
			WithContext("path", path).
			WithContext("sha", sha).
			WithDetails(truncateBody(resp.String()))
	}
	if status < 200 || status > 299 {
		return nil, NewUpstreamError("github_write_status", "github contents write failed").
			WithStatus(status).
			WithContext("path", path).
			WithDetails(truncateBody(resp.String()))
	}

	result := gjson.ParseBytes(resp.Body())
	return &ContentsWrite{
		HTMLURL: result.Get("content.html_url").String(),
		SHA:     result.Get("content.sha").String(),
	}, nil
}

// isStaleWrite reports whether a write was rejected because the supplied
// sha no longer matches: 409, or 422 with a message about the sha
func isStaleWrite(status int, body []byte) bool {
	switch status {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		message := strings.ToLower(gjson.GetBytes(body, "message").String())
		return strings.Contains(message, "sha")
	}
	return false
}

package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultEndpoint is the release feed describing the latest
	// published version.
	DefaultEndpoint = "https://chatterinohomies.com/api/latest-release"

	checkTimeout = time.Minute
)

// Query checks the release feed for the latest published release.
// Implementations perform no shared-state mutation; the coordinator
// interprets the result.
type Query interface {
	Check(ctx context.Context, channel string) (*ReleaseInfo, error)
}

// ReleaseQuery is the HTTP implementation of Query against the fixed
// release endpoint.
type ReleaseQuery struct {
	endpoint string
	platform Platform
	client   *http.Client
}

// NewReleaseQuery creates a query against the given endpoint. The
// platform decides which download URLs the response must carry.
func NewReleaseQuery(endpoint string, platform Platform) *ReleaseQuery {
	return &ReleaseQuery{
		endpoint: endpoint,
		platform: platform,
		client:   &http.Client{Timeout: checkTimeout},
	}
}

// releasePayload mirrors the feed's JSON body. Pointer fields distinguish
// "absent" from "empty"; a non-string tag_name fails decoding outright.
type releasePayload struct {
	TagName  *string `json:"tag_name"`
	Download struct {
		Installer struct {
			URL *string `json:"url"`
		} `json:"installer"`
		Portable struct {
			URL *string `json:"url"`
		} `json:"portable"`
	} `json:"download"`
}

// Check issues one GET to the release feed with the selected channel and
// classifies the outcome. Transport-level failures (including timeout)
// are NETWORK_FAILURE; a response that lacks the tag or a URL the
// current platform requires is MALFORMED_RESPONSE.
func (q *ReleaseQuery) Check(ctx context.Context, channel string) (*ReleaseInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint, nil)
	if err != nil {
		return nil, newError(ErrCodeNetworkFailure, "failed to build release request", err)
	}
	req.URL.RawQuery = url.Values{"channel": {channel}}.Encode()

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, newError(ErrCodeNetworkFailure, "release feed unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(ErrCodeNetworkFailure,
			fmt.Sprintf("release feed returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrCodeNetworkFailure, "failed to read release response", err)
	}

	var payload releasePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError(ErrCodeMalformedResponse, "release response is not valid JSON", err)
	}
	if payload.TagName == nil {
		return nil, newError(ErrCodeMalformedResponse, "release response missing tag_name", nil)
	}

	info := &ReleaseInfo{TagName: *payload.TagName}
	if payload.Download.Installer.URL != nil {
		info.InstallerURL = *payload.Download.Installer.URL
	}
	if payload.Download.Portable.URL != nil {
		info.PortableURL = *payload.Download.Portable.URL
	}

	if q.platform.RequiresInstallerURL() && info.InstallerURL == "" {
		return nil, newError(ErrCodeMalformedResponse, "release response missing installer url", nil)
	}
	if q.platform.RequiresPortableURL() && info.PortableURL == "" {
		return nil, newError(ErrCodeMalformedResponse, "release response missing portable url", nil)
	}

	return info, nil
}

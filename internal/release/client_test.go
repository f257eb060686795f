package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var testRepo = Repository{Owner: "k4kratik", Name: "smart-rds-viewer"}

// newReleaseAPI serves a fixed body for one tag and 404 for any other.
func newReleaseAPI(t *testing.T, tag string, status int, body string) *httptest.Server {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/repos/{owner}/{repo}/releases/tags/{tag}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "owner") != testRepo.Owner || chi.URLParam(r, "tag") != tag {
			http.NotFound(w, r)
			return
		}

		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return ts
}

// TestFetchAssets_ReturnsAssets decodes a well-formed release.
func TestFetchAssets_ReturnsAssets(t *testing.T) {
	t.Parallel()

	ts := newReleaseAPI(t, "v1.2.3", http.StatusOK, `{
		"tag_name": "v1.2.3",
		"assets": [
			{"name": "smart-rds-viewer-macos", "browser_download_url": "https://example.com/a", "size": 12},
			{"name": "smart-rds-viewer-linux-amd64", "browser_download_url": "https://example.com/b"}
		]
	}`)

	client := NewClient(ts.URL+"/", WithToken("secret"))

	assets, err := client.FetchAssets(context.Background(), testRepo, "1.2.3")
	require.NoError(t, err)
	require.Equal(t, []Asset{
		{Name: "smart-rds-viewer-macos", DownloadURL: "https://example.com/a", Size: 12},
		{Name: "smart-rds-viewer-linux-amd64", DownloadURL: "https://example.com/b"},
	}, assets)
}

// TestFetchAssets_Failures maps API answers to the error taxonomy.
func TestFetchAssets_Failures(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"server error":    {http.StatusInternalServerError, `{}`, ErrBadHTTPStatus},
		"empty assets":    {http.StatusOK, `{"assets": []}`, ErrNoAssets},
		"missing assets":  {http.StatusOK, `{"tag_name": "v1.2.3"}`, ErrMalformedRelease},
		"not json":        {http.StatusOK, `<html>`, ErrMalformedRelease},
		"asset sans url":  {http.StatusOK, `{"assets": [{"name": "x"}]}`, ErrMalformedRelease},
		"wrong url type":  {http.StatusOK, `{"assets": [{"name": "x", "browser_download_url": 1}]}`, ErrMalformedRelease},
		"empty assetname": {http.StatusOK, `{"assets": [{"name": "", "browser_download_url": "u"}]}`, ErrMalformedRelease},
	}

	for name, tc := range cases {
		tc := tc

		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ts := newReleaseAPI(t, "v1.2.3", tc.status, tc.body)

			_, err := NewClient(ts.URL, WithToken("secret")).FetchAssets(context.Background(), testRepo, "1.2.3")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

// TestFetchAssets_UnknownTag reports a 404 as a bad status.
func TestFetchAssets_UnknownTag(t *testing.T) {
	t.Parallel()

	ts := newReleaseAPI(t, "v1.2.3", http.StatusOK, `{"assets": []}`)

	_, err := NewClient(ts.URL, WithToken("secret")).FetchAssets(context.Background(), testRepo, "9.9.9")
	require.ErrorIs(t, err, ErrBadHTTPStatus)
	require.Contains(t, err.Error(), "/releases/tags/v9.9.9")
}

// TestTagURL joins the API base with the tag endpoint.
func TestTagURL(t *testing.T) {
	t.Parallel()

	endpoint, err := NewClient("https://api.github.com").TagURL(testRepo, "0.0.18")
	require.NoError(t, err)
	require.Equal(t, "https://api.github.com/repos/k4kratik/smart-rds-viewer/releases/tags/v0.0.18", endpoint)
}

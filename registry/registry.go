package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	manifestV2 "github.com/distribution/distribution/manifest/schema2"
	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context/ctxhttp"
)

const contentDigestHeader = "Docker-Content-Digest"

type DockerRegistry struct {
	URL    string
	Client *http.Client
	Log    logrus.FieldLogger
	token  string
}

// NewRegistry validates cfg.Server and returns a client rooted at its /v2/ base.
func NewRegistry(cfg Config) (*DockerRegistry, error) {
	base, err := ParseServer(cfg.Server)
	if err != nil {
		return nil, err
	}
	return &DockerRegistry{
		URL: base,
		Client: &http.Client{
			Transport: http.DefaultTransport,
		},
		Log:   logrus.StandardLogger(),
		token: cfg.AuthToken(),
	}, nil
}

func (r *DockerRegistry) url(suffix string) string {
	return fmt.Sprintf("%s%s", r.URL, suffix)
}

func (r *DockerRegistry) urlf(format string, a ...interface{}) string {
	return r.url(fmt.Sprintf(format, a...))
}

// request issues method against url and returns the response with its body
// already read. 2xx is success; DELETE also accepts 404.
func (r *DockerRegistry) request(ctx context.Context, method string, url string) (*http.Response, []byte, error) {
	r.Log.WithFields(logrus.Fields{"method": method, "url": url}).Debug("registry: sending request")
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Accept", manifestV2.MediaTypeManifest)
	if r.token != "" {
		req.Header.Set("Authorization", "Basic "+r.token)
	}
	resp, err := ctxhttp.Do(ctx, r.Client, req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: reading body: %w", method, url, err)
	}

	if !accepted(method, resp.StatusCode) {
		return nil, nil, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode}
	}
	return resp, data, nil
}

func accepted(method string, code int) bool {
	if code >= 200 && code <= 299 {
		return true
	}
	return method == http.MethodDelete && code == http.StatusNotFound
}

func (r *DockerRegistry) Catalog(ctx context.Context) ([]string, error) {
	_, data, err := r.request(ctx, http.MethodGet, r.url("_catalog"))
	if err != nil {
		return nil, err
	}
	return stringList(data, "repositories")
}

func (r *DockerRegistry) Tags(ctx context.Context, repo string) ([]string, error) {
	_, data, err := r.request(ctx, http.MethodGet, r.urlf("%s/tags/list", repo))
	if err != nil {
		return nil, err
	}
	return stringList(data, "tags")
}

func (r *DockerRegistry) Manifest(ctx context.Context, repo string, ref string) (*Manifest, error) {
	url := r.urlf("%s/manifests/%s", repo, ref)
	r.Log.Debugf("registry: fetching manifest from %s", url)
	resp, data, err := r.request(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	dgst := resp.Header.Get(contentDigestHeader)
	if dgst == "" {
		return nil, fmt.Errorf("manifest %s:%s: %w", repo, ref, ErrMissingDigest)
	}
	return &Manifest{Digest: digest.Digest(dgst), Raw: data}, nil
}

func (r *DockerRegistry) DeleteManifest(ctx context.Context, repo string, dgst digest.Digest) error {
	url := r.urlf("%s/manifests/%s", repo, dgst)
	r.Log.Debugf("registry: deleting manifest %s", url)
	_, _, err := r.request(ctx, http.MethodDelete, url)
	return err
}

// stringList decodes field of a JSON object as a list of strings. An absent
// or mistyped field is an empty list; only a body that is not an object fails.
func stringList(data []byte, field string) ([]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decoding %q response: %w", field, err)
	}

	raw, ok := obj[field]
	if !ok {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil || list == nil {
		return []string{}, nil
	}
	return list, nil
}

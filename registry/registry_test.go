package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, cfg Config, handler http.HandlerFunc) *DockerRegistry {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.Server = srv.URL
	r, err := NewRegistry(cfg)
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)
	r.Log = log
	return r
}

func TestParseServer(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "http://129.1.1.1:5000", want: "http://129.1.1.1:5000/v2/"},
		{raw: "https://registry.example.com/", want: "https://registry.example.com/v2/"},
		{raw: "129.1.1.1:5000", wantErr: true},
		{raw: "ftp://129.1.1.1", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseServer(tt.raw)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidServer, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestURLWithPercentInBase(t *testing.T) {
	r := &DockerRegistry{URL: "http://host/a%20b/v2/"}
	assert.Equal(t, "http://host/a%20b/v2/app/tags/list", r.urlf("%s/tags/list", "app"))
	assert.Equal(t, "http://host/a%20b/v2/app/manifests/sha256:aaa", r.urlf("%s/manifests/%s", "app", "sha256:aaa"))
}

func TestAuthToken(t *testing.T) {
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("admin:secret")),
		Config{Username: "admin", Password: "secret"}.AuthToken())
	assert.Empty(t, Config{Username: "admin"}.AuthToken())
	assert.Empty(t, Config{Password: "secret"}.AuthToken())
}

func TestRequestHeaders(t *testing.T) {
	var accept, auth []string
	handler := func(w http.ResponseWriter, r *http.Request) {
		accept = append(accept, r.Header.Get("Accept"))
		auth = append(auth, r.Header.Get("Authorization"))
		w.Write([]byte(`{"repositories":[]}`))
	}

	r := newTestRegistry(t, Config{Username: "admin", Password: "secret"}, handler)
	_, err := r.Catalog(context.Background())
	require.NoError(t, err)

	anon := newTestRegistry(t, Config{Username: "admin"}, handler)
	_, err = anon.Catalog(context.Background())
	require.NoError(t, err)

	want := "application/vnd.docker.distribution.manifest.v2+json"
	assert.Equal(t, []string{want, want}, accept)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")), auth[0])
	assert.Empty(t, auth[1])
}

func TestCatalog(t *testing.T) {
	tests := []struct {
		body string
		want []string
	}{
		{body: `{"repositories":["app","db"]}`, want: []string{"app", "db"}},
		{body: `{"repositories":[]}`, want: []string{}},
		{body: `{"repositories":null}`, want: []string{}},
		{body: `{}`, want: []string{}},
	}
	for _, tt := range tests {
		r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "/v2/_catalog", req.URL.Path)
			w.Write([]byte(tt.body))
		})
		got, err := r.Catalog(context.Background())
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}
}

func TestTagsShapeErrorsAreEmpty(t *testing.T) {
	for _, body := range []string{`{"name":"app","tags":null}`, `{"name":"app","tags":"none"}`, `{"name":"app"}`} {
		r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "/v2/app/tags/list", req.URL.Path)
			w.Write([]byte(body))
		})
		tags, err := r.Tags(context.Background(), "app")
		require.NoError(t, err, body)
		assert.Empty(t, tags, body)
	}
}

func TestTagsMalformedBody(t *testing.T) {
	r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`<html>`))
	})
	_, err := r.Tags(context.Background(), "app")
	assert.Error(t, err)
}

func TestStatusErrors(t *testing.T) {
	r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := r.Catalog(context.Background())
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.MethodGet, serr.Method)
	assert.Equal(t, r.URL+"_catalog", serr.URL)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.Contains(t, err.Error(), "401")
}

func TestManifest(t *testing.T) {
	r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/v2/app/manifests/1.0", req.URL.Path)
		w.Header().Set("Docker-Content-Digest", "sha256:aaa")
		w.Write([]byte(`{"schemaVersion":1,"fsLayers":[{"blobSum":"sha256:l1"},{"blobSum":"sha256:l2"},{"blobSum":"sha256:l1"}]}`))
	})

	m, err := r.Manifest(context.Background(), "app", "1.0")
	require.NoError(t, err)
	assert.Equal(t, digest.Digest("sha256:aaa"), m.Digest)
	assert.Equal(t, []digest.Digest{"sha256:l1", "sha256:l2", "sha256:l1"}, m.Layers())
}

func TestManifestMissingDigest(t *testing.T) {
	r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := r.Manifest(context.Background(), "app", "1.0")
	assert.ErrorIs(t, err, ErrMissingDigest)
}

func TestManifestLayersWithoutFSLayers(t *testing.T) {
	for _, body := range []string{`{}`, `{"schemaVersion":2,"layers":[{"digest":"sha256:x"}]}`, `not json`} {
		m := &Manifest{Digest: "sha256:aaa", Raw: []byte(body)}
		assert.Empty(t, m.Layers(), body)
	}
}

func TestDeleteManifest(t *testing.T) {
	tests := []struct {
		status  int
		wantErr bool
	}{
		{status: http.StatusAccepted},
		{status: http.StatusNotFound},
		{status: http.StatusMethodNotAllowed, wantErr: true},
		{status: http.StatusInternalServerError, wantErr: true},
	}
	for _, tt := range tests {
		var method, path string
		r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
			method, path = req.Method, req.URL.Path
			w.WriteHeader(tt.status)
		})

		err := r.DeleteManifest(context.Background(), "app", "sha256:aaa")
		assert.Equal(t, http.MethodDelete, method)
		assert.Equal(t, "/v2/app/manifests/sha256:aaa", path)
		if tt.wantErr {
			var serr *StatusError
			require.True(t, errors.As(err, &serr), "status %d", tt.status)
			assert.Equal(t, http.MethodDelete, serr.Method)
			assert.Equal(t, tt.status, serr.StatusCode)
			continue
		}
		assert.NoError(t, err, "status %d", tt.status)
	}
}

func TestGetNotFoundIsError(t *testing.T) {
	r := newTestRegistry(t, Config{}, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := r.Manifest(context.Background(), "app", "1.0")
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
}

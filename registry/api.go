package registry

import (
	"context"

	"github.com/opencontainers/go-digest"
)

type Registry interface {
	Catalog(ctx context.Context) ([]string, error)
	Tags(ctx context.Context, repo string) ([]string, error)
	Manifest(ctx context.Context, repo string, ref string) (*Manifest, error)
	DeleteManifest(ctx context.Context, repo string, dgst digest.Digest) error
}

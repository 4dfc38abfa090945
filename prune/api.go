package prune

import "context"

type ImagePrune interface {
	List(ctx context.Context) error
	Delete(ctx context.Context, repo, tag string) (bool, error)
}

type Options struct {
	// Concurrency bounds how many repositories are resolved at once while
	// listing. Values below 1 mean sequential.
	Concurrency int
	// Exclude names repositories skipped while listing.
	Exclude []string
	// DryRun prints the digests a delete would remove without deleting them.
	DryRun bool
}

package prune

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/luojun96/iprune/registry"
	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
)

const dryRunNotice = "dry run, nothing was deleted"

const gcReminder = "deleted references only; run the registry garbage collector (registry garbage-collect <config.yml>) to reclaim storage"

// Delete removes repo:tag and every layer its manifest references. It
// reports false when the tag does not exist in repo, including when the
// registry does not know repo at all.
//
// Layers are deleted through the manifests endpoint, as the registries this
// tool was written against expect. A failed manifest delete stops the
// cascade; failed layer deletes are logged and the cascade goes on. Nothing
// is rolled back.
func (p *Pruner) Delete(ctx context.Context, repo, tag string) (bool, error) {
	tags, err := p.reg.Tags(ctx, repo)
	var serr *registry.StatusError
	if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
		tags = nil
	} else if err != nil {
		return false, fmt.Errorf("failed to list tags of %s: %w", repo, err)
	}

	found := false
	for _, t := range tags {
		if t == tag {
			found = true
			break
		}
	}
	if !found {
		fmt.Fprintf(p.out, "could not find %s:%s\n", repo, tag)
		return false, nil
	}

	image, err := p.resolve(ctx, repo, tag)
	if err != nil {
		return false, err
	}

	deleted := make(map[digest.Digest]struct{})
	if err := p.deleteDigest(ctx, deleted, repo, image.Digest); err != nil {
		return false, fmt.Errorf("failed to delete manifest of %s: %w", image, err)
	}

	for _, layer := range image.Manifest.Layers() {
		if err := p.deleteDigest(ctx, deleted, repo, layer); err != nil {
			p.log.WithFields(logrus.Fields{"repository": repo, "digest": layer}).Errorf("failed to delete layer: %v", err)
		}
	}

	if p.opts.DryRun {
		fmt.Fprintln(p.out, dryRunNotice)
		return true, nil
	}
	fmt.Fprintln(p.out, gcReminder)
	return true, nil
}

// deleteDigest issues at most one delete per digest for the set it is given.
func (p *Pruner) deleteDigest(ctx context.Context, deleted map[digest.Digest]struct{}, repo string, dgst digest.Digest) error {
	if _, ok := deleted[dgst]; ok {
		return nil
	}
	deleted[dgst] = struct{}{}
	fmt.Fprintln(p.out, dgst)

	if p.opts.DryRun {
		p.log.WithFields(logrus.Fields{"repository": repo, "digest": dgst}).Info("dry run, not deleting")
		return nil
	}
	return p.reg.DeleteManifest(ctx, repo, dgst)
}

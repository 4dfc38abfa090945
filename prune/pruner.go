package prune

import (
	"context"
	"fmt"
	"io"

	"github.com/luojun96/iprune/registry"
	"github.com/sirupsen/logrus"
)

type Pruner struct {
	reg     registry.Registry
	out     io.Writer
	log     logrus.FieldLogger
	opts    Options
	exclude map[string]struct{}
}

func NewPruner(reg registry.Registry, out io.Writer, log logrus.FieldLogger, opts Options) *Pruner {
	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, repo := range opts.Exclude {
		exclude[repo] = struct{}{}
	}
	return &Pruner{
		reg:     reg,
		out:     out,
		log:     log,
		opts:    opts,
		exclude: exclude,
	}
}

// Images resolves every tag of repo to its current manifest. Tags whose
// manifest cannot be fetched are logged and left out.
func (p *Pruner) Images(ctx context.Context, repo string) ([]*Image, error) {
	tags, err := p.reg.Tags(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", repo, err)
	}

	images := make([]*Image, 0, len(tags))
	for _, tag := range tags {
		image, err := p.resolve(ctx, repo, tag)
		if err != nil {
			p.log.WithFields(logrus.Fields{"repository": repo, "tag": tag}).Error(err)
			continue
		}
		images = append(images, image)
	}
	return images, nil
}

func (p *Pruner) resolve(ctx context.Context, repo, tag string) (*Image, error) {
	m, err := p.reg.Manifest(ctx, repo, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest of %s:%s: %w", repo, tag, err)
	}
	return &Image{Repository: repo, Tag: tag, Digest: m.Digest, Manifest: m}, nil
}

package prune

import (
	"context"
	"fmt"

	"github.com/luojun96/iprune/pool"
	"github.com/sirupsen/logrus"
)

const emptyNotice = "empty repository"

type task[T any] struct {
	t    T
	p    *Pruner
	exec func(ctx context.Context, t T, p *Pruner) error
	err  error
}

func (t *task[T]) Execute(ctx context.Context) {
	t.err = t.exec(ctx, t.t, t.p)
}

type listing struct {
	repo   string
	images []*Image
}

// List prints one row per resolvable image of every repository in the
// catalog, or the empty notice when there is none. Only a catalog failure
// is returned; repository failures are logged and skipped.
func (p *Pruner) List(ctx context.Context) error {
	repos, err := p.reg.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	var handler = func(ctx context.Context, l *listing, p *Pruner) error {
		var err error
		l.images, err = p.Images(ctx, l.repo)
		return err
	}

	wp := pool.NewWorkPool(p.opts.Concurrency)
	repoTasks := make([]*task[*listing], 0, len(repos))
	for _, repo := range repos {
		if _, ok := p.exclude[repo]; ok {
			p.log.WithField("repository", repo).Debug("skipping excluded repository")
			continue
		}
		t := &task[*listing]{
			t:    &listing{repo: repo},
			p:    p,
			exec: handler,
		}
		repoTasks = append(repoTasks, t)
		wp.AddTask(t)
	}
	wp.Run(ctx)

	rows := 0
	for _, t := range repoTasks {
		if t.err != nil {
			p.log.WithField("repository", t.t.repo).Error(t.err)
			continue
		}
		for _, image := range t.t.images {
			p.printRow(image)
			rows++
		}
	}

	if rows == 0 {
		fmt.Fprintln(p.out, emptyNotice)
	}
	p.log.WithFields(logrus.Fields{"repositories": len(repoTasks), "rows": rows}).Debug("listing done")
	return nil
}

func (p *Pruner) printRow(image *Image) {
	fmt.Fprintf(p.out, "%-30s%-20s%s\n", image.Repository, image.Tag, image.Digest)
}

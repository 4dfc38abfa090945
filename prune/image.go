package prune

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luojun96/iprune/registry"
	"github.com/opencontainers/go-digest"
)

var ErrInvalidImage = errors.New("image must be in name:tag format")

type Image struct {
	Repository string
	Tag        string
	Digest     digest.Digest
	Manifest   *registry.Manifest
}

func (i *Image) String() string {
	return i.Repository + ":" + i.Tag
}

// ParseImage splits a name:tag token on its first colon. Both sides must be
// non-empty.
func ParseImage(token string) (repo, tag string, err error) {
	if len(token) < 3 || !strings.Contains(token, ":") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidImage, token)
	}
	repo, tag, _ = strings.Cut(token, ":")
	if repo == "" || tag == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidImage, token)
	}
	return repo, tag, nil
}

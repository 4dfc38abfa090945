package registry

import (
	"encoding/json"

	"github.com/distribution/distribution/manifest/schema1"
	"github.com/opencontainers/go-digest"
)

// Manifest is a manifest as returned by the registry. Digest comes from the
// Docker-Content-Digest response header and is never computed locally.
type Manifest struct {
	Digest digest.Digest
	Raw    []byte
}

// Layers returns the blobSum of every fsLayers entry of a legacy manifest,
// in document order. Any other body yields no layers.
func (m *Manifest) Layers() []digest.Digest {
	var legacy schema1.Manifest
	if err := json.Unmarshal(m.Raw, &legacy); err != nil {
		return nil
	}
	layers := make([]digest.Digest, 0, len(legacy.FSLayers))
	for _, l := range legacy.FSLayers {
		layers = append(layers, l.BlobSum)
	}
	return layers
}

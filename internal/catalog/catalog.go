// Package catalog maps caller-facing POI type names ("grocery_store",
// "pharmacy") to the OSM tag filters the feature providers query with. The
// catalog ships embedded so the binary needs no runtime data files.
package catalog

import (
	_ "embed"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed poi_types.yaml
var raw []byte

// Catalog is an immutable name-to-tag-filter lookup.
type Catalog struct {
	types map[string]map[string]string
	names []string
}

// Load parses a YAML catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc struct {
		Types map[string]map[string]string `yaml:"types"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}
	if len(doc.Types) == 0 {
		return nil, eris.New("catalog: no poi types defined")
	}
	for name, tags := range doc.Types {
		if len(tags) == 0 {
			return nil, eris.Errorf("catalog: poi type %q has no tags", name)
		}
	}

	names := make([]string, 0, len(doc.Types))
	for name := range doc.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Catalog{types: doc.Types, names: names}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. The embedded document is validated at
// first use; a malformed one is a build defect and panics.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(raw)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Names returns all known POI type names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Resolve returns the tag filter for a POI type name. Lookup is
// case-insensitive and treats spaces and hyphens as underscores.
func (c *Catalog) Resolve(name string) (map[string]string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	tags, ok := c.types[key]
	if !ok {
		return nil, eris.Errorf("catalog: unknown poi type %q", name)
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out, nil
}

package worlddata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalog is the loaded set of worlds, keyed by world name.
type Catalog struct {
	worlds map[string]World
}

// NewCatalog builds a catalog from pre-parsed worlds. Mostly useful in tests.
func NewCatalog(worlds ...World) *Catalog {
	c := &Catalog{worlds: make(map[string]World, len(worlds))}
	for _, w := range worlds {
		c.worlds[w.Name] = w
	}
	return c
}

// LoadDir reads every *.json file in dir as one world. The file stem is the
// world name unless the document carries its own "name" field.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read world dir: %w", err)
	}
	c := &Catalog{worlds: make(map[string]World)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read world file %s: %w", e.Name(), err)
		}
		var w World
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("parse world file %s: %w", e.Name(), err)
		}
		if w.Name == "" {
			w.Name = strings.TrimSuffix(e.Name(), ".json")
		}
		c.worlds[w.Name] = w
	}
	if len(c.worlds) == 0 {
		return nil, fmt.Errorf("no world files in %s", dir)
	}
	return c, nil
}

// World looks up a world by name.
func (c *Catalog) World(name string) (World, bool) {
	w, ok := c.worlds[name]
	return w, ok
}

// Names lists the loaded world names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.worlds))
	for name := range c.worlds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Default returns an arbitrary-but-stable world when the caller has no
// preference, preferring one literally named "default".
func (c *Catalog) Default() (World, bool) {
	if w, ok := c.worlds["default"]; ok {
		return w, true
	}
	names := c.Names()
	if len(names) == 0 {
		return World{}, false
	}
	return c.worlds[names[0]], true
}

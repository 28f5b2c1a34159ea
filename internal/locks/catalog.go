// Package locks defines the configured lock families and the per-path
// counter state the checker mutates as it classifies call sites.
package locks

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Family pairs an acquire function with its release function under a short
// name. Immutable after catalog construction.
type Family struct {
	Name    string `toml:"name"`
	Acquire string `toml:"acquire"`
	Release string `toml:"release"`
}

// Catalog is an ordered set of lock families. The order fixes the index of
// each family's counter in a State.
type Catalog struct {
	families []Family
}

// DefaultCatalog returns the built-in kernel lock families. Try-acquire
// variants (mtx_enter_try and friends) are deliberately absent: the state
// model has no notion of conditional acquisition.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Family{
		{Name: "spl", Acquire: "splraise", Release: "spllower"},
		{Name: "mpl", Acquire: "__mp_lock", Release: "__mp_unlock"},
		{Name: "mtx", Acquire: "mtx_enter", Release: "mtx_leave"},
	})
	if err != nil {
		panic(err) // built-in table is statically valid
	}
	return c
}

// NewCatalog validates the family list and builds a catalog. No name may be
// shared between any family name, acquire, or release function; overlapping
// names would let one call site update several counters.
func NewCatalog(families []Family) (*Catalog, error) {
	seen := make(map[string]string, len(families)*3)
	claim := func(name, role string) error {
		if name == "" {
			return fmt.Errorf("lock family %s is empty", role)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("name %q used as both %s and %s", name, prev, role)
		}
		seen[name] = role
		return nil
	}
	for _, f := range families {
		if err := claim(f.Name, "family name"); err != nil {
			return nil, err
		}
		if err := claim(f.Acquire, "acquire of "+f.Name); err != nil {
			return nil, err
		}
		if err := claim(f.Release, "release of "+f.Name); err != nil {
			return nil, err
		}
	}
	return &Catalog{families: append([]Family(nil), families...)}, nil
}

// LoadCatalog reads a TOML catalog file of the form:
//
//	[[family]]
//	name = "mtx"
//	acquire = "mtx_enter"
//	release = "mtx_leave"
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var cfg struct {
		Family []Family `toml:"family"`
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(cfg.Family) == 0 {
		return nil, fmt.Errorf("catalog %s defines no [[family]] entries", path)
	}
	c, err := NewCatalog(cfg.Family)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Families returns the families in counter-index order.
func (c *Catalog) Families() []Family {
	return append([]Family(nil), c.families...)
}

// Len returns the number of families.
func (c *Catalog) Len() int { return len(c.families) }

// Filter restricts the catalog to the named families, preserving order.
// Unknown names are an error.
func (c *Catalog) Filter(names []string) (*Catalog, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		want[n] = true
	}
	var kept []Family
	for _, f := range c.families {
		if want[f.Name] {
			kept = append(kept, f)
			delete(want, f.Name)
		}
	}
	if len(want) > 0 {
		var missing []string
		for n := range want {
			missing = append(missing, n)
		}
		return nil, fmt.Errorf("unknown lock families: %s", strings.Join(missing, ", "))
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("lock family filter selects nothing")
	}
	return &Catalog{families: kept}, nil
}

// Relevant reports whether name is the acquire or release function of any
// family. This drives the checker's subtree pruning.
func (c *Catalog) Relevant(name string) bool {
	for _, f := range c.families {
		if name == f.Acquire || name == f.Release {
			return true
		}
	}
	return false
}

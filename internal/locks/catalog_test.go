package locks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewCatalogRejectsOverlap(t *testing.T) {
	tests := []struct {
		name     string
		families []Family
	}{
		{"duplicate family name", []Family{
			{Name: "a", Acquire: "a1", Release: "a2"},
			{Name: "a", Acquire: "b1", Release: "b2"},
		}},
		{"acquire shared with release", []Family{
			{Name: "a", Acquire: "lock", Release: "unlock"},
			{Name: "b", Acquire: "grab", Release: "lock"},
		}},
		{"acquire equals own release", []Family{
			{Name: "a", Acquire: "toggle", Release: "toggle"},
		}},
		{"empty acquire", []Family{
			{Name: "a", Acquire: "", Release: "unlock"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.families); err == nil {
				t.Fatal("expected a configuration error")
			}
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	cat := DefaultCatalog()
	if cat.Len() != 3 {
		t.Fatalf("default catalog has %d families, want 3", cat.Len())
	}
	for _, name := range []string{"splraise", "spllower", "__mp_lock", "__mp_unlock", "mtx_enter", "mtx_leave"} {
		if !cat.Relevant(name) {
			t.Errorf("Relevant(%q) = false", name)
		}
	}
	if cat.Relevant("mtx_enter_try") {
		t.Error("try-acquire variant must not be in the default catalog")
	}
}

func TestFilter(t *testing.T) {
	cat := DefaultCatalog()

	sub, err := cat.Filter([]string{"mtx", "spl"})
	if err != nil {
		t.Fatal(err)
	}
	// catalog order is preserved, not filter order
	fams := sub.Families()
	if len(fams) != 2 || fams[0].Name != "spl" || fams[1].Name != "mtx" {
		t.Fatalf("filtered families = %v", fams)
	}
	if sub.Relevant("__mp_lock") {
		t.Error("filtered-out family must not be relevant")
	}

	if _, err := cat.Filter([]string{"bogus"}); err == nil {
		t.Error("unknown family name must be an error")
	}
	if _, err := cat.Filter([]string{""}); err == nil {
		t.Error("empty selection must be an error")
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks.toml")
	config := `
[[family]]
name = "rw"
acquire = "rw_enter_write"
release = "rw_exit_write"

[[family]]
name = "mtx"
acquire = "mtx_enter"
release = "mtx_leave"
`
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 2 || !cat.Relevant("rw_enter_write") {
		t.Fatalf("loaded catalog = %v", cat.Families())
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.toml")
	os.WriteFile(empty, []byte("# nothing here\n"), 0o644)
	if _, err := LoadCatalog(empty); err == nil {
		t.Error("catalog without families must fail")
	}

	bad := filepath.Join(dir, "bad.toml")
	os.WriteFile(bad, []byte("[[family]]\nname = \"a\"\nacquire = \"x\"\nrelease = \"x\"\n"), 0o644)
	if _, err := LoadCatalog(bad); err == nil {
		t.Error("overlapping names must fail validation")
	}

	if _, err := LoadCatalog(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file must fail")
	}
}

package checker

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/chrissicool/lbc/internal/cparse"
	"github.com/chrissicool/lbc/internal/locks"
)

// TestCorpus runs the checker over the C snippets in testdata/corpus.txtar.
// Each <name>.c file pairs with a <name>.want file holding one line per
// expected finding, "kind function state", or the single word "none".
func TestCorpus(t *testing.T) {
	ar, err := txtar.ParseFile("testdata/corpus.txtar")
	if err != nil {
		t.Fatal(err)
	}

	files := make(map[string][]byte)
	for _, f := range ar.Files {
		files[f.Name] = f.Data
	}

	var names []string
	for name := range files {
		if strings.HasSuffix(name, ".c") {
			names = append(names, strings.TrimSuffix(name, ".c"))
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		t.Fatal("corpus archive holds no .c files")
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			src := files[name+".c"]
			wantRaw, ok := files[name+".want"]
			if !ok {
				t.Fatalf("no %s.want in archive", name)
			}

			tree, err := cparse.ParseFile(name+".c", src)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			diags := CheckFile(tree, locks.DefaultCatalog())

			var got []string
			for _, d := range diags {
				got = append(got, fmt.Sprintf("%s %s %s", d.Kind, d.Function, d.State))
			}
			sort.Strings(got)

			var want []string
			for _, line := range strings.Split(strings.TrimSpace(string(wantRaw)), "\n") {
				line = strings.TrimSpace(line)
				if line != "" && line != "none" {
					want = append(want, line)
				}
			}
			sort.Strings(want)

			if strings.Join(got, "\n") != strings.Join(want, "\n") {
				t.Errorf("findings mismatch\ngot:\n%s\nwant:\n%s",
					strings.Join(got, "\n"), strings.Join(want, "\n"))
			}
		})
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLabels(t *testing.T) {
	name := filepath.Join(t.TempDir(), "prog.labels")
	err := os.WriteFile(name, []byte(`
# counter ring
21 count
0  loop
20 value
15 done
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	ls, err := parseLabels(name)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, l := range *ls {
		got = append(got, l.String())
	}
	want := []string{"loop (0)", "done (15)", "value (20)", "count (21)"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d is %s, want %s", i, got[i], want[i])
		}
	}

	for _, c := range []struct {
		arg  string
		addr uint64
		name string
		ok   bool
	}{
		{"count", 21, "count", true},
		{"20", 20, "value", true},
		{"7", 7, "7", true},
		{"nope", 0, "", false},
		{"-1", 0, "", false},
	} {
		l, ok := ls.resolve(c.arg)
		if ok != c.ok || l.addr != c.addr || l.name != c.name {
			t.Errorf("resolve(%q) = %v, %v; want %d %q %v", c.arg, l, ok, c.addr, c.name, c.ok)
		}
	}
	if g := ls.withNamePrefix("do"); len(g) != 1 || g[0].name != "done" {
		t.Errorf("withNamePrefix(do) = %v", g)
	}
	if g := ls.forAddr(15); len(g) != 1 || g[0].name != "done" {
		t.Errorf("forAddr(15) = %v", g)
	}

	var none *labels
	if l, ok := none.resolve("3"); !ok || l.addr != 3 {
		t.Errorf("resolve with no labels = %v, %v", l, ok)
	}
}

func TestParseLabelsError(t *testing.T) {
	dir := t.TempDir()
	for _, content := range []string{"12\n", "x loop\n", "1 a b\n"} {
		name := filepath.Join(dir, "bad.labels")
		if err := os.WriteFile(name, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := parseLabels(name); err == nil {
			t.Errorf("parseLabels(%q) succeeded", content)
		}
	}
}

package export

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestTextFileAppends(t *testing.T) {
	f := TextFile{Dir: t.TempDir() + "/out", Name: "data.txt"}
	if err := f.Export("# first", []Pair{{X: 1, Y: 3}, {X: 2, Y: 5}}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := f.Export("# second", []Pair{{X: -0.5, Y: 0.25}}); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "\n# first\n1 3\n2 5\n# second\n-0.5 0.25"
	if string(b) != want {
		t.Fatalf("expected %q, got %q", want, string(b))
	}
}

func TestChartRenders(t *testing.T) {
	c := Chart{Dir: t.TempDir(), Name: "chart.html"}
	if err := c.Export("# header", []Pair{{X: 1, Y: 3}, {X: 2, Y: 5}}); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(c.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "<html") {
		t.Fatalf("chart file does not contain html")
	}
}

type failing struct{ err error }

func (f failing) Export(string, []Pair) error {
	return f.err
}

type recording struct{ calls *int }

func (r recording) Export(string, []Pair) error {
	*r.calls++
	return nil
}

func TestMultiContinuesAfterError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	m := Multi{failing{err: boom}, recording{calls: &calls}}
	if err := m.Export("# h", nil); !errors.Is(err, boom) {
		t.Fatalf("expected the failure to be returned, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the second exporter to run once, ran %d times", calls)
	}
	if err := (Multi{recording{calls: &calls}}).Export("# h", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

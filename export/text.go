package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TextFile appends data sets to a plain text file. Each data set starts with its header line, and
// every pair follows on its own line as "<x> <y>".
type TextFile struct {
	Dir  string
	Name string
}

// Path ...
func (t TextFile) Path() string {
	return filepath.Join(t.Dir, t.Name)
}

// Export appends the data set to the file, creating the file and its directory if needed.
func (t TextFile) Export(header string, pairs []Pair) error {
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return fmt.Errorf("unable to create export directory: %w", err)
	}
	f, err := os.OpenFile(t.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("unable to open export file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("\n" + header)
	for _, p := range pairs {
		fmt.Fprintf(&b, "\n%v %v", p.X, p.Y)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("unable to write data set: %w", err)
	}
	return f.Close()
}

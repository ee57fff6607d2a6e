package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultSuffix names artifacts built from the whole population.
const DefaultSuffix = "uALL"

// Options controls artifact formatting.
type Options struct {
	Indent bool
}

// Layout resolves artifact paths for one suffix under a directory.
type Layout struct {
	Dir    string
	Suffix string
}

// NewLayout returns the layout for dir, defaulting the suffix.
func NewLayout(dir, suffix string) Layout {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return Layout{Dir: dir, Suffix: suffix}
}

func (l Layout) EdgesPath() string {
	return filepath.Join(l.Dir, "edges_"+l.Suffix+".json")
}

func (l Layout) EdgeUsersPath() string {
	return filepath.Join(l.Dir, "edge_users_"+l.Suffix+".json")
}

func (l Layout) NodeStatsPath() string {
	return filepath.Join(l.Dir, "node_stats_"+l.Suffix+".json")
}

func (l Layout) UserEdgesDir() string {
	return filepath.Join(l.Dir, "user_edges_"+l.Suffix)
}

func (l Layout) UserEdgesPath(userID int64) string {
	return filepath.Join(l.UserEdgesDir(), strconv.FormatInt(userID, 10)+".json")
}

// Encode writes v as JSON, optionally indented.
func Encode(w io.Writer, v any, opts Options) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if opts.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// WriteJSON encodes v into a temporary file next to path and renames it into
// place, so readers never observe a partially written artifact.
func WriteJSON(path string, v any, opts Options) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Encode(tmp, v, opts); err != nil {
		return fmt.Errorf("encode json for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the file at path into v.
func ReadJSON(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

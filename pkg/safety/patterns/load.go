package patterns

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is the YAML representation of a pattern pack file.
type Pack struct {
	// Version of the pack format. Only "1" is understood.
	Version string `yaml:"version"`

	// IncludeBuiltin controls whether the built-in tables are loaded
	// underneath this pack. Default: true
	IncludeBuiltin *bool `yaml:"include_builtin,omitempty"`

	// Disable lists "category/name" identifiers to remove.
	Disable []string `yaml:"disable,omitempty"`

	// Patterns are added after the built-ins. An entry with the same
	// category and name as a built-in replaces it.
	Patterns []Spec `yaml:"patterns"`
}

// ParsePack decodes a pattern pack. Unknown fields are rejected.
func ParsePack(r io.Reader) (*Pack, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Pack
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return &p, nil
		}
		return nil, err
	}
	if p.Version != "" && p.Version != "1" {
		return nil, fmt.Errorf("unsupported pack version %q", p.Version)
	}
	return &p, nil
}

// Load builds a registry from a pack file or a directory of pack files.
// An empty path returns the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}

	files, err := packFiles(path)
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	packs := make([]*Pack, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, NewLoadError(f, err)
		}
		p, err := ParsePack(bytes.NewReader(data))
		if err != nil {
			return nil, NewLoadError(f, err)
		}
		packs = append(packs, p)
	}

	reg, err := FromPacks(packs...)
	if err != nil {
		return nil, NewLoadError(path, err)
	}
	reg.sources = append(reg.sources, files...)
	return reg, nil
}

// FromPacks builds a registry from already parsed packs. The built-in
// tables are included unless a pack sets include_builtin to false.
func FromPacks(packs ...*Pack) (*Registry, error) {
	includeBuiltin := true
	for _, p := range packs {
		if p.IncludeBuiltin != nil && !*p.IncludeBuiltin {
			includeBuiltin = false
		}
	}

	b := NewBuilder()
	if includeBuiltin {
		b.AddBuiltins()
	}
	for _, p := range packs {
		for _, s := range p.Patterns {
			_ = b.Add(s)
		}
	}
	for _, p := range packs {
		_ = b.Disable(p.Disable...)
	}
	return b.Build()
}

// packFiles resolves path to the list of pack files it names.
func packFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if isPackFile(e.Name()) {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .yaml or .yml files in directory")
	}
	sort.Strings(files)
	return files, nil
}

func isPackFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Package manifest loads declarative migrations from TOML files.
//
// Each file describes one migration:
//
//	depends_on = ["0001_create_users"]
//
//	[[operations]]
//	type = "add_field"
//	table = "users"
//	field = { name = "bio", type = "text" }
//
// The migration name defaults to the file name without its extension. Files
// are validated against an embedded JSON Schema before they are decoded.
package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"

	"github.com/lockplane/lockstep/migration"
	"github.com/lockplane/lockstep/operation"
)

// Extension is the file extension of migration files.
const Extension = ".toml"

//go:embed migration.schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Document is the decoded form of a migration file.
type Document struct {
	Name        string          `toml:"name"`
	Description string          `toml:"description"`
	DependsOn   []string        `toml:"depends_on"`
	Atomic      *bool           `toml:"atomic"`
	Operations  []OperationSpec `toml:"operations"`
	Backward    []OperationSpec `toml:"backward"`
}

// ValidationError lists schema violations found in one file.
type ValidationError struct {
	File     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid migration file %s:\n  - %s", e.File, strings.Join(e.Problems, "\n  - "))
}

// Parse decodes and validates one migration document. defaultName is used
// when the document does not set a name.
func Parse(file, defaultName string, data []byte) (*migration.Migration, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}

	if err := validate(file, raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file, err)
	}

	name := doc.Name
	if name == "" {
		name = defaultName
	}

	m := migration.New(name).DependsOn(doc.DependsOn...)
	if doc.Atomic != nil {
		m.Atomic(*doc.Atomic)
	}

	for i, spec := range doc.Operations {
		op, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("%s: operations[%d] (%s): %w", file, i, spec.Type, err)
		}
		m.Operation(op)
	}

	// An explicit empty backward list still makes the migration reversible.
	if _, ok := raw["backward"]; ok {
		ops := make([]operation.Operation, 0, len(doc.Backward))
		for i, spec := range doc.Backward {
			op, err := spec.build()
			if err != nil {
				return nil, fmt.Errorf("%s: backward[%d] (%s): %w", file, i, spec.Type, err)
			}
			ops = append(ops, op)
		}
		m.BackwardOps(ops...)
	}

	return m, nil
}

func validate(file string, raw map[string]any) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("failed to load migration schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", file, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ValidationError{File: file, Problems: problems}
}

// LoadFile reads a single migration file.
func LoadFile(path string) (*migration.Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(path, name, data)
}

// LoadDir registers every migration file in dir, in file name order. Two
// files declaring the same migration name are an error.
func LoadDir(dir string) (*migration.Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	reg := migration.NewRegistry()
	seen := make(map[string]string, len(files))

	for _, file := range files {
		m, err := LoadFile(file)
		if err != nil {
			return nil, err
		}

		if prev, ok := seen[m.Name()]; ok {
			return nil, fmt.Errorf("migration %s is defined in both %s and %s", m.Name(), prev, file)
		}
		seen[m.Name()] = file

		reg.Register(m)
	}

	return reg, nil
}

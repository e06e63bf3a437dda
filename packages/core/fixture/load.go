package fixture

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// LoadError reports a fixture that cannot be read, validated or decoded.
type LoadError struct {
	File    string
	Line    int
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads and validates the fixture at path. Script files are resolved
// relative to the fixture's directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: err.Error(), Err: err}
	}
	return Parse(data, path)
}

// Parse decodes data as the fixture at path.
func Parse(data []byte, path string) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{File: path, Message: err.Error(), Err: err}
	}
	if len(root.Content) == 0 {
		return nil, &LoadError{File: path, Message: "empty document"}
	}

	if err := validate(&root, path); err != nil {
		return nil, err
	}

	f := &File{Path: path}
	if err := root.Decode(f); err != nil {
		return nil, &LoadError{File: path, Message: err.Error(), Err: err}
	}

	seen := make(map[string]int, len(f.Exchanges))
	for _, ex := range f.Exchanges {
		if first, dup := seen[ex.Name]; dup {
			return nil, &LoadError{
				File:    path,
				Line:    ex.Line,
				Message: fmt.Sprintf("duplicate exchange name %q (first defined on line %d)", ex.Name, first),
			}
		}
		seen[ex.Name] = ex.Line

		if err := resolveScripts(ex, filepath.Dir(path), path); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func validate(root *yaml.Node, path string) error {
	var doc any
	if err := root.Decode(&doc); err != nil {
		return &LoadError{File: path, Message: err.Error(), Err: err}
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return &LoadError{File: path, Message: "document is not representable as JSON: " + err.Error(), Err: err}
	}

	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile fixture schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return &LoadError{File: path, Message: "schema validation error: " + err.Error(), Err: err}
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &LoadError{File: path, Message: "schema validation failed: " + strings.Join(problems, "; ")}
}

func resolveScripts(ex *Exchange, dir, path string) error {
	read := func(rel string) (string, error) {
		p := rel
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, rel)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return "", &LoadError{File: path, Line: ex.Line, Message: fmt.Sprintf("exchange %q: cannot read script: %v", ex.Name, err), Err: err}
		}
		return string(data), nil
	}

	if ex.PreRequestFile != "" {
		src, err := read(ex.PreRequestFile)
		if err != nil {
			return err
		}
		ex.PreRequest = src
	}
	if ex.HandlerFile != "" {
		if ex.Response == nil {
			return &LoadError{File: path, Line: ex.Line, Message: fmt.Sprintf("exchange %q: handlerFile needs a recorded response", ex.Name)}
		}
		src, err := read(ex.HandlerFile)
		if err != nil {
			return err
		}
		ex.Handler = src
	}
	if ex.Handler != "" && ex.Response == nil {
		return &LoadError{File: path, Line: ex.Line, Message: fmt.Sprintf("exchange %q: handler needs a recorded response", ex.Name)}
	}
	return nil
}

// IsFixtureFile reports whether path names an exchange fixture.
func IsFixtureFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, ".exchange.yaml") || strings.HasSuffix(base, ".exchange.yml")
}

// FindFiles expands files and directories into fixture paths. Directories
// are walked recursively; explicit file arguments are kept only if they
// look like fixtures.
func FindFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if IsFixtureFile(arg) {
				files = append(files, arg)
			}
			continue
		}

		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && IsFixtureFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

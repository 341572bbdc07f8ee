package definition

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition marks a definition document that cannot be turned into
// a schema.
var ErrInvalidDefinition = errors.New("invalid definition")

// File is the root of a definition document.
type File struct {
	Entities []Entity `json:"entities"`
}

// Entity declares one named object schema.
type Entity struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Fields      []Field      `json:"fields"`
	Refinements []Refinement `json:"refinements"`
}

// Field declares one field rule. Min and Max are interpreted by type: value
// bounds for numbers, lengths for strings, item counts for arrays and dates
// (as strings) for dates.
type Field struct {
	Name            string       `json:"name"`
	Type            string       `json:"type"`
	Optional        bool         `json:"optional"`
	Nullable        bool         `json:"nullable"`
	Default         any          `json:"default"`
	Min             any          `json:"min"`
	Max             any          `json:"max"`
	MinLength       *int         `json:"minLength"`
	MaxLength       *int         `json:"maxLength"`
	Pattern         string       `json:"pattern"`
	Format          string       `json:"format"`
	Trim            bool         `json:"trim"`
	Integer         bool         `json:"integer"`
	Values          []string     `json:"values"`
	Layouts         []string     `json:"layouts"`
	Fields          []Field      `json:"fields"`
	Items           *Field       `json:"items"`
	MinItems        *int         `json:"minItems"`
	MaxItems        *int         `json:"maxItems"`
	Message         string       `json:"message"`
	RequiredMessage string       `json:"requiredMessage"`
	Refinements     []Refinement `json:"refinements"`
}

// Refinement declares a cross-field rule.
//
//	equal:         Field and Other must hold the same value; Other is blamed.
//	required_when: Target is required when When equals one of Values.
//	ordered:       Other must not be below Field (numbers or dates).
type Refinement struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Other   string `json:"other"`
	Target  string `json:"target"`
	When    string `json:"when"`
	Values  []any  `json:"values"`
	Message string `json:"message"`
	Halt    bool   `json:"halt"`
}

// Load reads a definition document, choosing the format by extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a definition document. ext selects JSON for ".json" and YAML
// otherwise. Unknown keys are rejected.
func Parse(data []byte, ext string) (*File, error) {
	var raw any
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse json: %w", ErrInvalidDefinition, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %w", ErrInvalidDefinition, err)
		}
	}

	var f File
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &f,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return &f, nil
}

// Compile turns every entity of f into a schema, keyed by entity name.
func (f *File) Compile() (map[string]schema.ObjectRule, error) {
	out := make(map[string]schema.ObjectRule, len(f.Entities))
	for _, e := range f.Entities {
		if _, dup := out[e.Name]; dup {
			return nil, fmt.Errorf("%w: entity %q declared twice", ErrInvalidDefinition, e.Name)
		}
		rule, err := Compile(e)
		if err != nil {
			return nil, err
		}
		out[e.Name] = rule
	}
	return out, nil
}

// Compile builds the object schema for one entity. Schema construction
// failures are returned wrapped in ErrInvalidDefinition.
func Compile(e Entity) (schema.ObjectRule, error) {
	if e.Name == "" {
		return schema.ObjectRule{}, fmt.Errorf("%w: entity without name", ErrInvalidDefinition)
	}
	var specErr error
	rule, err := schema.Build(func() schema.ObjectRule {
		r, err := compileObject("", e.Fields, e.Refinements)
		specErr = err
		return r
	})
	if err == nil {
		err = specErr
	}
	if err != nil {
		return schema.ObjectRule{}, fmt.Errorf("%w: entity %q: %w", ErrInvalidDefinition, e.Name, err)
	}
	return rule, nil
}

// LoadInto compiles every definition found at paths and registers the
// entities in reg. A directory path loads its .yaml, .yml and .json files in
// name order. It returns the names that were registered.
func LoadInto(reg *catalog.Registry, paths ...string) ([]string, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, path := range files {
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		rules, err := f.Compile()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, e := range f.Entities {
			if err := reg.Register(e.Name, rules[e.Name]); err != nil {
				return nil, err
			}
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read definitions: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to list definitions: %w", err)
		}
		var found []string
		for _, entry := range entries {
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".yaml", ".yml", ".json":
				if !entry.IsDir() {
					found = append(found, filepath.Join(p, entry.Name()))
				}
			}
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}

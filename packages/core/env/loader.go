package env

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// sharedKey names the defaults section merged beneath every environment.
const sharedKey = "$shared"

// environmentSchema is the shape every environment document must satisfy:
// an object keyed by environment name, each value a flat string map.
const environmentSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"additionalProperties": {"type": "string"}
	}
}`

// Document is a parsed environment document. Shared holds the $shared
// section; Environments holds every named environment's entries.
type Document struct {
	Shared       map[string]string
	Environments map[string]map[string]string
}

// Has reports whether the document defines the named environment. The
// shared section is not an environment.
func (d *Document) Has(name string) bool {
	_, ok := d.Environments[name]
	return ok
}

// Lookup finds key in the selected environment, falling back to the shared
// section. An empty selection consults only the shared section.
func (d *Document) Lookup(selected, key string) (string, bool) {
	if selected != "" {
		if vars, ok := d.Environments[selected]; ok {
			if value, ok := vars[key]; ok {
				return value, true
			}
		}
	}
	value, ok := d.Shared[key]
	return value, ok
}

// LoadEnvironmentFile reads an environment document from path. Files ending
// in .yaml or .yml are parsed as YAML, everything else as JSON. The document
// is validated before use; shape violations report the offending path.
func LoadEnvironmentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read environment file: %w", err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing environment file %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing environment file %s: %w", path, err)
		}
	}

	if err := validateEnvironments(raw); err != nil {
		return nil, fmt.Errorf("environment file %s: %w", path, err)
	}

	doc := &Document{
		Shared:       make(map[string]string),
		Environments: make(map[string]map[string]string),
	}
	for name, value := range raw {
		entries, _ := value.(map[string]any)
		vars := make(map[string]string, len(entries))
		for k, v := range entries {
			vars[k], _ = v.(string)
		}
		if name == sharedKey {
			doc.Shared = vars
			continue
		}
		doc.Environments[name] = vars
	}
	return doc, nil
}

func validateEnvironments(raw map[string]any) error {
	docJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(environmentSchema)
	documentLoader := gojsonschema.NewBytesLoader(docJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errors []string
	for _, desc := range result.Errors() {
		errors = append(errors, desc.String())
	}
	return fmt.Errorf("invalid shape: %s", strings.Join(errors, "; "))
}

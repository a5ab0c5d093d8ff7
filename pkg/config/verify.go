package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema checks the config against the embedded JSON schema.
// Every config section and key must be declared by the schema, which catches a stale schema.json.
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema struct {
		Defs map[string]struct {
			Properties map[string]struct {
				Ref string `json:"$ref"`
			} `json:"properties"`
		} `json:"$defs"`
	}
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var configMap map[string]map[string]any
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	root, ok := schema.Defs["Config"]
	if !ok {
		return fmt.Errorf("schema has no Config definition")
	}

	sections := make([]string, 0, len(configMap))
	for name := range configMap {
		sections = append(sections, name)
	}
	sort.Strings(sections)

	for _, section := range sections {
		prop, ok := root.Properties[section]
		if !ok {
			return fmt.Errorf("section %q is not in schema", section)
		}
		def, ok := schema.Defs[refName(prop.Ref)]
		if !ok {
			return fmt.Errorf("section %q refers to unknown definition %q", section, prop.Ref)
		}
		for key := range configMap[section] {
			if _, ok := def.Properties[key]; !ok {
				return fmt.Errorf("key %s.%s is not in schema", section, key)
			}
		}
	}

	if err := validateRequiredFields(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// validateRequiredFields performs basic validation of required fields
func validateRequiredFields(cfg *Config) error {
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if cfg.Server.Timeout == 0 {
		return fmt.Errorf("server.timeout is required")
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Extraction.Enabled && cfg.Extraction.Timeout == 0 {
		return fmt.Errorf("extraction.timeout is required when extraction is enabled")
	}
	return nil
}

// refName extracts the definition name from a "#/$defs/Name" reference
func refName(ref string) string {
	const prefix = "#/$defs/"
	if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
		return ref[len(prefix):]
	}
	return ref
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/umputun/feedflow/pkg/config"
)

func main() {
	outputPath := "schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := writeSchema(outputPath); err != nil {
		log.Fatalf("failed to generate schema: %v", err)
	}
	fmt.Printf("Schema generated successfully at %s\n", outputPath)
}

// writeSchema reflects the config struct and writes indented JSON schema to path
func writeSchema(path string) error {
	data, err := json.MarshalIndent(config.GenerateSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		return fmt.Errorf("write schema file: %w", err)
	}
	return nil
}

// Command schema emits JSON schemas for the persisted save format and the
// per-tick world snapshot, for use by external tooling and client codegen.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"deepfall/server/internal/saves"
	"deepfall/server/internal/world"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	targets := []struct {
		name        string
		title       string
		description string
		value       any
	}{
		{
			name:        "save.schema.json",
			title:       "Deepfall Save Slot",
			description: "Persisted character record stored per player save slot.",
			value:       new(saves.SaveData),
		},
		{
			name:        "snapshot.schema.json",
			title:       "Deepfall World Snapshot",
			description: "Authoritative world state broadcast to clients each tick.",
			value:       new(world.Snapshot),
		},
	}

	for _, target := range targets {
		schema := buildSchema(target.value, target.title, target.description)
		if err := writeSchema(filepath.Join(outDir, target.name), schema); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", target.name, err)
			os.Exit(1)
		}
	}
}

func buildSchema(value any, title, description string) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(value)
	schema.Title = title
	schema.Description = description
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}

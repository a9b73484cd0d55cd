package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a JSON or YAML database (chosen by extension; anything other
// than .yaml/.yml is parsed as JSON) into a MemoryStore.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied database path
	if err != nil {
		return nil, fmt.Errorf("read database %s: %w", path, err)
	}
	db, err := Decode(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parse database %s: %w", path, err)
	}
	return NewMemoryStore(db), nil
}

// SaveFile writes db as indented JSON, or YAML for .yaml/.yml paths.
func SaveFile(path string, db Database) error {
	data, err := Encode(db, formatFor(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write database %s: %w", path, err)
	}
	return nil
}

// Format is a database encoding.
type Format string

// Supported database encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a database object keyed by plate.
func Decode(data []byte, format Format) (Database, error) {
	db := Database{}
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &db)
	} else {
		err = json.Unmarshal(data, &db)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Encode serializes db. JSON output is indented by four spaces.
func Encode(db Database, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(db)
	}
	return json.MarshalIndent(db, "", "    ")
}

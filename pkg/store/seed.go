package store

import (
	"embed"
	"path"
)

//go:embed seed/*.json
var seedFS embed.FS

// EmbeddedSeed serves the seed dataset bundled with the binary, one file per collection key
type EmbeddedSeed struct{}

// Seed returns the bundled data for key
func (EmbeddedSeed) Seed(key string) ([]byte, bool) {
	data, err := seedFS.ReadFile(path.Join("seed", key+".json"))
	if err != nil {
		return nil, false
	}
	return data, true
}

// NoSeed never provides data, collections start empty
type NoSeed struct{}

// Seed always reports no data
func (NoSeed) Seed(string) ([]byte, bool) { return nil, false }

// MapSeed provides seed data from memory, keyed by collection key
type MapSeed map[string][]byte

// Seed returns the data for key
func (m MapSeed) Seed(key string) ([]byte, bool) {
	data, ok := m[key]
	return data, ok
}

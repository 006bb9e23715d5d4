package saver

import (
	"encoding/json"
	"os"

	"barprovider/internal/schema"
)

// JSONSaver writes bars as an indented JSON array in the canonical
// record schema.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(bars []schema.Bar, path string) error {
	b, err := json.MarshalIndent(bars, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

package saver

import (
	"github.com/parquet-go/parquet-go"

	"barprovider/internal/schema"
)

// ParquetSaver writes bars as a Parquet file.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []schema.Bar, path string) error {
	return parquet.WriteFile(path, flatten(bars))
}

package export

import (
	"github.com/parquet-go/parquet-go"

	"tripleconfirm/internal/model"
)

// ParquetExporter writes signals as a Parquet file with the Row schema.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string { return "parquet" }

func (ParquetExporter) Export(path string, symbol string, views []model.SignalView) error {
	return parquet.WriteFile(path, Rows(symbol, views))
}

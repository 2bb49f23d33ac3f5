package core

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/suppliers/internal/dataset"
)

// ModifiedLayout is the timestamp layout used for file modification times.
const ModifiedLayout = "2006-01-02 15:04:05"

// FormatSize renders a byte count in kilobytes with two decimals.
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
}

// FormatModified renders a modification time in local time.
func FormatModified(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(ModifiedLayout)
}

// FileSummary is the display form of the source file metadata.
type FileSummary struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	SizeText string `json:"sizeText"`
	Modified string `json:"modified"`

	// ChangedOnDisk is set by adapters that watch the data directory.
	ChangedOnDisk bool `json:"changedOnDisk"`
}

// Summarize converts SourceFileInfo for display.
func Summarize(info dataset.SourceFileInfo) FileSummary {
	return FileSummary{
		Name:     info.Name,
		Path:     info.Path,
		Size:     info.Size,
		SizeText: FormatSize(info.Size),
		Modified: FormatModified(info.Modified),
	}
}

// DisplayOrder returns the table's columns with the preferred ones first,
// in preferred order, followed by the rest in schema order. Preferred names
// that are not in the schema are skipped.
func DisplayOrder(schema dataset.Schema, preferred []string) []string {
	out := make([]string, 0, len(schema))
	used := make(map[string]bool, len(schema))
	for _, col := range preferred {
		if schema.Contains(col) && !used[col] {
			out = append(out, col)
			used[col] = true
		}
	}
	for _, col := range schema {
		if !used[col] {
			out = append(out, col)
		}
	}
	return out
}

// FormatNumber renders an aggregate result, or "" when there is none.
func FormatNumber(f *float64) string {
	if f == nil {
		return ""
	}
	return dataset.Number(*f).String()
}

// SupplierColumns is the default display order of the supplier export.
var SupplierColumns = []string{
	"Material",
	"Soma de Saldo",
	"Último UM pedido",
	"Data de remessa mais recente",
	"Primeiro Fornecedor",
}

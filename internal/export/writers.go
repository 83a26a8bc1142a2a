package export

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/terraincognita07/medjournal/internal/services"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatJSON, FormatCSV, FormatXLSX:
		return Format(raw), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

func (format Format) ContentType() string {
	switch format {
	case FormatCSV:
		return "application/zip"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

func (format Format) Extension() string {
	if format == FormatCSV {
		return "zip"
	}
	return string(format)
}

// FileName is the suggested download name, e.g. medjournal-export-20240301.zip.
func (format Format) FileName(generatedAt time.Time) string {
	return fmt.Sprintf("medjournal-export-%s.%s", generatedAt.UTC().Format("20060102"), format.Extension())
}

// Write encodes dataset in format and reports what was exported.
func Write(w io.Writer, format Format, dataset services.ExportDataset) (services.ExportSummary, error) {
	var err error
	switch format {
	case FormatJSON:
		err = WriteJSON(w, dataset)
	case FormatCSV:
		err = WriteCSVBundle(w, dataset)
	case FormatXLSX:
		err = WriteXLSX(w, dataset)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return services.ExportSummary{}, err
	}
	return dataset.Summary(), nil
}

func WriteJSON(w io.Writer, dataset services.ExportDataset) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dataset); err != nil {
		return fmt.Errorf("encode export json: %w", err)
	}
	return nil
}

// WriteCSVBundle writes one CSV file per table into a ZIP archive.
func WriteCSVBundle(w io.Writer, dataset services.ExportDataset) error {
	archive := zip.NewWriter(w)
	for _, table := range Tables(dataset) {
		file, err := archive.Create(table.FileName())
		if err != nil {
			return fmt.Errorf("create %s: %w", table.FileName(), err)
		}
		writer := csv.NewWriter(file)
		if err := writer.Write(table.Header); err != nil {
			return fmt.Errorf("write %s header: %w", table.FileName(), err)
		}
		if err := writer.WriteAll(table.Rows); err != nil {
			return fmt.Errorf("write %s rows: %w", table.FileName(), err)
		}
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("close csv archive: %w", err)
	}
	return nil
}

// WriteXLSX writes one worksheet per table with a bold, frozen header row.
func WriteXLSX(w io.Writer, dataset services.ExportDataset) error {
	workbook := excelize.NewFile()
	defer workbook.Close()

	headerStyle, err := workbook.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for index, table := range Tables(dataset) {
		if index == 0 {
			if err := workbook.SetSheetName("Sheet1", table.Name); err != nil {
				return fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := workbook.NewSheet(table.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", table.Name, err)
		}
		if err := writeSheet(workbook, table, headerStyle); err != nil {
			return err
		}
	}
	workbook.SetActiveSheet(0)

	if _, err := workbook.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(workbook *excelize.File, table Table, headerStyle int) error {
	for rowIndex, values := range append([][]string{table.Header}, table.Rows...) {
		cell, err := excelize.CoordinatesToCellName(1, rowIndex+1)
		if err != nil {
			return fmt.Errorf("resolve cell: %w", err)
		}
		row := make([]any, 0, len(values))
		for _, value := range values {
			row = append(row, value)
		}
		if err := workbook.SetSheetRow(table.Name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", table.Name, rowIndex+1, err)
		}
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(table.Header), 1)
	if err != nil {
		return fmt.Errorf("resolve header range: %w", err)
	}
	if err := workbook.SetCellStyle(table.Name, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", table.Name, err)
	}
	if err := workbook.SetPanes(table.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze %s header: %w", table.Name, err)
	}
	return nil
}

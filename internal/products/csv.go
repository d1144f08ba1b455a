package products

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingColumns indicates the CSV lacks the required handle/title headers.
var ErrMissingColumns = errors.New("csv missing required handle and title columns")

// ReadCSV parses a tabular product export into records. The first row is a
// header; handle and title columns are required. Rows sharing a handle are
// merged into one record, with later rows contributing their variant option
// values.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := indexColumns(header)
	if cols.handle < 0 || cols.title < 0 {
		return nil, ErrMissingColumns
	}

	var (
		records []Record
		byIndex = map[string]int{}
		line    = 1
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line+1, err)
		}
		line++

		handle := strings.TrimSpace(field(row, cols.handle))
		if handle == "" {
			continue
		}

		if idx, seen := byIndex[handle]; seen {
			for _, vi := range cols.optionValues {
				if value := strings.TrimSpace(field(row, vi)); value != "" {
					records[idx].VariantValues = append(records[idx].VariantValues, value)
				}
			}
			continue
		}

		record := Record{
			Handle:      handle,
			Title:       strings.TrimSpace(field(row, cols.title)),
			Description: strings.TrimSpace(field(row, cols.description)),
		}
		for i := range cols.optionNames {
			name := strings.TrimSpace(field(row, cols.optionNames[i]))
			value := strings.TrimSpace(field(row, cols.optionValues[i]))
			if name == "" && value == "" {
				continue
			}
			record.Options = append(record.Options, Option{Name: name, Value: value})
		}
		byIndex[handle] = len(records)
		records = append(records, record)
	}

	return records, nil
}

// LoadCSVFile reads a product export from disk.
func LoadCSVFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open products file: %w", err)
	}
	defer file.Close()
	return ReadCSV(file)
}

type columnIndexes struct {
	handle       int
	title        int
	description  int
	optionNames  []int
	optionValues []int
}

func indexColumns(header []string) columnIndexes {
	cols := columnIndexes{handle: -1, title: -1, description: -1}
	names := make([]int, 3)
	values := make([]int, 3)
	for i := range names {
		names[i] = -1
		values[i] = -1
	}

	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "handle":
			cols.handle = i
		case "title":
			cols.title = i
		case "description", "body", "body (html)":
			cols.description = i
		case "option1 name":
			names[0] = i
		case "option1 value":
			values[0] = i
		case "option2 name":
			names[1] = i
		case "option2 value":
			values[1] = i
		case "option3 name":
			names[2] = i
		case "option3 value":
			values[2] = i
		}
	}

	for i := range names {
		if names[i] >= 0 || values[i] >= 0 {
			cols.optionNames = append(cols.optionNames, names[i])
			cols.optionValues = append(cols.optionValues, values[i])
		}
	}
	return cols
}

func field(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}

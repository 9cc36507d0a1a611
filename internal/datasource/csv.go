package datasource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVRecordStream reads a file with three header rows: field names, field
// types and field flags (R reset, S sequence, C category, T timestamp).
// Empty cells of numeric fields are treated as missing values.
type CSVRecordStream struct {
	*MemorySource
	path string
}

func OpenCSV(path string) (*CSVRecordStream, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	stream, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	stream.path = path
	return stream, nil
}

func ReadCSV(in io.Reader) (*CSVRecordStream, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	header := make([][]string, 0, 3)
	for len(header) < 3 {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("csv header needs 3 rows, got %d", len(header))
		}
		if err != nil {
			return nil, fmt.Errorf("read csv header row %d: %w", len(header)+1, err)
		}
		header = append(header, record)
	}
	fields, err := parseHeader(header[0], header[1], header[2])
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, 256)
	rowIndex := 4
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rowIndex, err)
		}
		if blankRecord(record) {
			rowIndex++
			continue
		}
		if len(record) != len(fields) {
			return nil, fmt.Errorf("csv row %d has %d columns, want %d", rowIndex, len(record), len(fields))
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			value, err := parseCell(field, record[i])
			if err != nil {
				return nil, fmt.Errorf("csv row %d field %s: %w", rowIndex, field.Name, err)
			}
			row[field.Name] = value
		}
		rows = append(rows, row)
		rowIndex++
	}

	source, err := NewMemorySource(fields, rows)
	if err != nil {
		return nil, err
	}
	return &CSVRecordStream{MemorySource: source}, nil
}

func (s *CSVRecordStream) Path() string {
	return s.path
}

func parseHeader(names, types, flags []string) ([]Field, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("csv header has no fields")
	}
	if len(types) != len(names) {
		return nil, fmt.Errorf("csv header has %d names but %d types", len(names), len(types))
	}
	fields := make([]Field, len(names))
	for i, name := range names {
		field := Field{
			Name: strings.TrimSpace(name),
			Type: strings.ToLower(strings.TrimSpace(types[i])),
		}
		if i < len(flags) {
			field.Flag = strings.ToUpper(strings.TrimSpace(flags[i]))
		}
		switch field.Type {
		case FieldTypeFloat, FieldTypeInt, FieldTypeString, FieldTypeDatetime:
		default:
			return nil, fmt.Errorf("field %s has unsupported type %q", field.Name, field.Type)
		}
		fields[i] = field
	}
	return fields, nil
}

func parseCell(field Field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch field.Type {
	case FieldTypeFloat:
		if raw == "" {
			return nil, nil
		}
		return strconv.ParseFloat(raw, 64)
	case FieldTypeInt:
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return raw, nil
	}
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

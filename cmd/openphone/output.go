package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// column selects a (possibly nested, dot-separated) record field for table output.
type column struct {
	header string
	path   string
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
}

// writeRecords renders a record list in the requested format.
func writeRecords(w io.Writer, format string, columns []column, records []map[string]any) error {
	switch format {
	case formatJSON:
		return writeJSON(w, records)
	case formatYAML:
		return writeYAML(w, records)
	}

	if len(records) == 0 {
		_, _ = io.WriteString(w, "No records found\n")
		return nil
	}

	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = c.header
	}
	table := tablewriter.NewWriter(w)
	table.Header(headers...)
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cell(lookup(rec, c.path))
		}
		_ = table.Append(row)
	}
	_ = table.Render()
	return nil
}

// writeObject renders a single value. Tables show one field per row.
func writeObject(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		return writeJSON(w, v)
	case formatYAML:
		return writeYAML(w, v)
	}

	fields, err := toMap(v)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	for _, k := range keys {
		_ = table.Append([]string{k, cell(fields[k])})
	}
	_ = table.Render()
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	// Round-trip through JSON so json tags and json.Number are honoured.
	plain, err := toPlain(v)
	if err != nil {
		return err
	}
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	if err := encoder.Encode(plain); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

func toPlain(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	plain, err := toPlain(v)
	if err != nil {
		return nil, err
	}
	m, ok := plain.(map[string]any)
	if !ok {
		return map[string]any{"value": plain}, nil
	}
	return m, nil
}

func lookup(rec map[string]any, path string) any {
	var cur any = rec
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = cell(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, _ := json.Marshal(x)
		return string(b)
	}
	return fmt.Sprint(v)
}

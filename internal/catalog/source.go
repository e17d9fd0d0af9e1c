package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phrazzld/recipe-forge/internal/output"
	"github.com/spf13/afero"
)

// Record is one input row before it becomes a work item.
type Record struct {
	// Identity is preset for records read from an artifact named by its
	// identity; otherwise it is derived from Title
	Identity    string
	Title       string
	Description string

	// Source holds the string fields of an artifact record
	Source map[string]string

	// Path is the file the record was read from
	Path string

	// Err is set when the record could not be read; the item fails but the
	// run continues
	Err error
}

// CSVSource reads records from a CSV file with a header row containing a
// "title" column and an optional "description" column. A trailing period is
// dropped from descriptions. Titles are kept byte for byte, surrounding
// spaces included, since the identity is the hash of the title as written.
func CSVSource(fs afero.Fs, path string) ([]Record, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, &output.LocalIOError{Op: "open", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, &output.LocalIOError{Op: "read", Path: path, Err: err}
	}

	titleCol, descCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "title":
			titleCol = i
		case "description":
			descCol = i
		}
	}
	if titleCol < 0 {
		return nil, fmt.Errorf("%w: %s has no title column", ErrMissingColumn, path)
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &output.LocalIOError{Op: "read", Path: path, Err: err}
		}
		rec := Record{Title: cell(row, titleCol), Path: path}
		if descCol >= 0 {
			rec.Description = strings.TrimSuffix(strings.TrimSpace(cell(row, descCol)), ".")
		}
		records = append(records, rec)
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// TitleListSource reads one title per line. Blank lines and lines starting
// with '#' are ignored.
func TitleListSource(fs afero.Fs, path string) ([]Record, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &output.LocalIOError{Op: "read", Path: path, Err: err}
	}

	var records []Record
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		records = append(records, Record{Title: line, Path: path})
	}
	if err := sc.Err(); err != nil {
		return nil, &output.LocalIOError{Op: "read", Path: path, Err: err}
	}
	return records, nil
}

// JSONDirSource reads the generated artifacts in dir, in file name order. The
// file stem is the record identity. A file that cannot be read or decoded
// yields a record carrying the error.
func JSONDirSource(fs afero.Fs, dir string) ([]Record, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, &output.LocalIOError{Op: "list", Path: dir, Err: err}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		rec := Record{
			Identity: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Path:     path,
		}
		rec.Source, rec.Err = readArtifact(fs, path)
		if rec.Err == nil {
			rec.Title = firstNonEmpty(rec.Source["title"], rec.Source["title_fr"])
			rec.Description = firstNonEmpty(rec.Source["description"], rec.Source["description_fr"])
		}
		records = append(records, rec)
	}
	return records, nil
}

func readArtifact(fs afero.Fs, path string) (map[string]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &output.LocalIOError{Op: "read", Path: path, Err: err}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &output.LocalIOError{Op: "decode", Path: path, Err: err}
	}
	source := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			source[k] = strings.TrimSpace(s)
		}
	}
	return source, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

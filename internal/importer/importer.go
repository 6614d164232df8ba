package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"playa-storefront/internal/domain"
)

type PhotoWriter interface {
	Create(ctx context.Context, p domain.Photo) (*domain.Photo, error)
}

// Summary counts what one manifest run did.
type Summary struct {
	Imported int
	Skipped  int
}

// CSVImporter registers photo originals that already sit in object storage,
// reading a manifest with the columns object_path, id and content_type. Only
// object_path is required.
type CSVImporter struct {
	reader  *csv.Reader
	photos  PhotoWriter
	eventID string
}

func NewCSVImporter(r io.Reader, photos PhotoWriter, eventID string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:  csvr,
		photos:  photos,
		eventID: eventID,
	}
}

type csvRow struct {
	line        int
	ID          string
	ObjectPath  string
	ContentType string
}

// Run parses the manifest and creates one photo per row. Rows whose object is
// already registered are skipped; any other failure stops the run.
func (i *CSVImporter) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	headers, err := i.reader.Read()
	if err != nil {
		return sum, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["object_path"]; !ok {
		return sum, errors.New("manifest has no object_path column")
	}

	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index, line)
		if row == nil {
			continue
		}
		created, err := i.save(ctx, row)
		if err != nil {
			return sum, err
		}
		if created {
			sum.Imported++
		} else {
			sum.Skipped++
		}
	}
	return sum, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) (bool, error) {
	if strings.HasPrefix(row.ObjectPath, "/") || strings.Contains(row.ObjectPath, "..") {
		return false, fmt.Errorf("line %d: invalid object path %q", row.line, row.ObjectPath)
	}
	if row.ID != "" && len(row.ID) != 36 {
		return false, fmt.Errorf("line %d: invalid id %s", row.line, row.ID)
	}
	contentType := row.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(path.Ext(row.ObjectPath)))
	}

	_, err := i.photos.Create(ctx, domain.Photo{
		ID:          row.ID,
		EventID:     i.eventID,
		ObjectPath:  row.ObjectPath,
		ContentType: contentType,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("line %d: create photo %q: %w", row.line, row.ObjectPath, err)
	}
	return true, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int, line int) *csvRow {
	objectPath := pick(record, index, "object_path")
	if objectPath == "" {
		return nil
	}
	return &csvRow{
		line:        line,
		ID:          pick(record, index, "id"),
		ObjectPath:  objectPath,
		ContentType: pick(record, index, "content_type"),
	}
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

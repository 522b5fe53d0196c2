package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/xxxsen/readlater/internal/model"
)

const (
	columnURL    = "url"
	columnState  = "state"
	columnLabels = "labels"
)

type columns struct {
	url    int
	state  int
	labels int
}

var positionalColumns = columns{url: 0, state: 1, labels: 2}

// ImportCSV reads r one record at a time. The first record is treated as a
// header when one of its cells is "url"; otherwise columns are positional
// (url, state, labels). Every record increments exactly one of the counters
// of ic. A non nil error means reading stopped early: the stream failed or
// ctx was cancelled.
func ImportCSV(ctx context.Context, ic *Context, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	cols := positionalColumns
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				first = false
				ic.record(Outcome{Line: parseErr.StartLine, Err: err})
				continue
			}
			return err
		}
		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if header, ok := parseHeader(record); ok {
				cols = header
				continue
			}
		}
		row, err := parseRow(record, cols)
		if err != nil {
			ic.record(Outcome{Line: line, Row: row, Err: err})
			continue
		}
		ic.record(ic.dispatch(ctx, line, row))
	}
}

// parseHeader reports whether record names its columns. A record holding
// any valid url is data, even if one of its cells reads "url".
func parseHeader(record []string) (columns, bool) {
	cols := columns{url: -1, state: -1, labels: -1}
	for _, cell := range record {
		if _, err := ParseURL(strings.TrimSpace(cell)); err == nil {
			return cols, false
		}
	}
	for i, cell := range record {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case columnURL:
			cols.url = i
		case columnState:
			cols.state = i
		case columnLabels:
			cols.labels = i
		}
	}
	return cols, cols.url >= 0
}

func parseRow(record []string, cols columns) (Row, error) {
	var row Row
	raw, ok := cell(record, cols.url)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return row, ErrMissingURL
	}
	u, err := ParseURL(raw)
	if err != nil {
		return row, err
	}
	row.URL = u
	if value, ok := cell(record, cols.state); ok {
		if status, known := model.ParseSavingRequestStatus(strings.TrimSpace(value)); known {
			row.State = &status
		}
	}
	if value, ok := cell(record, cols.labels); ok {
		row.Labels = ParseLabels(value)
	}
	return row, nil
}

func cell(record []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(record) {
		return "", false
	}
	return record[idx], true
}

// ParseURL accepts absolute http(s) urls only.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &InvalidURLError{Value: raw, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{Value: raw}
	}
	if u.Host == "" {
		return nil, &InvalidURLError{Value: raw}
	}
	return u, nil
}

// ParseLabels splits a label cell such as "[a, b]" or "a,b". Labels are
// trimmed and empty ones dropped; the result is never nil.
func ParseLabels(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		value = value[1 : len(value)-1]
	}
	labels := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		labels = append(labels, part)
	}
	return labels
}

// Package export turns a stats table into a downloadable CSV artifact.
package export

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

// Filename is the suggested download name for every artifact.
const Filename = "playerstats.csv"

// Artifact is a CSV rendering of a table ready to be offered as a download.
type Artifact struct {
	Filename string
	CSV      string
	Base64   string
	Rows     int
}

// Href is a data URI carrying the CSV payload.
func (a Artifact) Href() string {
	return "data:file/csv;base64," + a.Base64
}

// Anchor is the HTML download link for the artifact.
func (a Artifact) Anchor() string {
	return fmt.Sprintf(`<a href="%s" download="%s">Download CSV File</a>`,
		html.EscapeString(a.Href()), html.EscapeString(a.Filename))
}

// Export writes the header and every row in column order. No index column.
func Export(t stats.Table) (Artifact, error) {
	b, err := EncodeCSV(t)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename: Filename,
		CSV:      string(b),
		Base64:   base64.StdEncoding.EncodeToString(b),
		Rows:     t.Len(),
	}, nil
}

// EncodeCSV renders t as CSV bytes. A table without columns encodes to nothing.
func EncodeCSV(t stats.Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range t.Rows {
		if err := w.Write(t.Record(i)); err != nil {
			return nil, fmt.Errorf("failed to write CSV record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

var errBadHref = errors.New("not a base64 CSV data URI")

// Decode reads an artifact's base64 payload back into a table.
func Decode(a Artifact) (stats.Table, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Base64)
	if err != nil {
		return stats.Table{}, fmt.Errorf("decode base64: %w", err)
	}
	return DecodeCSV(raw)
}

// DecodeHref accepts the href produced by Artifact.Href.
func DecodeHref(href string) (stats.Table, error) {
	const prefix = "data:file/csv;base64,"
	if !strings.HasPrefix(href, prefix) {
		return stats.Table{}, errBadHref
	}
	return Decode(Artifact{Base64: strings.TrimPrefix(href, prefix)})
}

// DecodeCSV parses CSV text with a header row into a table. Blank cells are missing.
func DecodeCSV(b []byte) (stats.Table, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return stats.Table{}, nil
	}
	r := csv.NewReader(bytes.NewReader(b))
	recs, err := r.ReadAll()
	if err != nil {
		return stats.Table{}, fmt.Errorf("read csv: %w", err)
	}
	out := stats.Table{Columns: recs[0]}
	for _, rec := range recs[1:] {
		row := make(stats.Row, len(rec))
		for i, c := range out.Columns {
			row[c] = stats.Parse(rec[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

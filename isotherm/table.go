package isotherm

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrData = errors.New("isotherm data error")

// Table holds equilibrium measurements, one (X, Y) pair per row.
type Table struct {
	XLabel string
	YLabel string
	X      []float64
	Y      []float64
}

func (t *Table) Len() int {
	return len(t.X)
}

// Load reads a CSV file whose header names the two columns.
func Load(path, xLabel, yLabel string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open isotherm data %s", path)
	}
	defer f.Close()

	t, err := Read(f, xLabel, yLabel)
	if err != nil {
		return nil, errors.WithMessagef(err, "isotherm data %s", path)
	}
	return t, nil
}

// Read parses CSV records. Column order does not matter, only the header names.
func Read(r io.Reader, xLabel, yLabel string) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(ErrData, err.Error())
	}
	if len(records) == 0 {
		return nil, errors.Wrap(ErrData, "missing header row")
	}

	xCol, yCol := -1, -1
	for i, name := range records[0] {
		switch strings.TrimSpace(name) {
		case xLabel:
			xCol = i
		case yLabel:
			yCol = i
		}
	}
	if xCol < 0 {
		return nil, errors.Wrapf(ErrData, "column %q not found", xLabel)
	}
	if yCol < 0 {
		return nil, errors.Wrapf(ErrData, "column %q not found", yLabel)
	}

	t := &Table{XLabel: xLabel, YLabel: yLabel}
	for n, rec := range records[1:] {
		x, err := parseCell(rec, xCol)
		if err != nil {
			return nil, errors.Wrapf(ErrData, "row %d, column %q: %v", n+1, xLabel, err)
		}
		y, err := parseCell(rec, yCol)
		if err != nil {
			return nil, errors.Wrapf(ErrData, "row %d, column %q: %v", n+1, yLabel, err)
		}
		t.X = append(t.X, x)
		t.Y = append(t.Y, y)
	}
	return t, nil
}

func parseCell(rec []string, col int) (float64, error) {
	if col >= len(rec) {
		return 0, errors.New("missing cell")
	}
	return strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
}

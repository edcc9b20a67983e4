package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kode-ml/kode/internal/fsutil"
)

// LoadCSV reads a numeric (n, d) array. A first row that does not parse as
// numbers is treated as a header and returned separately. Blank lines and
// lines starting with '#' are skipped.
func LoadCSV(r io.Reader) (SampleSet, []string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var (
		header []string
		data   []float64
		width  = -1
		rows   int
	)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return SampleSet{}, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		vals, perr := parseRecord(rec)
		if perr != nil {
			if rows == 0 && header == nil {
				header = append([]string(nil), rec...)
				width = len(rec)
				continue
			}
			return SampleSet{}, nil, fmt.Errorf("line %d: %w", line, perr)
		}
		if width < 0 {
			width = len(vals)
		}
		if len(vals) != width {
			return SampleSet{}, nil, fmt.Errorf("%w: line %d has %d columns, want %d", ErrShape, line, len(vals), width)
		}
		data = append(data, vals...)
		rows++
	}
	if rows == 0 {
		return SampleSet{}, header, fmt.Errorf("%w: no data rows", ErrShape)
	}
	s, err := NewSampleSet(rows, width, data)
	return s, header, err
}

// LoadCSVFile opens path on fsys and calls LoadCSV.
func LoadCSVFile(fsys fsutil.FileSystem, path string) (SampleSet, []string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return SampleSet{}, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

func parseRecord(rec []string) ([]float64, error) {
	out := make([]float64, len(rec))
	for i, field := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVHeader is the canonical candle CSV header.
var CSVHeader = []string{"time_open", "open", "high", "low", "close", "volume"}

// IngestStats counts what ReadCSV skipped.
type IngestStats struct {
	Rows       int
	BadLines   int
	Duplicates int
}

// ReadCSV reads candles in the canonical layout. The header row is optional,
// rows with a bad timestamp are skipped, unparsable prices become NaN.
// The result is sorted and deduplicated (keep-first).
func ReadCSV(r io.Reader) ([]Candle, IngestStats, error) {
	var st IngestStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var cs []Candle
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, st, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "time_open") {
			continue
		}
		st.Rows++
		if len(rec) < 6 {
			st.BadLines++
			continue
		}
		c, err := RawCandle{
			TimeOpen: rec[0],
			Open:     rec[1],
			High:     rec[2],
			Low:      rec[3],
			Close:    rec[4],
			Volume:   rec[5],
		}.Parse()
		if err != nil {
			st.BadLines++
			continue
		}
		cs = append(cs, c)
	}

	n := len(cs)
	cs = Dedupe(cs)
	st.Duplicates = n - len(cs)
	return cs, st, nil
}

// ReadCSVFile is ReadCSV over a file; ingest warnings go to stderr.
func ReadCSVFile(path string) ([]Candle, IngestStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, IngestStats{}, err
	}
	defer f.Close()

	cs, st, err := ReadCSV(f)
	if err != nil {
		return nil, st, err
	}
	if st.BadLines > 0 || st.Duplicates > 0 {
		fmt.Fprintf(os.Stderr, "ingest warnings: %s duplicates=%d badLines=%d\n",
			path, st.Duplicates, st.BadLines)
	}
	return cs, st, nil
}

// WriteCSV writes candles with the canonical header.
func WriteCSV(w io.Writer, cs []Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, c := range cs {
		err := cw.Write([]string{
			strconv.FormatInt(c.TimeOpen, 10),
			f(c.Open),
			f(c.High),
			f(c.Low),
			f(c.Close),
			f(c.Volume),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// Package telemetry appends one CSV record per control cycle for
// offline inspection and the live monitor.
package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var header = []string{
	"timestamp", "temp_rad_avg", "temp_chs_avg",
	"fan_rad", "fan_chs", "reward", "epsilon", "q_states",
}

const timeLayout = time.RFC3339

// Record is one control cycle's telemetry row.
type Record struct {
	Time    time.Time
	RadAvg  float64
	ChsAvg  float64
	FanRad  int
	FanChs  int
	Reward  float64
	Epsilon float64
	QStates int
}

// Writer appends records to a CSV file, writing the column header
// exactly once when the file is created empty.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// NewWriter opens (or creates) the telemetry file at path.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	w := &Writer{f: f, w: csv.NewWriter(f)}
	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		if err := w.w.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		w.w.Flush()
	}
	return w, w.w.Error()
}

// Record appends one row and flushes it to disk.
func (w *Writer) Record(r Record) error {
	row := []string{
		r.Time.Format(timeLayout),
		strconv.FormatFloat(r.RadAvg, 'f', 2, 64),
		strconv.FormatFloat(r.ChsAvg, 'f', 2, 64),
		strconv.Itoa(r.FanRad),
		strconv.Itoa(r.FanChs),
		strconv.FormatFloat(r.Reward, 'f', 2, 64),
		strconv.FormatFloat(r.Epsilon, 'f', 4, 64),
		strconv.Itoa(r.QStates),
	}
	if err := w.w.Write(row); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	return w.f.Close()
}

// ReadLastN parses up to n trailing records from the telemetry file.
// Rows that fail to parse are skipped.
func ReadLastN(path string, n int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1
	rows, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse telemetry %s: %w", path, err)
	}

	var out []Record
	for _, row := range rows {
		rec, ok := parseRow(row)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func parseRow(row []string) (Record, bool) {
	if len(row) != len(header) {
		return Record{}, false
	}
	ts, err := time.Parse(timeLayout, row[0])
	if err != nil {
		return Record{}, false // header line or junk
	}

	floats := make([]float64, 0, 4)
	for _, i := range []int{1, 2, 5, 6} {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return Record{}, false
		}
		floats = append(floats, v)
	}
	ints := make([]int, 0, 3)
	for _, i := range []int{3, 4, 7} {
		v, err := strconv.Atoi(row[i])
		if err != nil {
			return Record{}, false
		}
		ints = append(ints, v)
	}

	return Record{
		Time:    ts,
		RadAvg:  floats[0],
		ChsAvg:  floats[1],
		FanRad:  ints[0],
		FanChs:  ints[1],
		Reward:  floats[2],
		Epsilon: floats[3],
		QStates: ints[2],
	}, true
}

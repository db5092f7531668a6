package csvdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/chimerahq/chimera/pkg/api"
)

// ProgressiveSampleSizes is the k-candidates SGDWorker tries in order when
// it needs a small labeled sample to seed the parameter server's
// coefficient shape (spec.md §4.4): the first k that can be read from both
// files wins.
var ProgressiveSampleSizes = []int{200, 100, 50, 25, 10, 5, 2}

// LoadFitInput reads two headered CSV files into a column-major
// api.Frame pair, suitable for a full worker-local fit.
func LoadFitInput(xPath, yPath string) (api.FitInput, error) {
	xCols, xRows, err := readCSV(xPath)
	if err != nil {
		return api.FitInput{}, err
	}
	yCols, yRows, err := readCSV(yPath)
	if err != nil {
		return api.FitInput{}, err
	}
	return api.FitInput{
		XTrainColumns: xCols,
		XTrainRows:    xRows,
		YTrainColumns: yCols,
		YTrainRows:    yRows,
	}, nil
}

// LoadSample reads at most k data rows from each CSV file into a
// FitRequestDataSampleOutput. It is an error for either file to contain
// fewer than k data rows.
func LoadSample(xPath, yPath string, k int) (api.FitRequestDataSampleOutput, error) {
	xCols, xRows, err := readCSVLimit(xPath, k)
	if err != nil {
		return api.FitRequestDataSampleOutput{}, err
	}
	yCols, yRows, err := readCSVLimit(yPath, k)
	if err != nil {
		return api.FitRequestDataSampleOutput{}, err
	}
	return api.FitRequestDataSampleOutput{
		XTrainSampleColumns: xCols,
		XTrainSampleRows:    xRows,
		YTrainSampleColumns: yCols,
		YTrainSampleRows:    yRows,
	}, nil
}

// LoadSampleProgressive tries each size in ProgressiveSampleSizes in
// order and returns the first one that succeeds on both files. If every
// size fails, the last encountered error is wrapped into an IOError.
func LoadSampleProgressive(xPath, yPath string) (api.FitRequestDataSampleOutput, error) {
	var lastErr error
	for _, k := range ProgressiveSampleSizes {
		sample, err := LoadSample(xPath, yPath, k)
		if err == nil {
			return sample, nil
		}
		lastErr = err
	}
	return api.FitRequestDataSampleOutput{}, api.NewIOError(fmt.Sprintf("no data sample size succeeded: %v", lastErr))
}

func readCSV(path string) ([]string, [][]any, error) {
	return readCSVLimit(path, -1)
}

// readCSVLimit reads a headered CSV file, returning its column names and
// up to limit data rows (all rows if limit < 0). It is an error for the
// file to contain fewer than limit data rows when limit >= 0.
func readCSVLimit(path string, limit int) ([]string, [][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, api.NewIOError(fmt.Sprintf("opening %s: %v", path, err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, nil, api.NewIOError(fmt.Sprintf("reading header of %s: %v", path, err))
	}

	var rows [][]any
	for {
		if limit >= 0 && len(rows) >= limit {
			break
		}
		record, err := r.Read()
		if err != nil {
			break
		}
		rows = append(rows, coerceRow(record))
	}

	if limit >= 0 && len(rows) < limit {
		return nil, nil, api.NewIOError(fmt.Sprintf("%s has fewer than %d data rows", path, limit))
	}

	return header, rows, nil
}

// coerceRow converts each raw CSV field into a float64, bool, or string,
// mirroring the loosely-typed scalar union read_csv produces upstream.
func coerceRow(record []string) []any {
	row := make([]any, len(record))
	for i, field := range record {
		row[i] = coerceScalar(field)
	}
	return row
}

func coerceScalar(field string) any {
	if n, err := strconv.ParseFloat(field, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(field); err == nil {
		return b
	}
	return field
}

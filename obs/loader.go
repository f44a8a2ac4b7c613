package obs

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	smc "github.com/grainlearn/smc-go"
	"gonum.org/v1/gonum/mat"
)

// readFields reads every non-blank, non-comment line of path and splits
// it into whitespace-separated fields. Lines starting with "!" are
// treated as comments and dropped, matching the Parameter Table Store's
// convention.
func readFields(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows [][]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRow(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, &smc.InvalidSpecError{Reason: "non-numeric field " + f}
		}
		out[i] = v
	}
	return out, nil
}

// LoadKeyless parses an observation file as a 2-D whitespace matrix of
// shape (T, M): a lone scalar becomes (1,1); a single row of M numbers
// becomes (T,1) with T=M, one reference value per assimilation step.
func LoadKeyless(path string) (*mat.Dense, error) {
	rows, err := readFields(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &smc.InvalidSpecError{Reason: "observation file " + path + " is empty"}
	}

	if len(rows) == 1 {
		vals, err := parseRow(rows[0])
		if err != nil {
			return nil, err
		}
		if len(vals) == 1 {
			return mat.NewDense(1, 1, vals), nil
		}
		return mat.NewDense(len(vals), 1, vals), nil
	}

	m := len(rows[0])
	data := make([]float64, 0, len(rows)*m)
	for _, r := range rows {
		if len(r) != m {
			return nil, &smc.InvalidSpecError{Reason: "observation file " + path + " has ragged rows"}
		}
		vals, err := parseRow(r)
		if err != nil {
			return nil, err
		}
		data = append(data, vals...)
	}
	return mat.NewDense(len(rows), m, data), nil
}

// LoadKeyed parses an observation file with a header naming every
// column, removes the designated control column and returns the
// remaining columns as Y (in file order) plus the control sequence c.
func LoadKeyed(path, controlName string) (y *mat.Dense, c []float64, names []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var header []string
	var rows [][]string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		if header == nil {
			header = strings.Fields(line)
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, nil, nil, err
	}
	if header == nil {
		return nil, nil, nil, &smc.InvalidSpecError{Reason: "keyed observation file " + path + " has no header"}
	}

	controlIdx := -1
	for i, n := range header {
		if n == controlName {
			controlIdx = i
			break
		}
	}
	if controlIdx < 0 {
		return nil, nil, nil, &smc.InvalidSpecError{Reason: "control channel " + controlName + " not found in header"}
	}

	cols := make([][]float64, len(header))
	for _, r := range rows {
		if len(r) != len(header) {
			return nil, nil, nil, &smc.InvalidSpecError{Reason: "keyed observation file " + path + " has ragged rows"}
		}
		vals, err := parseRow(r)
		if err != nil {
			return nil, nil, nil, err
		}
		for i, v := range vals {
			cols[i] = append(cols[i], v)
		}
	}

	t := len(rows)
	var keepNames []string
	data := make([]float64, 0, t*(len(header)-1))
	for col := 0; col < t; col++ {
		for i, name := range header {
			if i == controlIdx {
				continue
			}
			data = append(data, cols[i][col])
			if col == 0 {
				keepNames = append(keepNames, name)
			}
		}
	}

	return mat.NewDense(t, len(header)-1, data), cols[controlIdx], keepNames, nil
}

// Package table reads and writes the Parameter Table Store: the
// tabular sample file exchanged with the external simulator.
package table

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	smc "github.com/grainlearn/smc-go"
	"gonum.org/v1/gonum/mat"
)

// Read parses a parameter table with the given column count P. Each
// data line is a sample key followed by P floats; the header line and
// any line starting with "!" are stripped.
func Read(path string, p int) (keys []int, x *mat.Dense, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var data []float64
	sc := bufio.NewScanner(f)
	header := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		if header {
			header = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != p+1 {
			return nil, nil, &smc.InvalidSpecError{Reason: fmt.Sprintf("table %s row has %d fields, want %d", path, len(fields), p+1)}
		}
		key, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, &smc.InvalidSpecError{Reason: "non-integer sample key " + fields[0]}
		}
		keys = append(keys, key)
		for _, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, nil, &smc.InvalidSpecError{Reason: "non-numeric field " + f}
			}
			data = append(data, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}

	return keys, mat.NewDense(len(keys), p, data), nil
}

// Write serializes X to path, assigning keys 0..N-1 in row order.
func Write(path string, names []string, x *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "key %s\n", strings.Join(names, " "))

	n, p := x.Dims()
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%d", i)
		for j := 0; j < p; j++ {
			fmt.Fprintf(w, " %s", strconv.FormatFloat(x.At(i, j), 'g', -1, 64))
		}
		w.WriteString("\n")
	}

	return w.Flush()
}

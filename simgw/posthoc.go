package simgw

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	smc "github.com/grainlearn/smc-go"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// PostHocReader scans work_dir/Sim_<iteration>/ for files the external
// simulator already produced and assembles them into a Tensor. Each
// file name must encode the sample key and the sample's parameter
// values: "<simName>_<key>_<p1>_..._<pP>.<ext>", the convention the
// reference driver writes when it invokes the simulator in batch.
type PostHocReader struct {
	// SimName is the substring every output file name must contain.
	SimName string
	// Steps is the number of assimilation steps T each output file is
	// expected to carry as rows.
	Steps int
	// Channels is the number of observation channels M each file is
	// expected to carry as columns.
	Channels int
	// Workers bounds how many files are parsed concurrently; 0 uses a
	// single worker.
	Workers int
}

// Populate implements Gateway. It fails fast with ErrMissingSimulation
// if the iteration's directory does not exist yet (the human-in-the-
// loop case: the caller should return to the user and re-invoke once
// the external run finishes).
func (r *PostHocReader) Populate(ctx context.Context, x *mat.Dense, iteration int, workDir string) (*Tensor, error) {
	n, p := x.Dims()

	dir := filepath.Join(workDir, fmt.Sprintf("Sim_%d", iteration))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", smc.ErrMissingSimulation, dir)
		}
		return nil, err
	}

	files := make(map[int]string, n)
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), r.SimName) {
			continue
		}
		key, err := decodeKey(e.Name())
		if err != nil {
			continue
		}
		files[key] = filepath.Join(dir, e.Name())
	}

	for i := 0; i < n; i++ {
		if _, ok := files[i]; !ok {
			return nil, fmt.Errorf("%w: %s", smc.ErrMissingSimulation, dir)
		}
	}

	steps := make([]*mat.Dense, r.Steps)
	for t := range steps {
		steps[t] = mat.NewDense(n, r.Channels, nil)
	}

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for key, path := range files {
		key, path := key, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := r.parseFile(path)
			if err != nil {
				return err
			}
			if len(rows) != r.Steps {
				return &smc.SampleMismatchError{Key: key, Reason: fmt.Sprintf("expected %d rows, got %d", r.Steps, len(rows))}
			}
			want := make([]float64, p)
			mat.Row(want, key, x)
			if err := checkParamsEncoded(key, path, want); err != nil {
				return err
			}
			for t, row := range rows {
				if len(row) != r.Channels {
					return &smc.SampleMismatchError{Key: key, Reason: fmt.Sprintf("expected %d channels, got %d", r.Channels, len(row))}
				}
				for j, v := range row {
					steps[t].Set(key, j, v)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Tensor{Steps: steps}, nil
}

func (r *PostHocReader) parseFile(path string) ([][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows [][]float64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, &smc.InvalidSpecError{Reason: "non-numeric field in " + path}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeKey extracts the integer sample key, the token immediately
// following SimName in the underscore-separated file stem.
func decodeKey(name string) (int, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	fields := strings.Split(stem, "_")
	for i, f := range fields {
		if i == 0 {
			continue
		}
		if key, err := strconv.Atoi(f); err == nil {
			return key, nil
		}
	}
	return 0, fmt.Errorf("no sample key found in %s", name)
}

// checkParamsEncoded verifies the last len(want) underscore-separated
// numeric tokens of name's stem match want within 1e-10 relative
// tolerance. key names the sample the mismatch is reported against.
func checkParamsEncoded(key int, path string, want []float64) error {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	fields := strings.Split(stem, "_")
	if len(fields) < len(want) {
		return &smc.SampleMismatchError{Key: key, Reason: "file name " + name + " has too few parameter tokens"}
	}
	tail := fields[len(fields)-len(want):]
	got := make([]float64, len(want))
	for i, f := range tail {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return &smc.SampleMismatchError{Key: key, Reason: "file name " + name + " parameter token is non-numeric"}
		}
		got[i] = v
	}
	for i := range want {
		denom := want[i]
		if denom == 0 {
			denom = 1
		}
		if math.Abs(got[i]-want[i])/math.Abs(denom) > 1e-10 {
			return &smc.SampleMismatchError{Key: key, Reason: fmt.Sprintf("file name %s encodes %v, sample expects %v", name, got, want)}
		}
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	assert := assert.New(t)

	path := writeConfig(t, `
parameters:
  a: [0, 1]
  b: [0, 1]
measurements:
  stress:
    data: 1
    solver_id: "./sim -fit identity1"
n_iterations: 3
n_steps: 1
ess_target: 0.2
sigma_max: 1.0
work_dir: /tmp/smc-run
`)

	c, err := Load(path)
	assert.NoError(err)
	assert.Equal(20, c.NSamples)
	assert.Equal("max_scaled", c.CovariancePolicy)
	assert.Equal("info", c.LogLevel)
	assert.Equal(1, c.Workers)
	assert.Equal(1e-3, c.SigmaMin)
	assert.Equal([]float64{1}, []float64(c.Measurements["stress"].Data))
}

func TestLoadScalarAndSequenceMeasurementFields(t *testing.T) {
	assert := assert.New(t)

	path := writeConfig(t, `
parameters:
  a: [0, 4]
measurements:
  m1:
    data: 1
    weight: 2
  m2:
    data: [2, 3]
    weight: [1, 1]
n_iterations: 1
n_steps: 1
ess_target: 0.3
sigma_max: 1.0
work_dir: /tmp/x
`)

	c, err := Load(path)
	assert.NoError(err)
	assert.Equal([]float64{1}, []float64(c.Measurements["m1"].Data))
	assert.Equal([]float64{2}, []float64(c.Measurements["m1"].Weight))
	assert.Equal([]float64{2, 3}, []float64(c.Measurements["m2"].Data))
	assert.Equal([]float64{1, 1}, []float64(c.Measurements["m2"].Weight))
}

func TestLoadRejectsMissingWorkDir(t *testing.T) {
	assert := assert.New(t)

	path := writeConfig(t, `
parameters:
  a: [0, 1]
measurements:
  m1:
    data: 1
n_iterations: 1
n_steps: 1
ess_target: 0.2
sigma_max: 1.0
`)

	_, err := Load(path)
	assert.Error(err)
}

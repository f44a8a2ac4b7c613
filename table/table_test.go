package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestWriteReadRoundTrip(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(3, 2, []float64{
		0.1, 0.2,
		0.3, 0.4,
		0.5, 0.6,
	})

	dir := t.TempDir()
	p := filepath.Join(dir, "smc_table0.txt")
	assert.NoError(Write(p, []string{"a", "b"}, x))

	keys, got, err := Read(p, 2)
	assert.NoError(err)
	assert.Equal([]int{0, 1, 2}, keys)
	assert.True(mat.EqualApprox(x, got, 1e-12))
}

func TestReadStripsCommentsAndHeader(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	p := filepath.Join(dir, "table.txt")
	contents := "! produced by iteration 0\nkey a b\n0 1.0 2.0\n! mid-file comment\n1 3.0 4.0\n"
	assert.NoError(os.WriteFile(p, []byte(contents), 0o644))

	keys, x, err := Read(p, 2)
	assert.NoError(err)
	assert.Equal([]int{0, 1}, keys)
	r, c := x.Dims()
	assert.Equal(2, r)
	assert.Equal(2, c)
	assert.Equal(4.0, x.At(1, 1))
}

func TestReadFieldCountMismatch(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	p := filepath.Join(dir, "table.txt")
	assert.NoError(os.WriteFile(p, []byte("key a b\n0 1.0\n"), 0o644))

	_, _, err := Read(p, 2)
	assert.Error(err)
}

package halton

import (
	"context"
	"testing"

	"github.com/grainlearn/smc-go/param"
	"github.com/stretchr/testify/assert"
)

func TestSequenceInUnitCube(t *testing.T) {
	assert := assert.New(t)

	seq, err := Sequence(context.Background(), 20, 3)
	assert.NoError(err)
	r, c := seq.Dims()
	assert.Equal(20, r)
	assert.Equal(3, c)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := seq.At(i, j)
			assert.GreaterOrEqual(v, 0.0)
			assert.Less(v, 1.0)
		}
	}
}

func TestSequenceDeterministic(t *testing.T) {
	assert := assert.New(t)

	a, err := Sequence(context.Background(), 10, 2)
	assert.NoError(err)
	b, err := Sequence(context.Background(), 10, 2)
	assert.NoError(err)

	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.Equal(a.At(i, j), b.At(i, j))
		}
	}
}

func TestBootstrapWithinBounds(t *testing.T) {
	assert := assert.New(t)

	spec, err := param.New(map[string][2]float64{"a": {1, 2}, "b": {-1, 1}}, []string{"a", "b"})
	assert.NoError(err)

	x, err := Bootstrap(context.Background(), spec, 50)
	assert.NoError(err)

	n, _ := x.Dims()
	for i := 0; i < n; i++ {
		assert.True(spec.InBounds(0, x.At(i, 0)))
		assert.True(spec.InBounds(1, x.At(i, 1)))
	}
}

func TestSequenceTooManyDimensions(t *testing.T) {
	assert := assert.New(t)

	_, err := Sequence(context.Background(), 5, 1000)
	assert.Error(err)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackageDefaultsCompute(t *testing.T) {
	d := DefaultPackageDefaults

	one := d.Compute(1, DimensionOverrides{})
	assert.Equal(t, PackageDimensions{WeightKg: 0.5, LengthCm: 30, BreadthCm: 25, HeightCm: 5}, one)

	three := d.Compute(3, DimensionOverrides{})
	assert.InDelta(t, 1.5, three.WeightKg, 1e-9)
	assert.InDelta(t, 10, three.HeightCm, 1e-9)

	four := d.Compute(4, DimensionOverrides{})
	assert.InDelta(t, 10, four.HeightCm, 1e-9)

	assert.Equal(t, one, d.Compute(0, DimensionOverrides{}), "non-positive counts are treated as one item")
}

func TestPackageDefaultsOverrides(t *testing.T) {
	w, h := 2.0, 12.0
	got := DefaultPackageDefaults.Compute(2, DimensionOverrides{WeightKg: &w, HeightCm: &h})
	assert.Equal(t, 2.0, got.WeightKg)
	assert.Equal(t, 12.0, got.HeightCm)
	assert.Equal(t, 30.0, got.LengthCm)
	assert.Equal(t, 25.0, got.BreadthCm)
}

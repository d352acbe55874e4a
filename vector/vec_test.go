package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

//Vector module testing
func TestVecAdd(t *testing.T) {
	x := Vec3{1, 1, 1}
	y := NewVec3(1)
	assert.Equal(t, Vec3{2, 2, 2}, x.Add(y))
}

func TestVecDot(t *testing.T) {
	x := Vec3{1, 2, 3}
	y := Vec3{1, 1, 1}
	assert.Equal(t, 6.0, x.Dot(y))
}

func TestNormalizeZero(t *testing.T) {
	assert.Equal(t, Vec3{}, Normalize(Vec3{}))
	n := Normalize(Vec3{3, 0, 4})
	assert.InDelta(t, 1.0, Length(n), 1e-12)
	assert.InDelta(t, 0.6, n[0], 1e-12)
}

func TestProjTan(t *testing.T) {
	a := Vec3{1, 2, 3}
	n := Vec3{0, 2, 0}

	p := Proj(a, n)
	assert.Equal(t, Vec3{0, 2, 0}, p)

	tan := Tan(a, n)
	assert.Equal(t, Vec3{1, 0, 3}, tan)
	assert.InDelta(t, 0.0, tan.Dot(n), 1e-12)

	assert.Equal(t, Vec3{}, Proj(a, Vec3{}))
}

func TestReflect(t *testing.T) {
	v := Vec3{1, -1, 0}
	n := Vec3{0, 1, 0}
	assert.Equal(t, Vec3{1, 1, 0}, Reflect(n, v))
	assert.Equal(t, v, Reflect(Vec3{}, v))
}

func TestDistance(t *testing.T) {
	a := Vec3{1, 1, 1}
	b := Vec3{1, 4, 5}
	assert.Equal(t, 5.0, Distance(a, b))
	assert.Equal(t, 25.0, DistanceSquared(a, b))
}

func TestIsFinite(t *testing.T) {
	table := []struct {
		v  Vec3
		ok bool
	}{
		{Vec3{1, 2, 3}, true},
		{Vec3{math.NaN(), 0, 0}, false},
		{Vec3{0, math.Inf(1), 0}, false},
		{Vec3{0, 0, math.Inf(-1)}, false},
	}

	for i, test := range table {
		assert.Equal(t, test.ok, IsFinite(test.v), "case %d", i)
	}
}

func TestMinMaxLerp(t *testing.T) {
	a := Vec3{0, 5, -1}
	b := Vec3{2, 1, 3}
	assert.Equal(t, Vec3{0, 1, -1}, Min(a, b))
	assert.Equal(t, Vec3{2, 5, 3}, Max(a, b))
	assert.Equal(t, Vec3{1, 3, 1}, Lerp(a, b, 0.5))
	assert.Equal(t, Vec3{1, 1, 0}, Flatten(Vec3{1, 1, 7}))
	assert.Equal(t, Vec3{1, 2, 3}, Abs(Vec3{-1, 2, -3}))
}

package utils

import (
	"fmt"
	"math"

	V "diesel.com/sph/vector"
	"github.com/go-gl/mathgl/mgl32"
)

//Application Specific Positional Data Transfer. Packs positions as x,y,z
//float32 triples for a graphics vertex buffer, reusing dst when it is large enough
func TransferPositionData(dst []float32, pos []V.Vec3) []float32 {
	n := 3 * len(pos)
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i, p := range pos {
		dst[3*i] = float32(p[0])
		dst[3*i+1] = float32(p[1])
		dst[3*i+2] = float32(p[2])
	}
	return dst
}

//TransferScalarData packs a per particle channel for a color attribute
func TransferScalarData(dst []float32, values []float64) []float32 {
	if cap(dst) < len(values) {
		dst = make([]float32, len(values))
	}
	dst = dst[:len(values)]
	for i, v := range values {
		dst[i] = float32(v)
	}
	return dst
}

//Scales packed positions around an origin
func ScalePositions(buf []float32, origin mgl32.Vec3, scale float32) error {
	if len(buf)%3 != 0 {
		return fmt.Errorf("Position buffer length %d is not a multiple of 3", len(buf))
	}
	for i := 0; i < len(buf); i += 3 {
		v := mgl32.Vec3{buf[i], buf[i+1], buf[i+2]}
		v = v.Sub(origin).Mul(scale).Add(origin)
		buf[i], buf[i+1], buf[i+2] = v[0], v[1], v[2]
	}
	return nil
}

//FitTransform maps the box [lower, upper] into the [-1, 1] view cube
//centered on the origin, keeping its aspect ratio
func FitTransform(lower, upper V.Vec3) mgl32.Mat4 {
	extent := upper.Sub(lower)
	longest := math.Max(extent[0], math.Max(extent[1], extent[2]))
	if longest <= 0 {
		longest = 1
	}
	center := lower.Add(upper).Mul(0.5)
	s := float32(2 / longest)
	return mgl32.Scale3D(s, s, s).Mul4(
		mgl32.Translate3D(-float32(center[0]), -float32(center[1]), -float32(center[2])))
}

//Normalize data to [0, 1] between lo and hi for colormaps
func Normalize(values []float32, lo, hi float32) {
	span := hi - lo
	for i, v := range values {
		if span <= 0 {
			values[i] = 0
			continue
		}
		values[i] = mgl32.Clamp((v-lo)/span, 0, 1)
	}
}

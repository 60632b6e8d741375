package gpu

import (
	"math"
	"testing"
	"unsafe"

	"github.com/gekko3d/meshfield/fieldrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferSize(t *testing.T) {
	assert.Equal(t, uint64(16), bufferSize(0))
	assert.Equal(t, uint64(16), bufferSize(12))
	assert.Equal(t, uint64(20), bufferSize(17))
	assert.Equal(t, uint64(2400), bufferSize(2400))
}

func TestFloat32Bytes(t *testing.T) {
	assert.Nil(t, float32Bytes(nil))

	b := float32Bytes([]float32{1, -2})
	require.Len(t, b, 8)
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	assert.Equal(t, math.Float32bits(1), bits)
}

func TestLayoutsMatchShaders(t *testing.T) {
	assert.Equal(t, uintptr(24), unsafe.Sizeof(SurfaceVertex{}))
	assert.Equal(t, uintptr(144), unsafe.Sizeof(SurfaceUniforms{}))
	assert.Equal(t, uintptr(32), unsafe.Sizeof(core.TextVertex{}))

	m := mgl32.Ident4()
	assert.Len(t, structBytes(&m), cameraUniformSize)
	assert.Len(t, sliceBytes([]SurfaceVertex{{}, {}}), 48)
	assert.Nil(t, sliceBytes([]uint32{}))
}

func TestSurfaceVertices(t *testing.T) {
	mesh := core.Icosphere(2, 0)
	vs := SurfaceVertices(mesh)
	require.Len(t, vs, len(mesh.Positions))
	for i, v := range vs {
		assert.Equal(t, [3]float32(mesh.Positions[i]), v.Pos)
		assert.InDelta(t, 1, mgl32.Vec3(v.Normal).Len(), 1e-5)
	}

	// Missing normals fall back to the radial direction
	bare := &core.Mesh{Positions: []mgl32.Vec3{{0, 3, 0}}}
	assert.Equal(t, [3]float32{0, 1, 0}, SurfaceVertices(bare)[0].Normal)
}

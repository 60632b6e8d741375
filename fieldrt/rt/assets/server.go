// Package assets hands out uuid-keyed meshes and textures resolved before any GPU work.
package assets

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"os"

	"github.com/gekko3d/meshfield/config"
	"github.com/gekko3d/meshfield/fieldrt/rt/core"

	"github.com/google/uuid"
)

type AssetId string

type TextureFormat uint32

// Values match wgpu.TextureFormat so they can be cast directly.
const (
	TextureFormatR8Unorm    TextureFormat = 0x00000001
	TextureFormatRGBA8Unorm TextureFormat = 0x00000012
)

type TextureAsset struct {
	Texels []uint8
	Width  uint32
	Height uint32
	Format TextureFormat
}

// SurfaceParams describes a procedural constraint mesh.
type SurfaceParams struct {
	Radius       float32
	Subdivisions int
	MajorRadius  float32
	MinorRadius  float32
	Rings        int
	Sides        int
}

func SurfaceParamsFrom(cfg config.SurfaceConfig) SurfaceParams {
	return SurfaceParams{
		Radius:       float32(cfg.Radius),
		Subdivisions: cfg.Subdivisions,
		MajorRadius:  float32(cfg.MajorRadius),
		MinorRadius:  float32(cfg.MinorRadius),
		Rings:        cfg.Rings,
		Sides:        cfg.Sides,
	}
}

type Server struct {
	meshes   map[AssetId]*core.Mesh
	textures map[AssetId]TextureAsset
}

func NewServer() *Server {
	return &Server{
		meshes:   make(map[AssetId]*core.Mesh),
		textures: make(map[AssetId]TextureAsset),
	}
}

func (s *Server) CreateIcosphere(radius float32, subdivisions int) (AssetId, error) {
	if radius <= 0 {
		return "", fmt.Errorf("icosphere radius must be positive, got %g", radius)
	}
	if subdivisions < 0 || subdivisions > 7 {
		return "", fmt.Errorf("icosphere subdivisions %d out of range [0,7]", subdivisions)
	}
	return s.addMesh(core.Icosphere(radius, subdivisions))
}

func (s *Server) CreateTorus(majorRadius, minorRadius float32, rings, sides int) (AssetId, error) {
	if minorRadius <= 0 || majorRadius <= minorRadius {
		return "", fmt.Errorf("torus radii %g/%g: need 0 < minor < major", majorRadius, minorRadius)
	}
	return s.addMesh(core.Torus(majorRadius, minorRadius, rings, sides))
}

// LoadSurface builds the named procedural mesh.
func (s *Server) LoadSurface(kind string, p SurfaceParams) (AssetId, error) {
	switch kind {
	case "icosphere":
		return s.CreateIcosphere(p.Radius, p.Subdivisions)
	case "torus":
		return s.CreateTorus(p.MajorRadius, p.MinorRadius, p.Rings, p.Sides)
	}
	return "", fmt.Errorf("unknown surface kind %q", kind)
}

func (s *Server) addMesh(m *core.Mesh) (AssetId, error) {
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("invalid mesh: %w", err)
	}
	id := makeAssetId()
	s.meshes[id] = m
	return id, nil
}

func (s *Server) Mesh(id AssetId) (*core.Mesh, bool) {
	m, ok := s.meshes[id]
	return m, ok
}

func (s *Server) Texture(id AssetId) (TextureAsset, bool) {
	t, ok := s.textures[id]
	return t, ok
}

func (s *Server) CreateTexture(texels []uint8, width, height uint32, format TextureFormat) (AssetId, error) {
	bpp := uint32(4)
	if format == TextureFormatR8Unorm {
		bpp = 1
	}
	if uint32(len(texels)) != width*height*bpp {
		return "", fmt.Errorf("texture %dx%d needs %d bytes, got %d", width, height, width*height*bpp, len(texels))
	}
	id := makeAssetId()
	s.textures[id] = TextureAsset{Texels: texels, Width: width, Height: height, Format: format}
	return id, nil
}

// LoadTexture decodes a PNG into RGBA8.
func (s *Server) LoadTexture(filename string) (AssetId, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("opening texture: %w", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", filename, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return s.CreateTexture(rgba.Pix, uint32(bounds.Dx()), uint32(bounds.Dy()), TextureFormatRGBA8Unorm)
}

// CreateMatcap generates a lit-sphere texture: a soft key light from the upper left
// over a cool ambient, transparent outside the disc.
func (s *Server) CreateMatcap(size int) (AssetId, error) {
	if size <= 0 {
		return "", fmt.Errorf("matcap size must be positive, got %d", size)
	}
	light := [3]float64{-0.4, 0.6, 0.7}
	ll := math.Sqrt(light[0]*light[0] + light[1]*light[1] + light[2]*light[2])
	for i := range light {
		light[i] /= ll
	}

	texels := make([]uint8, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			nx := (float64(x)+0.5)/float64(size)*2 - 1
			ny := 1 - (float64(y)+0.5)/float64(size)*2
			r2 := nx*nx + ny*ny
			if r2 > 1 {
				continue
			}
			nz := math.Sqrt(1 - r2)

			diffuse := math.Max(0, nx*light[0]+ny*light[1]+nz*light[2])
			// Blinn term against a viewer on +z
			hx, hy, hz := light[0], light[1], light[2]+1
			hl := math.Sqrt(hx*hx + hy*hy + hz*hz)
			specular := math.Pow(math.Max(0, (nx*hx+ny*hy+nz*hz)/hl), 48)
			rim := math.Pow(1-nz, 3) * 0.35

			r := 0.08 + 0.55*diffuse + 0.6*specular + rim*0.6
			g := 0.10 + 0.58*diffuse + 0.6*specular + rim*0.8
			b := 0.16 + 0.65*diffuse + 0.6*specular + rim

			i := (y*size + x) * 4
			texels[i] = toByte(r)
			texels[i+1] = toByte(g)
			texels[i+2] = toByte(b)
			texels[i+3] = 255
		}
	}
	return s.CreateTexture(texels, uint32(size), uint32(size), TextureFormatRGBA8Unorm)
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Min(1, math.Max(0, v)) * 255))
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

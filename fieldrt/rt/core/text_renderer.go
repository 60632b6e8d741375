package core

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const atlasSize = 512

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// TextItem is one line of HUD text. Position is in pixels from the top-left corner.
type TextItem struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type glyphInfo struct {
	uvMin [2]float32
	uvMax [2]float32
	size  [2]float32
	off   [2]float32
	adv   float32
}

// TextRenderer rasterizes printable ASCII into a single-channel atlas.
type TextRenderer struct {
	AtlasImage *image.Alpha
	glyphs     map[rune]glyphInfo
	face       font.Face
}

func NewTextRenderer(fontPath string, fontSize float64) (*TextRenderer, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	return NewTextRendererFromBytes(fontBytes, fontSize)
}

func NewTextRendererFromBytes(fontBytes []byte, fontSize float64) (*TextRenderer, error) {
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating face: %w", err)
	}

	tr := &TextRenderer{
		AtlasImage: image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize)),
		glyphs:     make(map[rune]glyphInfo),
		face:       face,
	}
	tr.packGlyphs()
	return tr, nil
}

func (tr *TextRenderer) packGlyphs() {
	x, y, rowHeight := 2, 2, 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := tr.face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w, h := mask.Bounds().Dx(), mask.Bounds().Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			return
		}

		draw.Draw(tr.AtlasImage, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

		tr.glyphs[r] = glyphInfo{
			uvMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			uvMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			size:  [2]float32{float32(w), float32(h)},
			off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			adv:   float32(adv) / 64.0,
		}

		x += w + 4
		rowHeight = max(rowHeight, h)
	}
}

// BuildVertices appends two triangles per glyph to dst, in NDC for a screenW x screenH target.
func (tr *TextRenderer) BuildVertices(dst []TextVertex, items []TextItem, screenW, screenH int) []TextVertex {
	sw, sh := float32(screenW), float32(screenH)
	metrics := tr.face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			if r == '\n' {
				posX = startX
				posY += lineHeight * item.Scale
				continue
			}
			g, ok := tr.glyphs[r]
			if !ok {
				continue
			}

			x0 := (posX+g.off[0]*item.Scale)/sw*2 - 1
			y0 := 1 - (posY+g.off[1]*item.Scale)/sh*2
			x1 := (posX+(g.off[0]+g.size[0])*item.Scale)/sw*2 - 1
			y1 := 1 - (posY+(g.off[1]+g.size[1])*item.Scale)/sh*2

			dst = append(dst,
				TextVertex{Pos: [2]float32{x0, y0}, UV: g.uvMin, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y1}, UV: g.uvMax, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
			)
			posX += g.adv * item.Scale
		}
	}
	return dst
}

func (tr *TextRenderer) LineHeight(scale float32) float32 {
	if tr == nil {
		return 0
	}
	return float32(tr.face.Metrics().Height.Ceil()) * scale
}

// Measure returns the pixel width of the widest line of text at scale.
func (tr *TextRenderer) Measure(text string, scale float32) float32 {
	if tr == nil {
		return 0
	}
	var width, line float32
	for _, r := range text {
		if r == '\n' {
			line = 0
			continue
		}
		if g, ok := tr.glyphs[r]; ok {
			line += g.adv * scale
			width = max(width, line)
		}
	}
	return width
}

package ui

import (
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Glyph is one rasterized glyph's placement metrics: the data a text
// layout needs, never how it was produced. Rasterization (TTF
// decoding, atlas packing) is explicitly out of the core's scope —
// Font is consumed as a pure lookup table, grounded on the
// Ascent/Descent/Height shape golang.org/x/image/font.Metrics
// exposes (see Gekko3D-gekko's text_renderer.go, which measures text
// the same way against a font.Face.Metrics() result).
type Glyph struct {
	Advance float32
	OffsetX float32
	OffsetY float32
	Width   float32
	Height  float32
}

// Font is the glyph table plus vertical metrics one text layout pass
// needs. SpriteID identifies the backing atlas texture for the render
// command key's material.texture field.
type Font struct {
	Ascent    float32
	Descent   float32
	LineSpace float32
	Glyphs    map[rune]Glyph
	SpriteID  uint64
}

// Advance returns r's horizontal advance, or 0 for an unknown glyph.
func (f *Font) Advance(r rune) float32 {
	if f == nil {
		return 0
	}
	if g, ok := f.Glyphs[r]; ok {
		return g.Advance
	}
	return 0
}

// LineHeight is the vertical distance between two baselines.
func (f *Font) LineHeight() float32 {
	if f == nil {
		return 0
	}
	return f.Ascent + f.Descent + f.LineSpace
}

// NewFontFromFace builds a Font's vertical metrics and per-glyph
// advance/bounds table from a face's measurements, for every rune in
// runes. Rasterization and atlas packing stay out of the core's scope
// (spec §1); this only consumes the metrics shape golang.org/x/image's
// font.Face already exposes.
func NewFontFromFace(face font.Face, runes []rune, spriteID uint64) *Font {
	m := face.Metrics()
	f := &Font{
		Ascent:    fixedToFloat(m.Ascent),
		Descent:   fixedToFloat(m.Descent),
		LineSpace: fixedToFloat(m.Height - m.Ascent - m.Descent),
		Glyphs:    make(map[rune]Glyph, len(runes)),
		SpriteID:  spriteID,
	}
	for _, r := range runes {
		advance, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		g := Glyph{Advance: fixedToFloat(advance)}
		if bounds, _, ok := face.GlyphBounds(r); ok {
			g.OffsetX = fixedToFloat(bounds.Min.X)
			g.OffsetY = fixedToFloat(bounds.Min.Y)
			g.Width = fixedToFloat(bounds.Max.X - bounds.Min.X)
			g.Height = fixedToFloat(bounds.Max.Y - bounds.Min.Y)
		}
		f.Glyphs[r] = g
	}
	return f
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

package ui

import "math"

// PositionedGlyph is one glyph placed within a text layout's line.
type PositionedGlyph struct {
	Codepoint rune
	XOffset   float32
}

// TextLine is one laid-out line: its glyph stream and total pixel
// width.
type TextLine struct {
	Glyphs []PositionedGlyph
	Width  float32
}

// TextLayout is the word-wrapped result of laying text out against a
// font and a maximum line width. Size is the layout's bounding box,
// used directly as a node's computed size when its semantic size type
// is SizeText.
type TextLayout struct {
	Lines []TextLine
	Size  [2]float32
}

// LayoutText breaks text into lines no wider than maxWidth, breaking
// only at word boundaries (runs of whitespace); pass
// math.MaxFloat32-shaped maxWidth to disable wrapping (the
// TextAllowOverflow case). A nil font measures every glyph as
// zero-width, so callers without a loaded font still get a stable
// single-line layout.
func LayoutText(font *Font, text string, maxWidth float32) *TextLayout {
	if maxWidth <= 0 {
		maxWidth = math.MaxFloat32
	}

	layout := &TextLayout{}
	var curLine []PositionedGlyph
	var curWidth float32
	var wordStart int // index into curLine where the current word begins
	var wordStartWidth float32

	flushLine := func() {
		layout.Lines = append(layout.Lines, TextLine{Glyphs: curLine, Width: curWidth})
		if curWidth > layout.Size[0] {
			layout.Size[0] = curWidth
		}
		curLine = nil
		curWidth = 0
		wordStart = 0
		wordStartWidth = 0
	}

	for _, r := range text {
		if r == '\n' {
			flushLine()
			continue
		}

		adv := font.Advance(r)
		if r == ' ' || r == '\t' {
			wordStart = len(curLine) + 1
			wordStartWidth = curWidth + adv
		} else if curWidth+adv > maxWidth && len(curLine) > 0 {
			// Break at the last recorded word boundary if one exists
			// within this line; otherwise break right here (a single
			// word longer than maxWidth).
			if wordStart > 0 && wordStart < len(curLine) {
				rest := append([]PositionedGlyph(nil), curLine[wordStart:]...)
				restWidth := curWidth - wordStartWidth
				curLine = curLine[:wordStart]
				curWidth = wordStartWidth
				flushLine()
				for i := range rest {
					rest[i].XOffset -= wordStartWidth
				}
				curLine = rest
				curWidth = restWidth
			} else {
				flushLine()
			}
		}

		curLine = append(curLine, PositionedGlyph{Codepoint: r, XOffset: curWidth})
		curWidth += adv
	}
	flushLine()

	lineHeight := font.LineHeight()
	layout.Size[1] = lineHeight * float32(len(layout.Lines))
	return layout
}

package stain

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/chewxy/math32"
	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
)

// LaidGlyph is a shaped glyph in text-local space. X is the pen position on
// the line, Y the top of the line the glyph sits on.
type LaidGlyph struct {
	Index GlyphIndex
	X, Y  float32
}

// TextShaper is the text-shaping service the compiler delegates to.
type TextShaper interface {
	// Shape positions the glyphs of t inside a box of the given size.
	// A width of zero disables wrapping; a height of zero disables the
	// vertical cutoff.
	Shape(t Text, width, height float32) []LaidGlyph
	// Measure returns the size t occupies when wrapped at width.
	Measure(t Text, width float32) Size
	// Advances returns the glyph indices and horizontal advances of content
	// shaped at fontSize, without wrapping.
	Advances(content string, fontSize float32) ([]GlyphIndex, []float32)
	// FontData returns the raw font file the glyph indices refer to.
	FontData() []byte
}

// GoTextShaper shapes text with go-text/typesetting's HarfBuzz port.
// It is safe for concurrent use; calls are serialized internally because
// font.Face and HarfbuzzShaper carry mutable state.
type GoTextShaper struct {
	mu     sync.Mutex
	data   []byte
	face   *font.Face
	shaper shaping.HarfbuzzShaper
}

// NewGoTextShaper parses a TrueType or OpenType font.
func NewGoTextShaper(fontData []byte) (*GoTextShaper, error) {
	face, err := font.ParseTTF(bytes.NewReader(fontData))
	if err != nil {
		return nil, fmt.Errorf("stain: failed to parse font data: %w", err)
	}
	return &GoTextShaper{data: fontData, face: face}, nil
}

var (
	defaultShaperOnce sync.Once
	defaultShaper     *GoTextShaper
)

// DefaultShaper returns a shared shaper for the Go Regular font.
func DefaultShaper() *GoTextShaper {
	defaultShaperOnce.Do(func() {
		s, err := NewGoTextShaper(goregular.TTF)
		if err != nil {
			panic("stain: embedded font is invalid: " + err.Error())
		}
		defaultShaper = s
	})
	return defaultShaper
}

// FontData returns the font file used for shaping.
func (s *GoTextShaper) FontData() []byte {
	return s.data
}

// Shape implements TextShaper.
func (s *GoTextShaper) Shape(t Text, width, height float32) []LaidGlyph {
	glyphs, _ := s.layout(t, width, height)
	return glyphs
}

// Measure implements TextShaper.
func (s *GoTextShaper) Measure(t Text, width float32) Size {
	_, size := s.layout(t, width, 0)
	return size
}

// Advances implements TextShaper.
func (s *GoTextShaper) Advances(content string, fontSize float32) ([]GlyphIndex, []float32) {
	runes := []rune(norm.NFC.String(content))
	s.mu.Lock()
	glyphs := s.shapeRunes(runes, fontSize)
	s.mu.Unlock()

	indices := make([]GlyphIndex, len(glyphs))
	advances := make([]float32, len(glyphs))
	for i, g := range glyphs {
		indices[i] = GlyphIndex(g.GlyphID)
		advances[i] = fixedToFloat(g.XAdvance)
	}
	return indices, advances
}

// layout shapes every paragraph of t, wraps it at width, and stacks the
// lines lineHeight apart.
func (s *GoTextShaper) layout(t Text, width, height float32) ([]LaidGlyph, Size) {
	if t.Content == "" || t.FontSize <= 0 {
		return nil, Size{}
	}
	lh := t.lineHeight()
	content := norm.NFC.String(t.Content)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []LaidGlyph
	var maxW, lineY float32
	for _, para := range strings.Split(content, "\n") {
		runes := []rune(para)
		glyphs := s.shapeRunes(runes, t.FontSize)
		for _, line := range wrapGlyphs(runes, glyphs, width) {
			if height > 0 && lineY >= height {
				return out, Size{maxW, lineY}
			}
			var pen float32
			for _, g := range line {
				out = append(out, LaidGlyph{
					Index: GlyphIndex(g.GlyphID),
					X:     pen + fixedToFloat(g.XOffset),
					Y:     lineY - fixedToFloat(g.YOffset),
				})
				pen += fixedToFloat(g.XAdvance)
			}
			maxW = math32.Max(maxW, pen)
			lineY += lh
		}
	}
	return out, Size{maxW, lineY}
}

// shapeRunes runs HarfBuzz over one paragraph. Callers hold s.mu.
func (s *GoTextShaper) shapeRunes(runes []rune, size float32) []shaping.Glyph {
	if len(runes) == 0 {
		return nil
	}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      s.face,
		Size:      floatToFixed(size),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}
	return s.shaper.Shape(input).Glyphs
}

// wrapGlyphs splits a shaped paragraph into lines no wider than width,
// breaking after the last whitespace that fits. A single word wider than
// width is broken at the glyph that overflows. A width of zero disables
// wrapping. An empty paragraph yields one empty line.
func wrapGlyphs(runes []rune, glyphs []shaping.Glyph, width float32) [][]shaping.Glyph {
	if width <= 0 || len(glyphs) == 0 {
		return [][]shaping.Glyph{glyphs}
	}
	var lines [][]shaping.Glyph
	start, breakAt := 0, -1
	var pen float32
	for i := range glyphs {
		adv := fixedToFloat(glyphs[i].XAdvance)
		if pen+adv > width && i > start {
			cut := i
			if breakAt > start {
				cut = breakAt
			}
			lines = append(lines, glyphs[start:cut])
			start, breakAt = cut, -1
			pen = 0
			for j := start; j < i; j++ {
				pen += fixedToFloat(glyphs[j].XAdvance)
			}
		}
		pen += adv
		if c := glyphs[i].ClusterIndex; c < len(runes) && unicode.IsSpace(runes[c]) {
			breakAt = i + 1
		}
	}
	return append(lines, glyphs[start:])
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func floatToFixed(v float32) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

package stain

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/chewxy/math32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// blendMask keeps the destination only where the source has alpha.
var blendMask = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorZero,
	BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
	BlendFactorDestinationRGB:   ebiten.BlendFactorSourceAlpha,
	BlendFactorDestinationAlpha: ebiten.BlendFactorSourceAlpha,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

// maxBatchVertices keeps a glyph batch within uint16 index range.
const maxBatchVertices = 60000

// maxShadowTextures bounds the blurred shadow cache.
const maxShadowTextures = 64

var (
	solidImage    *ebiten.Image
	solidSubImage *ebiten.Image
)

// solidSource returns a white texture for vertex-colored triangles. The 1px
// border keeps linear filtering from sampling outside the white area.
func solidSource() *ebiten.Image {
	if solidSubImage == nil {
		solidImage = ebiten.NewImage(3, 3)
		solidImage.Fill(color.White)
		solidSubImage = solidImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	return solidSubImage
}

type fontInstance struct {
	font FontKey
	size float32
}

type glyphKey struct {
	instance FontInstanceKey
	index    GlyphIndex
}

// glyphMesh is a glyph outline triangulated at the origin of its baseline.
type glyphMesh struct {
	vs []ebiten.Vertex
	is []uint16
}

type shadowKey struct {
	w, h   int
	blur   float32
	radius BorderRadius
}

// rasterizer owns the GPU-side resource tables and draws transactions.
// It must only be used from the ebiten game loop.
type rasterizer struct {
	images    map[ImageKey]*ebiten.Image
	fonts     map[FontKey]*sfnt.Font
	instances map[FontInstanceKey]fontInstance
	glyphs    map[glyphKey]*glyphMesh
	shadows   map[shadowKey]*ebiten.Image

	sfntBuf sfnt.Buffer
	pool    renderTexturePool
	vs      []ebiten.Vertex
	is      []uint16
}

func newRasterizer() *rasterizer {
	return &rasterizer{
		images:    make(map[ImageKey]*ebiten.Image),
		fonts:     make(map[FontKey]*sfnt.Font),
		instances: make(map[FontInstanceKey]fontInstance),
		glyphs:    make(map[glyphKey]*glyphMesh),
		shadows:   make(map[shadowKey]*ebiten.Image),
	}
}

// apply performs resource registrations in order.
func (r *rasterizer) apply(updates []ResourceUpdate) error {
	for _, u := range updates {
		switch u.Kind {
		case ResourceAddImage:
			d := u.Descriptor
			if len(u.Pixels) != d.Width*d.Height*4 {
				return fmt.Errorf("stain: image %d has %d bytes of pixels, want %d", u.Image, len(u.Pixels), d.Width*d.Height*4)
			}
			src := &image.RGBA{Pix: u.Pixels, Stride: 4 * d.Width, Rect: image.Rect(0, 0, d.Width, d.Height)}
			if old := r.images[u.Image]; old != nil {
				old.Deallocate()
			}
			r.images[u.Image] = ebiten.NewImageFromImage(src)
		case ResourceDeleteImage:
			if img := r.images[u.Image]; img != nil {
				img.Deallocate()
				delete(r.images, u.Image)
			}
		case ResourceAddFont:
			f, err := sfnt.Parse(u.FontData)
			if err != nil {
				return fmt.Errorf("stain: failed to parse font %d: %w", u.Font, err)
			}
			r.fonts[u.Font] = f
		case ResourceAddFontInstance:
			if _, ok := r.fonts[u.Font]; !ok {
				return fmt.Errorf("stain: font instance %d refers to unknown font %d", u.FontInstance, u.Font)
			}
			r.instances[u.FontInstance] = fontInstance{font: u.Font, size: u.Size}
		}
	}
	return nil
}

// validate checks every reference in the display list before anything is
// drawn, so a bad transaction leaves the target untouched.
func (r *rasterizer) validate(tx *Transaction) error {
	for i := range tx.DisplayList {
		p := &tx.DisplayList[i]
		if p.Clip != NoClip {
			if _, ok := lookupClip(tx.Clips, p.Clip); !ok {
				return fmt.Errorf("stain: primitive %d uses undefined clip %d", i, p.Clip)
			}
		}
		switch p.Kind {
		case PrimitiveImage:
			if r.images[p.Image] == nil {
				return fmt.Errorf("stain: primitive %d uses unknown image %d", i, p.Image)
			}
		case PrimitiveText:
			if _, ok := r.instances[p.Font]; !ok {
				return fmt.Errorf("stain: primitive %d uses unknown font instance %d", i, p.Font)
			}
		}
	}
	return nil
}

// draw rasterizes tx into dst, which is filled with bg first. Consecutive
// primitives that share a clip are drawn into one offscreen layer and masked
// by the clip's rounded rectangle before compositing.
func (r *rasterizer) draw(dst *ebiten.Image, tx *Transaction, bg Color) error {
	if err := r.apply(tx.Resources); err != nil {
		return err
	}
	if err := r.validate(tx); err != nil {
		return err
	}

	dst.Fill(bg.toRGBA())
	b := dst.Bounds()
	prims := tx.DisplayList
	for i := 0; i < len(prims); {
		clip := prims[i].Clip
		// A shadow lies outside its own box, so the clip a rounded surface
		// defines over itself would hide it completely. It is drawn unclipped.
		if region, ok := lookupClip(tx.Clips, clip); ok && prims[i].Kind == PrimitiveBoxShadow && region.Rect == prims[i].Rect {
			r.drawPrimitive(dst, &prims[i])
			i++
			continue
		}
		j := i + 1
		for j < len(prims) && prims[j].Clip == clip {
			j++
		}
		if clip == NoClip {
			for k := i; k < j; k++ {
				r.drawPrimitive(dst, &prims[k])
			}
		} else {
			region, _ := lookupClip(tx.Clips, clip)
			layer := r.pool.Acquire(b.Dx(), b.Dy())
			for k := i; k < j; k++ {
				r.drawPrimitive(layer, &prims[k])
			}
			mask := r.pool.Acquire(b.Dx(), b.Dy())
			r.fillRoundedRect(mask, region.Rect, region.Radius, ColorWhite, ebiten.BlendSourceOver)
			layer.DrawImage(mask, &ebiten.DrawImageOptions{Blend: blendMask})
			dst.DrawImage(layer, nil)
			r.pool.Release(mask)
			r.pool.Release(layer)
		}
		i = j
	}
	return nil
}

func (r *rasterizer) drawPrimitive(dst *ebiten.Image, p *Primitive) {
	switch p.Kind {
	case PrimitiveBoxShadow:
		r.drawShadow(dst, p)
	case PrimitiveRect:
		r.fillRoundedRect(dst, p.Rect, p.Radius, p.Color, ebiten.BlendSourceOver)
	case PrimitiveImage:
		r.drawImage(dst, p)
	case PrimitiveText:
		r.drawText(dst, p)
	case PrimitiveBorder:
		r.drawBorder(dst, p)
	}
}

// --- Paths ---

// appendRoundedRect adds a closed rounded rectangle subpath to path.
func appendRoundedRect(path *vector.Path, rect Rect, radius BorderRadius) {
	rad := clampRadius(rect, radius)
	x0, y0 := rect.X, rect.Y
	x1, y1 := rect.X+rect.Width, rect.Y+rect.Height

	corner := func(cx, cy, nx, ny, r float32) {
		if r > 0 {
			path.ArcTo(cx, cy, nx, ny, r)
		} else {
			path.LineTo(cx, cy)
		}
	}
	path.MoveTo(x0+rad.TopLeft, y0)
	path.LineTo(x1-rad.TopRight, y0)
	corner(x1, y0, x1, y0+rad.TopRight, rad.TopRight)
	path.LineTo(x1, y1-rad.BottomRight)
	corner(x1, y1, x1-rad.BottomRight, y1, rad.BottomRight)
	path.LineTo(x0+rad.BottomLeft, y1)
	corner(x0, y1, x0, y1-rad.BottomLeft, rad.BottomLeft)
	path.LineTo(x0, y0+rad.TopLeft)
	corner(x0, y0, x0+rad.TopLeft, y0, rad.TopLeft)
	path.Close()
}

// fillPath triangulates path and draws it in c.
func (r *rasterizer) fillPath(dst *ebiten.Image, path *vector.Path, c Color, rule ebiten.FillRule, blend ebiten.Blend) {
	r.vs, r.is = path.AppendVerticesAndIndicesForFilling(r.vs[:0], r.is[:0])
	cr, cg, cb, ca := c.premultiplied()
	for i := range r.vs {
		r.vs[i].SrcX = 1
		r.vs[i].SrcY = 1
		r.vs[i].ColorR = cr
		r.vs[i].ColorG = cg
		r.vs[i].ColorB = cb
		r.vs[i].ColorA = ca
	}
	dst.DrawTriangles(r.vs, r.is, solidSource(), &ebiten.DrawTrianglesOptions{
		FillRule:  rule,
		AntiAlias: true,
		Blend:     blend,
	})
}

func (r *rasterizer) fillRoundedRect(dst *ebiten.Image, rect Rect, radius BorderRadius, c Color, blend ebiten.Blend) {
	if rect.Empty() {
		return
	}
	var path vector.Path
	appendRoundedRect(&path, rect, radius)
	r.fillPath(dst, &path, c, ebiten.FillRuleNonZero, blend)
}

// --- Images ---

func (r *rasterizer) drawImage(dst *ebiten.Image, p *Primitive) {
	img := r.images[p.Image]
	b := img.Bounds()
	if b.Empty() || p.Rect.Empty() {
		return
	}
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM.Scale(float64(p.Rect.Width)/float64(b.Dx()), float64(p.Rect.Height)/float64(b.Dy()))
	op.GeoM.Translate(float64(p.Rect.X), float64(p.Rect.Y))
	dst.DrawImage(img, op)
}

// --- Borders ---

// drawBorder strokes a uniform border as the ring between the outer and the
// inset rounded rectangle. Mixed sides are drawn as one square-cornered
// band per side.
func (r *rasterizer) drawBorder(dst *ebiten.Image, p *Primitive) {
	b := p.Border
	if b.uniform() {
		side := b.Top
		if !side.visible() {
			return
		}
		var path vector.Path
		appendRoundedRect(&path, p.Rect, p.Radius)
		if inner := p.Rect.Inflate(-side.Width, -side.Width); !inner.Empty() {
			appendRoundedRect(&path, inner, shrinkRadius(clampRadius(p.Rect, p.Radius), side.Width))
		}
		r.fillPath(dst, &path, side.Color, ebiten.FillRuleEvenOdd, ebiten.BlendSourceOver)
		return
	}

	x, y, w, h := p.Rect.X, p.Rect.Y, p.Rect.Width, p.Rect.Height
	if s := b.Top; s.visible() {
		r.fillRoundedRect(dst, Rect{x, y, w, s.Width}, BorderRadius{}, s.Color, ebiten.BlendSourceOver)
	}
	if s := b.Right; s.visible() {
		r.fillRoundedRect(dst, Rect{x + w - s.Width, y, s.Width, h}, BorderRadius{}, s.Color, ebiten.BlendSourceOver)
	}
	if s := b.Bottom; s.visible() {
		r.fillRoundedRect(dst, Rect{x, y + h - s.Width, w, s.Width}, BorderRadius{}, s.Color, ebiten.BlendSourceOver)
	}
	if s := b.Left; s.visible() {
		r.fillRoundedRect(dst, Rect{x, y, s.Width, h}, BorderRadius{}, s.Color, ebiten.BlendSourceOver)
	}
}

// --- Shadows ---

// drawShadow paints an outset shadow. The blurred shape is composited in a
// layer from which the surface's own box is erased, so the shadow never
// shows through a translucent background.
func (r *rasterizer) drawShadow(dst *ebiten.Image, p *Primitive) {
	bs := p.Shadow
	box := p.Rect.Translate(bs.Offset).Inflate(bs.Spread, bs.Spread)
	if box.Empty() || bs.Color.A <= 0 {
		return
	}
	pad := int(math32.Ceil(math32.Max(0, bs.Blur)))
	radius := clampRadius(box, p.Radius)
	tex := r.shadowTexture(int(math32.Ceil(box.Width)), int(math32.Ceil(box.Height)), pad, bs.Blur, radius)

	b := dst.Bounds()
	layer := r.pool.Acquire(b.Dx(), b.Dy())
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(box.X)-float64(pad), float64(box.Y)-float64(pad))
	op.ColorScale.Scale(bs.Color.premultiplied())
	layer.DrawImage(tex, op)
	r.fillRoundedRect(layer, p.Rect, p.Radius, ColorWhite, ebiten.BlendDestinationOut)
	dst.DrawImage(layer, nil)
	r.pool.Release(layer)
}

// shadowTexture returns a white rounded box of w x h with pad pixels of
// gaussian falloff on every side.
func (r *rasterizer) shadowTexture(w, h, pad int, sigma float32, radius BorderRadius) *ebiten.Image {
	key := shadowKey{w: w, h: h, blur: sigma, radius: radius}
	if tex := r.shadows[key]; tex != nil {
		return tex
	}
	if len(r.shadows) >= maxShadowTextures {
		for k, tex := range r.shadows {
			tex.Deallocate()
			delete(r.shadows, k)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))
	shape := Rect{float32(pad), float32(pad), float32(w), float32(h)}
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			if roundedRectContains(shape, radius, float32(x)+0.5, float32(y)+0.5) {
				img.SetRGBA(x, y, color.RGBA{0xff, 0xff, 0xff, 0xff})
			}
		}
	}
	var src image.Image = img
	if sigma > 0 {
		src = blur.Gaussian(img, float64(sigma)/2)
	}
	tex := ebiten.NewImageFromImage(src)
	r.shadows[key] = tex
	return tex
}

// --- Text ---

func (r *rasterizer) drawText(dst *ebiten.Image, p *Primitive) {
	inst := r.instances[p.Font]
	f := r.fonts[inst.font]
	cr, cg, cb, ca := p.Color.premultiplied()

	vs, is := r.vs[:0], r.is[:0]
	flush := func() {
		if len(is) > 0 {
			dst.DrawTriangles(vs, is, solidSource(), &ebiten.DrawTrianglesOptions{
				FillRule:  ebiten.FillRuleNonZero,
				AntiAlias: true,
			})
		}
		vs, is = vs[:0], is[:0]
	}
	for _, g := range p.Glyphs {
		m := r.glyphMesh(f, p.Font, inst.size, g.Index)
		if len(m.vs) == 0 {
			continue
		}
		if len(vs)+len(m.vs) > maxBatchVertices {
			flush()
		}
		base := uint16(len(vs))
		for _, v := range m.vs {
			v.DstX += g.Point.X
			v.DstY += g.Point.Y
			v.ColorR, v.ColorG, v.ColorB, v.ColorA = cr, cg, cb, ca
			vs = append(vs, v)
		}
		for _, i := range m.is {
			is = append(is, base+i)
		}
	}
	flush()
	r.vs, r.is = vs, is
}

// glyphMesh triangulates a glyph outline once per font instance.
func (r *rasterizer) glyphMesh(f *sfnt.Font, instance FontInstanceKey, size float32, index GlyphIndex) *glyphMesh {
	key := glyphKey{instance: instance, index: index}
	if m := r.glyphs[key]; m != nil {
		return m
	}
	m := &glyphMesh{}
	r.glyphs[key] = m

	segs, err := f.LoadGlyph(&r.sfntBuf, sfnt.GlyphIndex(index), fixed.Int26_6(size*64), nil)
	if err != nil || len(segs) == 0 {
		return m
	}
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X) / 64, float32(p.Y) / 64
	}
	var path vector.Path
	for i, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			if i > 0 {
				path.Close()
			}
			path.MoveTo(pt(s.Args[0]))
		case sfnt.SegmentOpLineTo:
			path.LineTo(pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			cx, cy := pt(s.Args[0])
			x, y := pt(s.Args[1])
			path.QuadTo(cx, cy, x, y)
		case sfnt.SegmentOpCubeTo:
			c1x, c1y := pt(s.Args[0])
			c2x, c2y := pt(s.Args[1])
			x, y := pt(s.Args[2])
			path.CubicTo(c1x, c1y, c2x, c2y, x, y)
		}
	}
	path.Close()
	m.vs, m.is = path.AppendVerticesAndIndicesForFilling(nil, nil)
	for i := range m.vs {
		m.vs[i].SrcX = 1
		m.vs[i].SrcY = 1
	}
	return m
}

// dispose releases every GPU resource.
func (r *rasterizer) dispose() {
	for k, img := range r.images {
		img.Deallocate()
		delete(r.images, k)
	}
	for k, tex := range r.shadows {
		tex.Deallocate()
		delete(r.shadows, k)
	}
}

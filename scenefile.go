package stain

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sceneNode is one surface in a YAML scene document.
//
//	name: card
//	rect: [10, 10, 200, 120]
//	background: "#ffffff"
//	radius: 8            # or [tl, tr, br, bl]
//	border: {width: 1, color: "#ccc"}
//	shadow: {offset: [0, 2], blur: 6, color: "#00000040"}
//	image: photo.png
//	text: {content: Hello, size: 16, color: "#222"}
//	children: [...]
type sceneNode struct {
	Name       string       `yaml:"name"`
	Rect       []float32    `yaml:"rect"`
	Background *Color       `yaml:"background"`
	Radius     *sceneRadius `yaml:"radius"`
	Border     *sceneBorder `yaml:"border"`
	Shadow     *sceneShadow `yaml:"shadow"`
	Image      string       `yaml:"image"`
	Text       *sceneText   `yaml:"text"`
	Children   []*sceneNode `yaml:"children"`
}

type sceneBorder struct {
	Width float32 `yaml:"width"`
	Color Color   `yaml:"color"`
	Style string  `yaml:"style"`
}

type sceneShadow struct {
	Offset []float32 `yaml:"offset"`
	Blur   float32   `yaml:"blur"`
	Spread float32   `yaml:"spread"`
	Color  Color     `yaml:"color"`
}

type sceneText struct {
	Content    string  `yaml:"content"`
	Size       float32 `yaml:"size"`
	LineHeight float32 `yaml:"line_height"`
	Color      *Color  `yaml:"color"`
}

// sceneRadius accepts a single number or a list of four corner radii.
type sceneRadius BorderRadius

func (r *sceneRadius) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var v float32
		if err := n.Decode(&v); err != nil {
			return err
		}
		*r = sceneRadius(UniformRadius(v))
		return nil
	case yaml.SequenceNode:
		var v []float32
		if err := n.Decode(&v); err != nil {
			return err
		}
		if len(v) != 4 {
			return fmt.Errorf("line %d: radius list needs 4 values, got %d", n.Line, len(v))
		}
		*r = sceneRadius{v[0], v[1], v[2], v[3]}
		return nil
	}
	return fmt.Errorf("line %d: radius must be a number or a list", n.Line)
}

// sceneDocument is the top level of a scene file.
type sceneDocument struct {
	Root *sceneNode `yaml:"root"`
}

// LoadScene reads a YAML scene document and returns its root surface and
// the layout table holding every surface's rect. Relative image paths are
// used as written. Errors wrap ErrInvalidScene.
func LoadScene(r io.Reader) (*Surface, LayoutTable, error) {
	return loadScene(r, "")
}

// LoadSceneFile reads a scene document from path. Relative image paths are
// resolved against the document's directory.
func LoadSceneFile(path string) (*Surface, LayoutTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	defer f.Close()
	return loadScene(f, filepath.Dir(path))
}

func loadScene(r io.Reader, baseDir string) (*Surface, LayoutTable, error) {
	var doc sceneDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty document", ErrInvalidScene)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	if doc.Root == nil {
		return nil, nil, fmt.Errorf("%w: missing root", ErrInvalidScene)
	}

	layout := make(LayoutTable)
	root, err := buildSceneNode(doc.Root, "root", baseDir, layout)
	if err != nil {
		return nil, nil, err
	}
	return root, layout, nil
}

// buildSceneNode creates the surface for n and its subtree. path names the
// node in error messages.
func buildSceneNode(n *sceneNode, path, baseDir string, layout LayoutTable) (*Surface, error) {
	if n.Name != "" {
		path = n.Name
	}
	if len(n.Rect) != 4 {
		return nil, fmt.Errorf("%w: %s: rect needs [x, y, width, height]", ErrInvalidScene, path)
	}
	if n.Rect[2] < 0 || n.Rect[3] < 0 {
		return nil, fmt.Errorf("%w: %s: rect size is negative", ErrInvalidScene, path)
	}

	s := NewSurface(n.Name)
	layout.Set(s.ID, Rect{X: n.Rect[0], Y: n.Rect[1], Width: n.Rect[2], Height: n.Rect[3]})

	if n.Background != nil {
		s.SetBackgroundColor(*n.Background)
	}
	if n.Radius != nil {
		s.SetBorderRadius(BorderRadius(*n.Radius))
	}
	if n.Border != nil {
		style, err := parseBorderStyle(n.Border.Style)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidScene, path, err)
		}
		s.SetBorder(UniformBorder(n.Border.Width, n.Border.Color, style))
	}
	if n.Shadow != nil {
		bs := BoxShadow{Blur: n.Shadow.Blur, Spread: n.Shadow.Spread, Color: n.Shadow.Color}
		switch len(n.Shadow.Offset) {
		case 0:
		case 2:
			bs.Offset = Vec2{n.Shadow.Offset[0], n.Shadow.Offset[1]}
		default:
			return nil, fmt.Errorf("%w: %s: shadow offset needs [x, y]", ErrInvalidScene, path)
		}
		s.SetBoxShadow(bs)
	}
	if n.Image != "" {
		src := n.Image
		if baseDir != "" && !filepath.IsAbs(src) {
			src = filepath.Join(baseDir, src)
		}
		s.SetImage(src)
	}
	if n.Text != nil {
		if n.Text.Size <= 0 {
			return nil, fmt.Errorf("%w: %s: text size must be positive", ErrInvalidScene, path)
		}
		t := Text{
			Content:    n.Text.Content,
			FontSize:   n.Text.Size,
			LineHeight: n.Text.LineHeight,
			Color:      Color{A: 1},
		}
		if n.Text.Color != nil {
			t.Color = *n.Text.Color
		}
		s.SetText(t)
	}

	for i, c := range n.Children {
		if c == nil {
			return nil, fmt.Errorf("%w: %s: child %d is empty", ErrInvalidScene, path, i)
		}
		child, err := buildSceneNode(c, fmt.Sprintf("%s/%d", path, i), baseDir, layout)
		if err != nil {
			return nil, err
		}
		s.AppendChild(child)
	}
	return s, nil
}

func parseBorderStyle(s string) (BorderStyle, error) {
	switch s {
	case "", "solid":
		return BorderStyleSolid, nil
	case "none":
		return BorderStyleNone, nil
	}
	return 0, fmt.Errorf("unknown border style %q", s)
}

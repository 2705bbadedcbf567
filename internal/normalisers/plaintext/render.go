package plaintext

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	pageWidth  = 640
	margin     = 24
	lineHeight = 16
	tabWidth   = 4
)

// Renderer rasterises a text page with the basic 7x13 bitmap font.
// Output depends only on the page text, so repeated renders are identical.
type Renderer struct {
	reader *Reader
}

// NewRenderer creates a text page renderer.
func NewRenderer() *Renderer {
	return &Renderer{reader: New()}
}

// Extensions returns the handled file extensions.
func (r *Renderer) Extensions() []string {
	return []string{".txt"}
}

// Render writes page (1-indexed) of the text file at path to out as PNG.
func (r *Renderer) Render(ctx context.Context, path string, page int, out string) error {
	pages, err := r.reader.ReadPages(ctx, path)
	if err != nil {
		return err
	}
	if page < 1 || page > len(pages) {
		return fmt.Errorf("page %d out of range 1..%d", page, len(pages))
	}

	img := drawPage(pages[page-1].Text)

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

func drawPage(text string) *image.RGBA {
	face := basicfont.Face7x13
	cols := (pageWidth - 2*margin) / face.Advance
	lines := wrap(text, cols)

	height := 2*margin + lineHeight*max(len(lines), 1)
	img := image.NewRGBA(image.Rect(0, 0, pageWidth, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(margin, margin+face.Ascent+i*lineHeight)
		d.DrawString(line)
	}
	return img
}

// wrap splits text into lines of at most cols runes, breaking long lines hard.
func wrap(text string, cols int) []string {
	text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", tabWidth))
	var out []string
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		runes := []rune(strings.TrimRight(line, " \r"))
		for len(runes) > cols {
			out = append(out, string(runes[:cols]))
			runes = runes[cols:]
		}
		out = append(out, string(runes))
	}
	return out
}

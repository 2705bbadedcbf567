package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DefaultDPI renders at twice the 72 DPI PDF user space.
const DefaultDPI = 144

// Renderer rasterises PDF pages with pdftoppm.
type Renderer struct {
	runner CommandRunner
	dpi    int
}

// NewRenderer creates a renderer using the installed pdftoppm.
func NewRenderer(dpi int) *Renderer {
	return NewRendererWithRunner(ExecRunner{}, dpi)
}

// NewRendererWithRunner creates a renderer that runs pdftoppm through runner.
func NewRendererWithRunner(runner CommandRunner, dpi int) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{runner: runner, dpi: dpi}
}

// Extensions returns the handled file extensions.
func (r *Renderer) Extensions() []string {
	return []string{".pdf"}
}

// Render writes page of the PDF at path to out as PNG.
// pdftoppm appends ".png" to the output root itself.
func (r *Renderer) Render(ctx context.Context, path string, page int, out string) error {
	root := strings.TrimSuffix(out, ".png")
	n := strconv.Itoa(page)
	_, err := r.runner.Run(ctx, "pdftoppm",
		"-f", n, "-l", n,
		"-r", strconv.Itoa(r.dpi),
		"-png", "-singlefile",
		path, root,
	)
	if err != nil {
		return fmt.Errorf("pdftoppm page %d: %w", page, err)
	}
	return nil
}

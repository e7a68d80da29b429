package diagnostics

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"peakskew/internal/models"
)

const (
	pageWidth  = 11 * vg.Inch
	pageHeight = 5 * vg.Inch
)

var (
	maskColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	spectrumColor  = color.RGBA{B: 200, A: 255}
	seedColor      = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	optimizedColor = color.RGBA{R: 200, A: 255}
)

// PDF is a multi-page PDF document written to disk on Close.
type PDF struct {
	path   string
	canvas *vgpdf.Canvas
	pages  int
}

// NewPDF creates a document that will be written to path.
func NewPDF(path string) (*PDF, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory: %w", err)
	}
	return &PDF{path: path, canvas: vgpdf.New(pageWidth, pageHeight)}, nil
}

// Pages returns the number of pages added so far.
func (d *PDF) Pages() int {
	return d.pages
}

// AddPage draws the window and spectrum plots side by side on a new page.
func (d *PDF) AddPage(p *Page) error {
	window, err := windowPlot(p)
	if err != nil {
		return fmt.Errorf("window plot for detector %d: %w", p.Peak.DetectorID, err)
	}
	spectrum, err := spectrumPlot(p)
	if err != nil {
		return fmt.Errorf("spectrum plot for detector %d: %w", p.Peak.DetectorID, err)
	}

	if d.pages > 0 {
		d.canvas.NextPage()
	}
	d.pages++

	dc := draw.New(d.canvas)
	tiles := draw.Tiles{Rows: 1, Cols: 2, PadX: vg.Millimeter, PadY: vg.Millimeter}
	canvases := plot.Align([][]*plot.Plot{{window, spectrum}}, tiles, dc)
	window.Draw(canvases[0][0])
	spectrum.Draw(canvases[0][1])
	return nil
}

// Close writes the document. Nothing is written when no page was added.
func (d *PDF) Close() error {
	if d.pages == 0 {
		return nil
	}
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("failed to create diagnostics file: %w", err)
	}
	if _, err := d.canvas.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write diagnostics file: %w", err)
	}
	return f.Close()
}

// countsGrid adapts a [row][col] image to plotter.GridXYZ.
type countsGrid [][]float64

func (g countsGrid) Dims() (c, r int) {
	if len(g) == 0 {
		return 0, 0
	}
	return len(g[0]), len(g)
}

func (g countsGrid) Z(c, r int) float64 { return g[r][c] }
func (g countsGrid) X(c int) float64    { return float64(c) }
func (g countsGrid) Y(r int) float64    { return float64(r) }

func windowPlot(p *Page) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Detector %d (%s) %s", p.Peak.DetectorID, p.Peak.BankName, p.Peak.Status)
	pl.X.Label.Text = "Column"
	pl.Y.Label.Text = "Row"

	grid := countsGrid(p.Counts)
	cols, rows := grid.Dims()
	if cols > 1 && rows > 1 {
		hm := plotter.NewHeatMap(grid, palette.Heat(16, 1))
		if hm.Min == hm.Max {
			hm.Max = hm.Min + 1
		}
		pl.Add(hm)
	}

	// Non-background cells outside the peak mask are other components.
	other := p.NonBackground.AndNot(p.PeakMask)
	overlays := []struct {
		label string
		cells models.Mask
		shape draw.GlyphDrawer
	}{
		{"peak mask", p.PeakMask, draw.CrossGlyph{}},
		{"other signal", other, draw.RingGlyph{}},
	}
	for _, o := range overlays {
		pts := maskPoints(o.cells)
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Shape = o.shape
		sc.GlyphStyle.Color = maskColor
		pl.Add(sc)
		pl.Legend.Add(o.label, sc)
	}
	return pl, nil
}

func maskPoints(m models.Mask) plotter.XYs {
	var pts plotter.XYs
	for r, row := range m {
		for c, in := range row {
			if in {
				pts = append(pts, plotter.XY{X: float64(c), Y: float64(r)})
			}
		}
	}
	return pts
}

// spectrumErrors pairs the focused spectrum with its one-sigma errors.
type spectrumErrors struct {
	plotter.XYs
	plotter.YErrors
}

func spectrumPlot(p *Page) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("TOF %.1f", p.Peak.TOF)
	pl.X.Label.Text = "TOF"
	pl.Y.Label.Text = "Focused counts"
	if len(p.X) == 0 || len(p.Y) != len(p.X) {
		return pl, nil
	}

	pts := make(plotter.XYs, len(p.X))
	ymin, ymax := p.Y[0], p.Y[0]
	for i := range p.X {
		pts[i] = plotter.XY{X: p.X[i], Y: p.Y[i]}
		ymin, ymax = min(ymin, p.Y[i]), max(ymax, p.Y[i])
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = spectrumColor
	line.Width = vg.Points(1)
	pl.Add(line)

	if len(p.ErrSq) == len(p.Y) {
		errs := make(plotter.YErrors, len(p.ErrSq))
		for i, v := range p.ErrSq {
			sigma := math.Sqrt(math.Max(v, 0))
			errs[i].Low, errs[i].High = sigma, sigma
		}
		bars, err := plotter.NewYErrorBars(spectrumErrors{XYs: pts, YErrors: errs})
		if err != nil {
			return nil, err
		}
		bars.LineStyle.Color = spectrumColor
		bars.CapWidth = 0
		pl.Add(bars)
	}

	markers := []struct {
		label string
		w     [2]int
		color color.Color
		dash  []vg.Length
	}{
		{"seed", [2]int{p.Seed.Lo, p.Seed.Hi}, seedColor, []vg.Length{vg.Points(4), vg.Points(2)}},
		{"optimised", [2]int{p.Optimized.Lo, p.Optimized.Hi}, optimizedColor, nil},
	}
	for _, m := range markers {
		if m.w[0] >= m.w[1] || m.w[0] < 0 || m.w[1] > len(p.X) {
			continue
		}
		for k, bin := range []int{m.w[0], m.w[1] - 1} {
			edge, err := plotter.NewLine(plotter.XYs{{X: p.X[bin], Y: ymin}, {X: p.X[bin], Y: ymax}})
			if err != nil {
				return nil, err
			}
			edge.Color = m.color
			edge.Dashes = m.dash
			edge.Width = vg.Points(1)
			pl.Add(edge)
			if k == 0 {
				pl.Legend.Add(m.label, edge)
			}
		}
	}
	pl.Legend.Top = true
	pl.Legend.Left = false
	return pl, nil
}

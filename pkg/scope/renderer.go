package scope

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/goefm/pkg/sample"
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	zeroColor  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	kvColor    = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	rateColor  = color.RGBA{R: 100, G: 200, B: 255, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	grid    *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// plot is the drawing area inside the axis margins.
type plot struct {
	x, y, w, h float32
	sc         scale
}

func (p plot) pos(t time.Time, v float64) fyne.Position {
	return fyne.NewPos(p.x+p.sc.x(t)*p.w, p.y+p.h-p.sc.y(v)*p.h)
}

func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 240)
}

func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	points := r.scope.displayPoints
	rates := r.scope.displayRates
	sc := r.scope.scale
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const (
		marginLeft   = 60
		marginRight  = 20
		marginTop    = 20
		marginBottom = 40
	)
	p := plot{
		x:  marginLeft,
		y:  marginTop,
		w:  size.Width - marginLeft - marginRight,
		h:  size.Height - marginTop - marginBottom,
		sc: sc,
	}

	r.drawGrid(p)
	r.drawPoints(p, points)
	r.drawRates(p, points, rates)
	r.drawLegend(p, points, rates)
}

func (r *scopeRenderer) drawGrid(p plot) {
	const numHLines = 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/numHLines
		r.line(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		value := p.sc.yMax - float64(i)*(p.sc.yMax-p.sc.yMin)/numHLines
		r.text(formatKV(value), labelColor, 10, fyne.TextAlignTrailing, fyne.NewPos(p.x-5, y-6))
	}

	const numVLines = 10
	span := p.sc.xMax.Sub(p.sc.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.line(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		offset := span * time.Duration(i) / numVLines
		r.text(formatTime(offset), labelColor, 10, fyne.TextAlignCenter, fyne.NewPos(x-20, p.y+p.h+5))
	}

	if p.sc.yMin < 0 && p.sc.yMax > 0 {
		y := p.pos(p.sc.xMin, 0).Y
		r.line(zeroColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))
	}
}

// drawPoints draws the potential curve (orange).
func (r *scopeRenderer) drawPoints(p plot, points []sample.Point) {
	for i := 1; i < len(points); i++ {
		r.line(kvColor, 1.5,
			p.pos(points[i-1].Timestamp, points[i-1].KV),
			p.pos(points[i].Timestamp, points[i].KV))
	}
}

// drawRates draws dKV/dt (light blue). Each rate sits between the two
// points it was taken from.
func (r *scopeRenderer) drawRates(p plot, points []sample.Point, rates []float64) {
	var prev fyne.Position
	for i, rate := range rates {
		if i+1 >= len(points) {
			break
		}
		mid := points[i].Timestamp.Add(points[i+1].Timestamp.Sub(points[i].Timestamp) / 2)
		pos := p.pos(mid, rate)
		if i > 0 {
			r.line(rateColor, 2.5, prev, pos)
		}
		prev = pos
	}
}

func (r *scopeRenderer) drawLegend(p plot, points []sample.Point, rates []float64) {
	if len(points) == 0 {
		return
	}
	last := points[len(points)-1]
	r.text(fmt.Sprintf("%+.2f kV", last.KV), kvColor, 12, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+5))
	if len(rates) > 0 {
		rate := rates[len(rates)-1]
		r.text(fmt.Sprintf("%+.3f kV/s", rate), rateColor, 11, fyne.TextAlignLeading, fyne.NewPos(p.x+10, p.y+22))
	}
}

func (r *scopeRenderer) line(c color.Color, width float32, from, to fyne.Position) {
	l := canvas.NewLine(c)
	l.Position1 = from
	l.Position2 = to
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

func (r *scopeRenderer) text(s string, c color.Color, size float32, align fyne.TextAlign, pos fyne.Position) {
	t := canvas.NewText(s, c)
	t.TextSize = size
	t.Alignment = align
	t.Move(pos)
	r.objects = append(r.objects, t)
}

func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *scopeRenderer) Destroy() {}

func formatKV(v float64) string {
	if math.Abs(v) < 0.005 {
		return "0.00kV"
	}
	return fmt.Sprintf("%.2fkV", v)
}

func formatTime(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

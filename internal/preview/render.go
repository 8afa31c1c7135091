package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/skip2/go-qrcode"
	"github.com/thereceipt/ticket-engine/internal/escpos"
	"github.com/thereceipt/ticket-engine/pkg/ticketformat"
)

const (
	margin        = 8.0
	defaultLineH  = 24.0 // ESC 3 24
	baseFontSize  = 20.0
	qrModuleDots  = 8
	initialHeight = 1000
	bottomMargin  = 24
)

var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
	"/System/Library/Fonts/Menlo.ttc",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"C:\\Windows\\Fonts\\consola.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

// DotsWidth returns the printable width in dots at 203 dpi
func DotsWidth(paperWidth int) int {
	if paperWidth == ticketformat.PaperWidth58 {
		return 384
	}
	return 576
}

type renderer struct {
	ctx        *gg.Context
	width      int
	height     int
	y          float64
	lineHeight float64
	align      escpos.Alignment
	style      byte
	fontPath   string
}

// Render draws a ticket buffer as it would come out of the printer
func Render(buf []byte, paperWidth int) (image.Image, error) {
	ops, err := Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}

	r := newRenderer(DotsWidth(paperWidth))
	for _, op := range ops {
		if err := r.apply(op); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", op.Kind, err)
		}
	}

	return r.crop(), nil
}

// EncodePNG writes img as PNG
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

func newRenderer(width int) *renderer {
	r := &renderer{
		width:      width,
		height:     initialHeight,
		lineHeight: defaultLineH,
		fontPath:   findFont(),
	}
	r.ctx = newCanvas(width, initialHeight)
	r.setFont()
	return r
}

func newCanvas(width, height int) *gg.Context {
	ctx := gg.NewContext(width, height)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.SetColor(color.Black)
	return ctx
}

func findFont() string {
	for _, path := range fontPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (r *renderer) double() bool { return r.style&StyleDouble == StyleDouble }
func (r *renderer) bold() bool   { return r.style&StyleBold != 0 }

// setFont loads the face for the current style. Without a system font the
// built-in face is kept and double size is not visible.
func (r *renderer) setFont() {
	if r.fontPath == "" {
		return
	}
	size := baseFontSize
	if r.double() {
		size *= 2
	}
	_ = r.ctx.LoadFontFace(r.fontPath, size)
}

func (r *renderer) apply(op Op) error {
	switch op.Kind {
	case OpInit:
		r.align = escpos.AlignLeft
		r.style = 0
		r.lineHeight = defaultLineH
		r.setFont()
	case OpLineSpacing:
		if op.Lines > 0 {
			r.lineHeight = float64(op.Lines)
		}
	case OpAlign:
		r.align = op.Align
	case OpStyle:
		r.style = op.Style
		r.setFont()
	case OpText:
		r.drawText(op.Text)
	case OpFeed:
		r.advance(float64(op.Lines) * r.lineHeight)
	case OpCut:
		r.drawCut()
	case OpBuzzer:
	case OpQR:
		return r.drawQR(op.Payload)
	}
	return nil
}

func (r *renderer) rowHeight() float64 {
	if r.double() {
		return r.lineHeight * 2
	}
	return r.lineHeight
}

func (r *renderer) advance(dy float64) {
	r.ensureHeight(int(dy) + 1)
	r.y += dy
}

func (r *renderer) drawText(text string) {
	h := r.rowHeight()
	r.ensureHeight(int(h) + 1)

	textWidth, _ := r.ctx.MeasureString(text)

	var x float64
	switch r.align {
	case escpos.AlignCenter:
		x = float64(r.width)/2 - textWidth/2
	case escpos.AlignRight:
		x = float64(r.width) - textWidth - margin
	default:
		x = margin
	}

	baseline := r.y + h*0.8
	r.ctx.DrawString(text, x, baseline)
	if r.bold() {
		r.ctx.DrawString(text, x+1, baseline)
	}

	r.y += h
}

// drawCut marks the cut position with a dashed line
func (r *renderer) drawCut() {
	r.ensureHeight(20)

	y := r.y + 10
	r.ctx.SetLineWidth(1)
	for x := 0.0; x < float64(r.width); x += 12 {
		end := x + 6
		if end > float64(r.width) {
			end = float64(r.width)
		}
		r.ctx.DrawLine(x, y, end, y)
		r.ctx.Stroke()
	}

	r.y += 20
}

func (r *renderer) drawQR(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	qr, err := qrcode.New(string(payload), qrcode.Low)
	if err != nil {
		return err
	}

	img := qr.Image(-qrModuleDots)
	if img.Bounds().Dx() > r.width {
		img = qr.Image(r.width)
	}

	imgHeight := img.Bounds().Dy()
	r.ensureHeight(imgHeight)

	var x int
	switch r.align {
	case escpos.AlignCenter:
		x = (r.width - img.Bounds().Dx()) / 2
	case escpos.AlignRight:
		x = r.width - img.Bounds().Dx()
	}
	r.ctx.DrawImage(img, x, int(r.y))

	r.y += float64(imgHeight)
	return nil
}

func (r *renderer) ensureHeight(needed int) {
	if int(r.y)+needed <= r.height {
		return
	}

	newHeight := r.height * 2
	if newHeight < int(r.y)+needed {
		newHeight = int(r.y) + needed + initialHeight
	}

	ctx := newCanvas(r.width, newHeight)
	ctx.DrawImage(r.ctx.Image(), 0, 0)
	ctx.SetLineWidth(1)

	r.ctx = ctx
	r.height = newHeight
	r.setFont()
}

// crop trims the canvas to the drawn height and converts it to grayscale
func (r *renderer) crop() image.Image {
	h := int(r.y) + bottomMargin
	if h > r.height {
		h = r.height
	}
	return imaging.Grayscale(imaging.Crop(r.ctx.Image(), image.Rect(0, 0, r.width, h)))
}

// Package render draws a raster preview of a ticket from the flat
// ticket_design, for the kiosk UI and the designer.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"time"

	"github.com/ncruces/go-strftime"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/micro-nova/queuepi/internal/models"
)

// Preview canvas size, matching the designer's ticket frame.
const (
	Width  = 550
	Height = 650

	charW = 7
	charH = 13
)

var (
	black     = color.RGBA{0, 0, 0, 255}
	white     = color.RGBA{255, 255, 255, 255}
	lightGray = color.RGBA{170, 170, 170, 255}
)

// Preview renders the ticket for number using settings' ticket_design.
func Preview(settings models.Settings, number int, now time.Time) *image.RGBA {
	td, _ := settings.Map("ticket_design")
	design := models.Settings(td)
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	xdraw.Draw(img, img.Bounds(), &image.Uniform{white}, image.Point{}, xdraw.Src)
	drawBorder(img, design.Int("border_width", 2))

	for id, el := range models.ElementsFromDesign(td) {
		if !el.Visible {
			continue
		}
		switch id {
		case "logo":
			drawText(img, el.X, el.Y, "[LOGO]", black)
		case "company":
			y := el.Y
			for _, key := range []string{"company_name", "company_address", "company_phone"} {
				if s := settings.String(key, ""); s != "" {
					drawText(img, el.X, y, s, black)
					y += charH + 4
				}
			}
		case "number":
			drawText(img, el.X, el.Y, el.Text, black)
			drawScaled(img, el.X, el.Y+charH+4, fmt.Sprintf("%04d", number), scaleFor(el.FontSize))
		case "date":
			drawText(img, el.X, el.Y, "Date: "+strftime.Format(design.String("date_format", "%Y-%m-%d"), now), black)
		case "time":
			drawText(img, el.X, el.Y, "Time: "+strftime.Format(design.String("time_format", "%H:%M:%S"), now), black)
		case "watermark":
			drawText(img, el.X, el.Y, el.Text, lightGray)
		default:
			if el.Text != "" {
				drawText(img, el.X, el.Y, el.Text, black)
			}
		}
	}
	return img
}

// WritePNG encodes a preview as PNG.
func WritePNG(w io.Writer, settings models.Settings, number int, now time.Time) error {
	return png.Encode(w, Preview(settings, number, now))
}

func drawBorder(img *image.RGBA, width int) {
	b := img.Bounds()
	for i := 0; i < width; i++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, b.Min.Y+i, black)
			img.Set(x, b.Max.Y-1-i, black)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			img.Set(b.Min.X+i, y, black)
			img.Set(b.Max.X-1-i, y, black)
		}
	}
}

// drawText draws text with its top-left corner at (x, y).
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + basicfont.Face7x13.Ascent)},
	}
	d.DrawString(text)
}

// drawScaled draws text enlarged by an integer factor.
func drawScaled(img *image.RGBA, x, y int, text string, scale int) {
	small := image.NewRGBA(image.Rect(0, 0, len(text)*charW, charH))
	drawText(small, 0, 0, text, black)
	dst := image.Rect(x, y, x+small.Bounds().Dx()*scale, y+charH*scale)
	xdraw.NearestNeighbor.Scale(img, dst, small, small.Bounds(), xdraw.Over, nil)
}

func scaleFor(fontSize int) int {
	s := fontSize / charH
	if s < 1 {
		return 1
	}
	if s > 8 {
		return 8
	}
	return s
}

package training

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cellSize    = 90
	labelMargin = 80
	titleHeight = 30
	axisHeight  = 20
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	gridLine   = color.RGBA{0x99, 0x99, 0x99, 0xff}
	darkText   = color.RGBA{0x11, 0x11, 0x11, 0xff}
)

// RenderConfusionMatrix draws a heat map with rows as true labels and columns as
// predicted labels; darker blue means more comments.
func RenderConfusionMatrix(w io.Writer, matrix [][]int, names []string, title string) error {
	n := len(matrix)
	if n == 0 || len(names) != n {
		return fmt.Errorf("confusion matrix has %d rows but %d class names", n, len(names))
	}
	width := labelMargin + n*cellSize + 10
	height := titleHeight + axisHeight + n*cellSize + axisHeight + 10
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	maxCount := 0
	for _, row := range matrix {
		for _, v := range row {
			if v > maxCount {
				maxCount = v
			}
		}
	}

	top := titleHeight + axisHeight
	drawText(img, title, width/2-textWidth(title)/2, 20, darkText)
	drawText(img, "predicted", labelMargin+n*cellSize/2-textWidth("predicted")/2, top-6, darkText)

	for i, row := range matrix {
		y0 := top + i*cellSize
		drawText(img, names[i], labelMargin-textWidth(names[i])-6, y0+cellSize/2+4, darkText)
		for j, v := range row {
			x0 := labelMargin + j*cellSize
			fill := cellColor(v, maxCount)
			draw.Draw(img, image.Rect(x0, y0, x0+cellSize, y0+cellSize), image.NewUniform(fill), image.Point{}, draw.Src)
			outline(img, x0, y0, cellSize)

			label := fmt.Sprint(v)
			ink := darkText
			if maxCount > 0 && float64(v)/float64(maxCount) > 0.5 {
				ink = background
			}
			drawText(img, label, x0+cellSize/2-textWidth(label)/2, y0+cellSize/2+4, ink)
		}
	}
	for j, name := range names {
		x := labelMargin + j*cellSize + cellSize/2 - textWidth(name)/2
		drawText(img, name, x, top+n*cellSize+15, darkText)
	}
	drawText(img, "true", 6, top-6, darkText)

	return png.Encode(w, img)
}

// ConfusionMatrixPNG renders the heat map into memory so it can be committed together
// with the rest of the artifacts.
func ConfusionMatrixPNG(matrix [][]int, names []string, title string) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderConfusionMatrix(&buf, matrix, names, title); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellColor(v, maxCount int) color.RGBA {
	if maxCount == 0 {
		return background
	}
	t := float64(v) / float64(maxCount)
	return color.RGBA{
		R: uint8(247 - t*(247-8)),
		G: uint8(251 - t*(251-48)),
		B: uint8(255 - t*(255-107)),
		A: 0xff,
	}
}

func outline(img *image.RGBA, x0, y0, size int) {
	for k := 0; k <= size; k++ {
		img.Set(x0+k, y0, gridLine)
		img.Set(x0+k, y0+size, gridLine)
		img.Set(x0, y0+k, gridLine)
		img.Set(x0+size, y0+k, gridLine)
	}
}

func drawText(img draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

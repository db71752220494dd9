// Package imaging produces fixed-width thumbnails of encoded images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

var ErrInvalidWidth = errors.New("width must be positive")

// Resize decodes src and scales it to width pixels, keeping the aspect
// ratio. JPEG, PNG and GIF inputs keep their format; anything else
// decodable comes back as PNG. The output depends only on src and width.
func Resize(src []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, scaledHeight(b.Dx(), b.Dy(), width)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var out bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&out, dst, nil)
	default:
		err = png.Encode(&out, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return out.Bytes(), nil
}

func scaledHeight(srcW, srcH, width int) int {
	h := (srcH*width + srcW/2) / srcW
	if h < 1 {
		return 1
	}
	return h
}

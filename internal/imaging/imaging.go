// Package imaging validates and resizes user-supplied images. Input type is
// decided by magic bytes, never by the client's content type; every derived
// output is re-encoded, so nothing from the original byte stream survives
// into what we serve.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/localmart/marketplace-service/internal/domain"
)

var magicPrefixes = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8, 0xFF},
	"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"image/webp": {0x52, 0x49, 0x46, 0x46}, // RIFF, with "WEBP" at offset 8
}

// DetectType sniffs the real image type from magic bytes.
func DetectType(data []byte) (string, error) {
	if len(data) < 12 {
		return "", fmt.Errorf("data too short to detect type")
	}
	if bytes.HasPrefix(data, magicPrefixes["image/jpeg"]) {
		return "image/jpeg", nil
	}
	if bytes.HasPrefix(data, magicPrefixes["image/png"]) {
		return "image/png", nil
	}
	if bytes.HasPrefix(data, magicPrefixes["image/webp"]) && string(data[8:12]) == "WEBP" {
		return "image/webp", nil
	}
	return "", fmt.Errorf("unsupported image type")
}

// Decode decodes data as the given MIME type.
func Decode(data []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mimeType {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image type: %s", mimeType)
	}
}

// Resize produces one derived rendition. Crop sizes center-crop to the exact
// box; non-crop sizes preserve aspect ratio. Images are never upscaled.
func Resize(img image.Image, size domain.ImageSize) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	var dstW, dstH int

	if size.Crop {
		dstW = size.Width
		dstH = size.Height

		aspectSrc := float64(srcW) / float64(srcH)
		aspectDst := float64(dstW) / float64(dstH)

		var cropRect image.Rectangle
		if aspectSrc > aspectDst {
			newW := int(float64(srcH) * aspectDst)
			x := (srcW - newW) / 2
			cropRect = image.Rect(x, 0, x+newW, srcH)
		} else {
			newH := int(float64(srcW) / aspectDst)
			y := (srcH - newH) / 2
			cropRect = image.Rect(0, y, srcW, y+newH)
		}

		cropped := image.NewRGBA(image.Rect(0, 0, cropRect.Dx(), cropRect.Dy()))
		draw.Draw(cropped, cropped.Bounds(), img, cropRect.Min, draw.Src)
		img = cropped
		srcW = cropped.Bounds().Dx()
		srcH = cropped.Bounds().Dy()
	} else {
		switch {
		case size.Height == 0:
			ratio := float64(size.Width) / float64(srcW)
			dstW = size.Width
			dstH = int(float64(srcH) * ratio)
		case size.Width == 0:
			ratio := float64(size.Height) / float64(srcH)
			dstH = size.Height
			dstW = int(float64(srcW) * ratio)
		default:
			ratioW := float64(size.Width) / float64(srcW)
			ratioH := float64(size.Height) / float64(srcH)
			ratio := ratioW
			if ratioH < ratioW {
				ratio = ratioH
			}
			dstW = int(float64(srcW) * ratio)
			dstH = int(float64(srcH) * ratio)
		}
	}

	if dstW > srcW || dstH > srcH {
		dstW = srcW
		dstH = srcH
	}
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Process runs the full pipeline: sniff, decode, bound-check, resize every
// requested size and re-encode as JPEG. The result maps size name to encoded
// bytes.
func Process(data []byte, sizes []domain.ImageSize, maxWidth, maxHeight int) (map[string][]byte, error) {
	mimeType, err := DetectType(data)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}

	img, err := Decode(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxWidth || bounds.Dy() > maxHeight {
		return nil, fmt.Errorf("image too large: %dx%d (max %dx%d)", bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	}
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil, fmt.Errorf("empty image")
	}

	results := make(map[string][]byte, len(sizes))
	for _, size := range sizes {
		resized := Resize(img, size)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("encode %s: %w", size.Name, err)
		}
		results[size.Name] = buf.Bytes()
	}
	return results, nil
}

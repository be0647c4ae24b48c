package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// ===========================================================================
// IMAGE I/O - PNG to tensor and back
// ===========================================================================
//
// The restoration path works on single-channel images with pixel values
// scaled to [0, 1]. Color PNGs are reduced to luma on load; on save the
// network output is clamped back into range before quantization, since
// a residual-heavy reconstruction can legitimately overshoot by a few
// thousandths.
// ===========================================================================

// LoadImage reads a PNG file into a 1 x H x W tensor with values in [0, 1].
func LoadImage(path string) (*Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image: open: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	height := bounds.Dy()
	width := bounds.Dx()
	t := NewTensor(1, height, width)

	if gray, ok := img.(*image.Gray); ok {
		// Grayscale PNGs decode straight to their pixel buffer.
		for y := 0; y < height; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			for x, v := range row {
				t.data[y*width+x] = float64(v) / 255.0
			}
		}
		return t, nil
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			t.data[y*width+x] = float64(g.Y) / 255.0
		}
	}
	return t, nil
}

// SaveImage writes a 1 x H x W tensor to a grayscale PNG, clamping values
// to [0, 1] before quantization.
func SaveImage(path string, t *Tensor) error {
	shape := t.Shape()
	if len(shape) != 3 || shape[0] != 1 {
		return fmt.Errorf("image: want a 1 x H x W tensor, got shape %v", shape)
	}
	height, width := shape[1], shape[2]

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := t.data[y*width+x]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.Pix[y*img.Stride+x] = uint8(v*255.0 + 0.5)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("image: create: %w", err)
	}
	defer f.Close()

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, img); err != nil {
		return fmt.Errorf("image: encode %s: %w", path, err)
	}
	return nil
}

package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/model"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageNet channel statistics (RGB order)
var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ImageSpec is the fixed transform an image model expects
type ImageSpec struct {
	Size          int
	Layout        model.Layout
	Normalization model.Normalization
}

// SpecFromMetadata derives the image transform from model metadata
func SpecFromMetadata(meta model.Metadata) ImageSpec {
	return ImageSpec{
		Size:          meta.ImageSize,
		Layout:        meta.Layout,
		Normalization: meta.Normalization,
	}
}

// DecodeImage decodes raw bytes into an image, returning a DecodeError on malformed input
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", apperrors.NewDecodeError("empty image payload", nil)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.NewDecodeError("failed to decode image", err)
	}
	return img, format, nil
}

// ImageTensor decodes and normalizes image bytes into a batch-of-one tensor
func ImageTensor(data []byte, spec ImageSpec) (model.Tensor, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return model.Tensor{}, err
	}
	return ToTensor(img, spec)
}

// ToTensor resizes img to spec.Size square, forces RGB and scales each channel
func ToTensor(img image.Image, spec ImageSpec) (model.Tensor, error) {
	if spec.Size <= 0 {
		return model.Tensor{}, fmt.Errorf("invalid target size %d", spec.Size)
	}

	size := spec.Size
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	bounds := resized.Bounds()

	plane := size * size
	data := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// NRGBA drops alpha without darkening the color channels
			px := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			rgb := [3]uint8{px.R, px.G, px.B}

			for c := 0; c < 3; c++ {
				v, err := normalize(rgb[c], c, spec.Normalization)
				if err != nil {
					return model.Tensor{}, err
				}
				switch spec.Layout {
				case model.LayoutNCHW:
					data[c*plane+y*size+x] = v
				case model.LayoutNHWC:
					data[(y*size+x)*3+c] = v
				default:
					return model.Tensor{}, fmt.Errorf("unsupported layout %q", spec.Layout)
				}
			}
		}
	}

	s := int64(size)
	shape := []int64{1, 3, s, s}
	if spec.Layout == model.LayoutNHWC {
		shape = []int64{1, s, s, 3}
	}
	return model.Tensor{Shape: shape, Data: data}, nil
}

func normalize(v uint8, channel int, n model.Normalization) (float32, error) {
	scaled := float32(v) / 255.0
	switch n {
	case model.NormalizationUnit:
		return scaled, nil
	case model.NormalizationImageNet:
		return (scaled - imageNetMean[channel]) / imageNetStd[channel], nil
	default:
		return 0, fmt.Errorf("unsupported normalization %q", n)
	}
}

package output

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/icza/mjpeg"
	"github.com/pkg/errors"
)

// CreateVideoFromImages writes the images, in order, as an MJPEG AVI
// time-lapse at two frames per second.
func CreateVideoFromImages(imagePaths []string, outputPath string) (string, error) {
	if len(imagePaths) == 0 {
		return "", errors.New("no frames to encode")
	}
	if !strings.HasSuffix(outputPath, ".avi") {
		outputPath += ".avi"
	}

	first, err := decodeImage(imagePaths[0])
	if err != nil {
		return "", err
	}
	bounds := first.Bounds()

	writer, err := mjpeg.New(outputPath, int32(bounds.Dx()), int32(bounds.Dy()), 2)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create video %s", outputPath)
	}

	for _, path := range imagePaths {
		img, err := decodeImage(path)
		if err != nil {
			writer.Close()
			return "", err
		}
		if img.Bounds().Dx() != bounds.Dx() || img.Bounds().Dy() != bounds.Dy() {
			writer.Close()
			return "", errors.Errorf("frame %s is %v, video is %v", path, img.Bounds().Size(), bounds.Size())
		}

		// JPEG has no alpha; flatten transparent pixels onto white.
		flat := image.NewRGBA(img.Bounds())
		draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
		draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Over)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: 100}); err != nil {
			writer.Close()
			return "", errors.Wrapf(err, "failed to encode frame %s", path)
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			writer.Close()
			return "", errors.Wrapf(err, "failed to add frame %s", path)
		}
	}

	if err := writer.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to finalize video %s", outputPath)
	}
	return outputPath, nil
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return img, nil
}

package fingerprint

import (
	"fmt"
	"image"
	"os"

	// Register decoders beyond those imaging pulls in.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"

	"imagededup/internal/faults"
)

func decodeFile(path string) (img image.Image, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.ErrUnreadable, "fingerprint", "open", path, err)
	}
	defer file.Close()

	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = faults.Wrap(faults.ErrUnreadable, "fingerprint", "decode", path, fmt.Errorf("decoder panic: %v", r))
		}
	}()

	img, err = imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, faults.Wrap(faults.ErrUnreadable, "fingerprint", "decode", path, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, faults.Wrap(faults.ErrUnreadable, "fingerprint", "decode", path, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy()))
	}
	return img, nil
}

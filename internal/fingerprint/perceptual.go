package fingerprint

import (
	"errors"
	"fmt"
	"image"

	"github.com/artyom/phash"
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"imagededup/internal/faults"
)

func resize(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// perceptualHashes computes the DCT pHash and the gradient dHash of img.
func perceptualHashes(img image.Image) (p, d Hash, err error) {
	if img == nil {
		return 0, 0, faults.Wrap(faults.ErrUnreadable, "fingerprint", "perceptual", "", errors.New("nil image"))
	}
	defer func() {
		if r := recover(); r != nil {
			p, d = 0, 0
			err = faults.Wrap(faults.ErrUnreadable, "fingerprint", "perceptual", "", fmt.Errorf("hash panic: %v", r))
		}
	}()

	pv, err := phash.Get(img, resize)
	if err != nil {
		return 0, 0, faults.Wrap(faults.ErrUnreadable, "fingerprint", "phash", "", err)
	}
	dh, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, 0, faults.Wrap(faults.ErrUnreadable, "fingerprint", "dhash", "", err)
	}
	return Hash(pv), Hash(dh.GetHash()), nil
}

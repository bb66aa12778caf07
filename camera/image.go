package camera

import (
	"fmt"
	"io"
	"time"

	"github.com/astrogo/fitsio"
)

// Image is one downloaded frame.  Exactly one of Pix8/Pix16 is populated
// according to Format; ownership passes entirely to the caller.
type Image struct {
	// Timestamp is the wall-clock time the exposure started
	Timestamp time.Time

	// Width and Height are the frame dimensions after binning
	Width  int
	Height int

	// Format is the sample layout of the pixel buffer
	Format PixelFormat

	// Bayer is the color filter layout ("RGGB" etc), empty for mono data
	Bayer string

	// Pix8 holds 8-bit samples when Format.Bpp() == 8
	Pix8 []uint8

	// Pix16 holds 16-bit samples when Format.Bpp() == 16
	Pix16 []uint16

	// Meta is the FITS provenance header assembled at download time
	Meta []fitsio.Card
}

// WriteFITS streams the image to w as a single-HDU 16-bit FITS file with
// the provenance metadata attached.  Data is written per the FITS
// convention for unsigned integers, BZERO 32768 with the samples offset
// to signed; 8-bit frames are widened without scaling.
func (img *Image) WriteFITS(w io.Writer) error {
	if img.Format == RGB24 {
		return fmt.Errorf("interleaved RGB data cannot be written as a single-plane FITS")
	}
	cards := append([]fitsio.Card{}, img.Meta...)
	cards = append(cards,
		fitsio.Card{Name: "BZERO", Value: 32768},
		fitsio.Card{Name: "BSCALE", Value: 1.0})
	dims := []int{img.Width, img.Height}
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	im := fitsio.NewImage(16, dims)
	defer im.Close()
	if err := im.Header().Append(cards...); err != nil {
		return err
	}
	var buf []int16
	if img.Format.Bpp() == 16 {
		buf = make([]int16, len(img.Pix16))
		for idx := 0; idx < len(img.Pix16); idx++ {
			buf[idx] = int16(img.Pix16[idx] - 32768)
		}
	} else {
		buf = make([]int16, len(img.Pix8))
		for idx := 0; idx < len(img.Pix8); idx++ {
			buf[idx] = int16(int(img.Pix8[idx]) - 32768)
		}
	}
	if err := im.Write(buf); err != nil {
		return err
	}
	return fits.Write(im)
}

// Gray16 converts the buffer to 16-bit samples regardless of the native
// depth, scaling 8-bit data up.  Used by preview encoders.
func (img *Image) Gray16() []uint16 {
	if img.Format.Bpp() == 16 {
		return img.Pix16
	}
	out := make([]uint16, len(img.Pix8))
	for idx := 0; idx < len(img.Pix8); idx++ {
		out[idx] = uint16(img.Pix8[idx]) * 257
	}
	return out
}

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"time"

	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// ErrNoImages is returned when the input selection is empty.
var ErrNoImages = errors.New("no images to assemble")

// ErrInvalidPageSize is returned for page sizes with exactly one zero
// dimension.
var ErrInvalidPageSize = errors.New("invalid page size")

// CannotOpenImageError reports an input file that cannot be decoded as an
// image.
type CannotOpenImageError struct {
	Path string
	Err  error
}

func (e *CannotOpenImageError) Error() string {
	return fmt.Sprintf("cannot open image %s: %v", e.Path, e.Err)
}

func (e *CannotOpenImageError) Unwrap() error { return e.Err }

// PageSize is a page format in PDF points. The zero value selects native
// mode: each page takes its image's pixel dimensions.
type PageSize struct {
	Width  float64
	Height float64
}

// Standard page sizes, plus the native-size sentinel.
var (
	PageSizeA4     = PageSize{Width: 595.28, Height: 841.89}
	PageSizeLetter = PageSize{Width: 612, Height: 792}
	PageSizeNative = PageSize{}
)

func (s PageSize) fixed() bool { return s.Width > 0 && s.Height > 0 }

// jpegQuality applies when a non-JPEG source is re-encoded for embedding.
const jpegQuality = 90

// Assemble renders the images into a single PDF at destination. Inputs are
// validated synchronously before any I/O: an empty list fails with
// ErrNoImages, a half-zero page size with ErrInvalidPageSize. When
// interleaved is true the input order is transformed pairwise from its two
// halves before paging (front/back duplex reconstruction).
func Assemble(destination string, images []string, size PageSize, interleaved bool) error {
	if len(images) == 0 {
		return ErrNoImages
	}
	if (size.Width > 0) != (size.Height > 0) {
		return ErrInvalidPageSize
	}
	if interleaved {
		images = interleave(images)
	}

	start := time.Now()
	err := assemble(destination, images, size)
	if err != nil {
		metrics.PDFAssembliesTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.PDFAssembliesTotal.WithLabelValues("success").Inc()
	metrics.PDFPagesTotal.Add(float64(len(images)))
	logging.Info("Assembled PDF with %d pages at %s in %v", len(images), destination, time.Since(start))
	return nil
}

func assemble(destination string, images []string, size PageSize) error {
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: size.Width, Ht: size.Height},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	for i, path := range images {
		img, err := imaging.Open(path)
		if err != nil {
			return &CannotOpenImageError{Path: path, Err: err}
		}
		bounds := img.Bounds()
		imgW, imgH := float64(bounds.Dx()), float64(bounds.Dy())

		// embed as JPEG regardless of source format
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return &CannotOpenImageError{Path: path, Err: err}
		}
		name := fmt.Sprintf("page-%d", i)
		doc.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "JPG"}, &buf)

		if size.fixed() {
			// image centered on the fixed page, scaled to fit, aspect kept
			w, h := fitInto(imgW, imgH, size.Width, size.Height)
			doc.AddPage()
			doc.ImageOptions(name, (size.Width-w)/2, (size.Height-h)/2, w, h,
				false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		} else {
			// one page per image, page size equals the image's dimensions
			doc.AddPageFormat("P", gofpdf.SizeType{Wd: imgW, Ht: imgH})
			doc.ImageOptions(name, 0, 0, imgW, imgH,
				false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		}
	}

	if err := doc.OutputFileAndClose(destination); err != nil {
		return fmt.Errorf("failed to write PDF %s: %w", destination, err)
	}
	return nil
}

// fitInto scales (w, h) to fit inside (boxW, boxH) preserving aspect ratio
// and using as much of the box as possible.
func fitInto(w, h, boxW, boxH float64) (float64, float64) {
	if w/h > boxW/boxH {
		return boxW, h * boxW / w
	}
	return w * boxH / h, boxH
}

// interleave reorders the selection by taking element i from the first
// half and then element i from the second half, reconstructing duplex page
// order from a stack of fronts followed by a stack of backs.
func interleave(images []string) []string {
	mid := (len(images) + 1) / 2
	first, second := images[:mid], images[mid:]

	out := make([]string, 0, len(images))
	for i := 0; i < mid; i++ {
		out = append(out, first[i])
		if i < len(second) {
			out = append(out, second[i])
		}
	}
	return out
}

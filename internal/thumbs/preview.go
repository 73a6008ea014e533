package thumbs

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"scan-gallery/internal/logging"

	"github.com/bamiaux/rez"
	"github.com/disintegration/imaging"
)

// PreviewMaxEdge is the longest edge of a low-resolution preview, sized for
// full-screen display rather than grid cells.
const PreviewMaxEdge = 1200

// previewSuffix derives the preview filename from the source base name.
const previewSuffix = ".lowres.jpg"

// Previewer writes low-resolution preview files into the previews cache
// directory. Previews are an optimization for the display path; every
// operation is best-effort and failures only log.
type Previewer struct {
	dir string
}

// NewPreviewer creates a previewer rooted at dir.
func NewPreviewer(dir string) *Previewer {
	return &Previewer{dir: dir}
}

// PreviewPath derives the preview file location for an image path.
func (p *Previewer) PreviewPath(location string) string {
	base := filepath.Base(location)
	ext := filepath.Ext(base)
	return filepath.Join(p.dir, strings.TrimSuffix(base, ext)+previewSuffix)
}

// GenerateIfNeeded produces the preview file for an image unless it already
// exists. Small sources are not upscaled; the original is linked by simply
// skipping preview generation, readers fall back to the full image.
func (p *Previewer) GenerateIfNeeded(location string) {
	dest := p.PreviewPath(location)
	if _, err := os.Stat(dest); err == nil {
		return
	}

	img, err := imaging.Open(location, imaging.AutoOrientation(true))
	if err != nil {
		logging.Debug("Preview decode failed for %s: %v", location, err)
		return
	}
	bounds := img.Bounds()
	if bounds.Dx() <= PreviewMaxEdge && bounds.Dy() <= PreviewMaxEdge {
		return
	}

	preview := resizeToFit(img, PreviewMaxEdge)
	if err := imaging.Save(preview, dest, imaging.JPEGQuality(80)); err != nil {
		logging.Warn("Failed to persist preview %s: %v", dest, err)
		return
	}
	logging.Debug("Preview persisted: %s", dest)
}

// Remove deletes the preview file for an image, if present.
func (p *Previewer) Remove(location string) {
	if err := os.Remove(p.PreviewPath(location)); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to delete preview for %s: %v", location, err)
	}
}

// resizeToFit downscales img so that its longest edge is maxEdge. JPEG
// sources decode to YCbCr, which rez can resample in place without an RGBA
// conversion; other color models go through imaging.
func resizeToFit(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	if src, ok := img.(*image.YCbCr); ok {
		dst := image.NewYCbCr(image.Rect(0, 0, w, h), src.SubsampleRatio)
		if err := rez.Convert(dst, src, rez.NewLanczosFilter(3)); err == nil {
			return dst
		}
		// fall through to the generic path on unsupported subsample ratios
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

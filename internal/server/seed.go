package server

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"

	"scan-gallery/internal/logging"
)

// SeedGallery writes synthetic scan images for local development. Only
// registered when seeding is enabled in the configuration.
func (h *Handlers) SeedGallery(w http.ResponseWriter, r *http.Request) {
	count := parseIntQuery(r, "count", 5)
	if count > 100 {
		http.Error(w, "Too many seed images requested", http.StatusBadRequest)
		return
	}

	scans := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		data, err := syntheticScan(i)
		if err != nil {
			http.Error(w, "Failed to render seed image", http.StatusInternalServerError)
			return
		}
		scans = append(scans, data)
	}

	items, err := h.engine.SaveScans(scans)
	if err != nil {
		logging.Error("Seeding failed: %v", err)
		http.Error(w, "Failed to save seed images", http.StatusInternalServerError)
		return
	}
	logging.Info("Seeded gallery with %d images", len(items))
	writeJSON(w, http.StatusCreated, viewsOf(items))
}

// syntheticScan renders a flat-colored page that is cheap to generate
// but large enough to exercise thumbnailing.
func syntheticScan(n int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 880))
	shade := color.RGBA{R: uint8(40 * (n % 6)), G: uint8(220 - 30*(n%6)), B: 180, A: 255}
	for y := 0; y < 880; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, shade)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode seed image %d: %w", n, err)
	}
	return buf.Bytes(), nil
}

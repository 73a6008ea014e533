package server

import (
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"scan-gallery/internal/logging"

	"github.com/gorilla/mux"
)

// thumbnailTimeout bounds how long a request waits on the generator.
// Generation is bounded-concurrency work; anything slower than this
// means the source image is unreadable or the queue is wedged.
const thumbnailTimeout = 30 * time.Second

// GetThumbnail serves the item's thumbnail as JPEG, generating it on
// demand. Concurrent requests for the same item share one generation.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFor(mux.Vars(r)["name"])
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	done := make(chan image.Image, 1)
	h.engine.Thumbnail(item, func(img image.Image) {
		done <- img
	})

	var img image.Image
	select {
	case img = <-done:
	case <-time.After(thumbnailTimeout):
		logging.Error("Thumbnail timed out for %s", item.Location)
		http.Error(w, "Thumbnail generation timed out", http.StatusGatewayTimeout)
		return
	case <-r.Context().Done():
		return
	}

	if img == nil {
		http.Error(w, "Failed to generate thumbnail", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 85}); err != nil {
		logging.Debug("Thumbnail write aborted for %s: %v", item.Location, err)
	}
}

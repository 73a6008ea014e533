package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"scan-gallery/internal/gallery"
	"scan-gallery/internal/logging"
	"scan-gallery/internal/startup"
)

// Handlers bundles the HTTP handlers around a single gallery engine.
type Handlers struct {
	engine *gallery.Engine
	config *startup.Config
}

func New(engine *gallery.Engine, config *startup.Config) *Handlers {
	return &Handlers{
		engine: engine,
		config: config,
	}
}

// itemFor resolves a route {name} to an index entry. Names are bare file
// names inside the gallery folder; anything path-like is rejected before
// it can escape the folder.
func (h *Handlers) itemFor(name string) (gallery.Item, bool) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return gallery.Item{}, false
	}
	item, err := h.engine.ItemAt(filepath.Join(h.engine.GalleryDir(), name))
	if err != nil {
		return gallery.Item{}, false
	}
	return item, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response: %v", err)
	}
}

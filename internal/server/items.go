package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scan-gallery/internal/gallery"
	"scan-gallery/internal/logging"

	"github.com/gorilla/mux"
)

// itemView is the wire form of a gallery item. Locations stay
// server-side; clients address items by name.
type itemView struct {
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creationTime"`
}

type groupView struct {
	Date  time.Time  `json:"date"`
	Items []itemView `json:"items"`
}

func viewOf(item gallery.Item) itemView {
	return itemView{
		Name:         filepath.Base(item.Location),
		CreationTime: item.CreationTime,
	}
}

func viewsOf(items []gallery.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, viewOf(item))
	}
	return views
}

// ListItems returns the full ordered item list.
func (h *Handlers) ListItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewsOf(h.engine.Items()))
}

// ListGroups returns the items partitioned into temporal display groups.
func (h *Handlers) ListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := h.engine.Groups()
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView{Date: g.Date, Items: viewsOf(g.Items)})
	}
	writeJSON(w, http.StatusOK, views)
}

// GetFile serves the original image.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFor(mux.Vars(r)["name"])
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, item.Location)
}

// GetPreview serves the low-resolution preview when one exists, falling
// back to the original image.
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFor(mux.Vars(r)["name"])
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	preview := h.engine.PreviewPath(item)
	if _, err := os.Stat(preview); err == nil {
		http.ServeFile(w, r, preview)
		return
	}
	http.ServeFile(w, r, item.Location)
}

// GetItemSize returns the pixel dimensions of the original image.
func (h *Handlers) GetItemSize(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFor(mux.Vars(r)["name"])
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	width, height, err := h.engine.ImageSize(r.Context(), item)
	if err != nil {
		logging.Error("Image size lookup failed for %s: %v", item.Location, err)
		http.Error(w, "Failed to read image", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"width": width, "height": height})
}

// DeleteItem removes an item and its derived files.
func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFor(mux.Vars(r)["name"])
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	if err := h.engine.DeleteItem(item); err != nil {
		logging.Error("Delete failed for %s: %v", item.Location, err)
		http.Error(w, "Failed to delete item", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerRefresh rebuilds the index from the gallery folder.
func (h *Handlers) TriggerRefresh(w http.ResponseWriter, _ *http.Request) {
	if err := h.engine.Refresh(); err != nil {
		http.Error(w, "Refresh failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"items": len(h.engine.Items())})
}

// SaveScans ingests a multipart batch of scanned images under the field
// name "scans" and returns the created items in write order.
func (h *Handlers) SaveScans(w http.ResponseWriter, r *http.Request) {
	// 128MB keeps a full scanner batch in play without letting a
	// runaway upload exhaust memory
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["scans"]
	if len(files) == 0 {
		http.Error(w, "No scans provided", http.StatusBadRequest)
		return
	}

	scans := make([][]byte, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			http.Error(w, "Failed to read upload", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, "Failed to read upload", http.StatusBadRequest)
			return
		}
		scans = append(scans, data)
	}

	items, err := h.engine.SaveScans(scans)
	if err != nil {
		logging.Error("SaveScans failed after %d items: %v", len(items), err)
		http.Error(w, "Failed to save scans", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, viewsOf(items))
}

// ClearCache empties the derived-file caches.
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	h.engine.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// parseIntQuery reads a positive integer query parameter with a default.
func parseIntQuery(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

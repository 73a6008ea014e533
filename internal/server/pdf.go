package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"scan-gallery/internal/logging"
	"scan-gallery/internal/pdf"
)

type pdfRequest struct {
	// Names are gallery item names in the desired page order.
	Names []string `json:"names"`
	// PageSize is "a4", "letter" or "native" (default).
	PageSize string `json:"pageSize"`
	// Interleaved reorders the pages for duplex scans captured as two
	// single-sided passes, the second in reverse.
	Interleaved bool `json:"interleaved"`
}

func pageSizeNamed(name string) (pdf.PageSize, bool) {
	switch name {
	case "a4":
		return pdf.PageSizeA4, true
	case "letter":
		return pdf.PageSizeLetter, true
	case "native", "":
		return pdf.PageSizeNative, true
	}
	return pdf.PageSize{}, false
}

// GeneratePDF assembles the named items into a PDF and serves it back.
func (h *Handlers) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	var req pdfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	size, ok := pageSizeNamed(req.PageSize)
	if !ok {
		http.Error(w, "Unknown page size", http.StatusBadRequest)
		return
	}

	images := make([]string, 0, len(req.Names))
	for _, name := range req.Names {
		item, ok := h.itemFor(name)
		if !ok {
			http.Error(w, "Item not found: "+name, http.StatusNotFound)
			return
		}
		images = append(images, item.Location)
	}

	destination := h.engine.TempPDFPath()
	if err := pdf.Assemble(destination, images, size, req.Interleaved); err != nil {
		var openErr *pdf.CannotOpenImageError
		switch {
		case errors.Is(err, pdf.ErrNoImages):
			http.Error(w, "No images to assemble", http.StatusBadRequest)
		case errors.As(err, &openErr):
			logging.Error("PDF assembly cannot open %s: %v", openErr.Path, openErr.Err)
			http.Error(w, "Failed to open image", http.StatusUnprocessableEntity)
		default:
			logging.Error("PDF assembly failed: %v", err)
			http.Error(w, "Failed to assemble PDF", http.StatusInternalServerError)
		}
		return
	}
	// staged output is cleaned up on the next engine start
	defer func() {
		if err := os.Remove(destination); err != nil {
			logging.Debug("Staged PDF left behind: %v", err)
		}
	}()

	logging.Info("Assembled PDF with %d pages", len(images))
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, destination)
}

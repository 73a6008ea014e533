package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"scan-gallery/internal/gallery"
	"scan-gallery/internal/startup"

	"github.com/gorilla/mux"
)

func newTestHandlers(t *testing.T) (*Handlers, *gallery.Engine) {
	t.Helper()
	engine, err := gallery.NewEngine(gallery.Config{
		GalleryDir: filepath.Join(t.TempDir(), "gallery"),
		CacheRoot:  filepath.Join(t.TempDir(), "cache"),
		Format:     gallery.FormatJPEG,
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(engine.Close)

	h := New(engine, &startup.Config{SeedEnabled: true})
	return h, engine
}

func testRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/groups", h.ListGroups).Methods("GET")
	api.HandleFunc("/file/{name}", h.GetFile).Methods("GET")
	api.HandleFunc("/preview/{name}", h.GetPreview).Methods("GET")
	api.HandleFunc("/thumbnail/{name}", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/size/{name}", h.GetItemSize).Methods("GET")
	api.HandleFunc("/item/{name}", h.DeleteItem).Methods("DELETE")
	api.HandleFunc("/scans", h.SaveScans).Methods("POST")
	api.HandleFunc("/refresh", h.TriggerRefresh).Methods("POST")
	api.HandleFunc("/pdf", h.GeneratePDF).Methods("POST")
	api.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")
	api.HandleFunc("/seed", h.SeedGallery).Methods("POST")
	return r
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadScans(t *testing.T, router *mux.Router, payloads ...[]byte) []itemView {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for i, payload := range payloads {
		part, err := writer.CreateFormFile("scans", "scan.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("writing part %d: %v", i, err)
		}
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/api/scans", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload returned %d: %s", rec.Code, rec.Body.String())
	}
	var items []itemView
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	return items
}

func TestListItemsEmptyGallery(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/items", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var items []itemView
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("empty gallery listed %d items", len(items))
	}
}

func TestScanUploadAndListing(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)

	uploaded := uploadScans(t, router, encodeJPEG(t, 300, 200))
	if len(uploaded) != 1 {
		t.Fatalf("upload returned %d items", len(uploaded))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/items", nil))
	var items []itemView
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Name != uploaded[0].Name {
		t.Errorf("listing = %v, want uploaded item", items)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/groups", nil))
	var groups []groupView
	if err := json.NewDecoder(rec.Body).Decode(&groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].Items) != 1 {
		t.Errorf("groups = %v, want one group of one item", groups)
	}
}

func TestSaveScansRejectsEmptyUpload(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.Close()

	req := httptest.NewRequest("POST", "/api/scans", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetFileAndThumbnail(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)
	uploaded := uploadScans(t, router, encodeJPEG(t, 640, 480))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/file/"+uploaded[0].Name, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("file status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/thumbnail/"+uploaded[0].Name, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("thumbnail status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("thumbnail content type = %s", ct)
	}
	thumb, err := jpeg.Decode(rec.Body)
	if err != nil {
		t.Fatalf("thumbnail is not a JPEG: %v", err)
	}
	if thumb.Bounds().Dx() > 200 || thumb.Bounds().Dy() > 200 {
		t.Errorf("thumbnail is %v, want max edge 200", thumb.Bounds())
	}
}

func TestGetItemSize(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)
	uploaded := uploadScans(t, router, encodeJPEG(t, 321, 123))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/size/"+uploaded[0].Name, nil))

	// no metadata cache configured in this fixture
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 without metadata cache", rec.Code)
	}
}

func TestDeleteItem(t *testing.T) {
	h, engine := newTestHandlers(t)
	router := testRouter(h)
	uploaded := uploadScans(t, router, encodeJPEG(t, 100, 100))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/item/"+uploaded[0].Name, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(engine.Items()) != 0 {
		t.Error("item survived deletion")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/item/"+uploaded[0].Name, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("repeat delete status = %d, want 404", rec.Code)
	}
}

func TestUnknownItemReturns404(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)

	for _, path := range []string{
		"/api/file/missing.jpg",
		"/api/thumbnail/missing.jpg",
		"/api/preview/missing.jpg",
		"/api/size/missing.jpg",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestGeneratePDF(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)
	uploaded := uploadScans(t, router, encodeJPEG(t, 300, 400), encodeJPEG(t, 300, 400))

	payload, _ := json.Marshal(pdfRequest{
		Names:    []string{uploaded[0].Name, uploaded[1].Name},
		PageSize: "a4",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/pdf", bytes.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("pdf status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %s", ct)
	}
	if body := rec.Body.Bytes(); len(body) < 4 || string(body[:4]) != "%PDF" {
		t.Error("response body is not a PDF")
	}
}

func TestGeneratePDFValidation(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty selection", `{"names":[]}`, http.StatusBadRequest},
		{"unknown page size", `{"names":["x.jpg"],"pageSize":"tabloid"}`, http.StatusBadRequest},
		{"unknown item", `{"names":["ghost.jpg"]}`, http.StatusNotFound},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/pdf", bytes.NewBufferString(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSeedGallery(t *testing.T) {
	h, engine := newTestHandlers(t)
	router := testRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/seed?count=3", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("seed status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(engine.Items()) != 3 {
		t.Errorf("seeded %d items, want 3", len(engine.Items()))
	}
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := testRouter(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("refresh status = %d", rec.Code)
	}
}

func TestItemForRejectsPathTraversal(t *testing.T) {
	h, _ := newTestHandlers(t)

	for _, name := range []string{"", "../../etc/passwd", "a/b.jpg", ".hidden.jpg"} {
		if _, ok := h.itemFor(name); ok {
			t.Errorf("itemFor accepted %q", name)
		}
	}
}

package thumbs

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"sync"
	"time"

	"scan-gallery/internal/dispatch"
	"scan-gallery/internal/logging"
	"scan-gallery/internal/metrics"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// ThumbMaxEdge is the longest edge of a generated thumbnail in pixels.
	ThumbMaxEdge = 200

	// thumbJPEGQuality is the quality of the persisted thumbnail file.
	thumbJPEGQuality = 60
)

// Completion receives the produced thumbnail, or nil on unrecoverable
// decode failure. Every caller that requested generation for a location
// receives exactly one completion.
type Completion func(image.Image)

// request is one queued generation: the source image and the derived
// thumbnail file to persist to.
type request struct {
	location  string
	thumbPath string
}

// Generator produces thumbnails with single-flight semantics keyed by the
// source location. Pending requests are scheduled last-in-first-served, so
// the most recently requested thumbnail, typically the one scrolled into
// view, is produced first. Completions are delivered on the dispatcher.
type Generator struct {
	disp        *dispatch.Dispatcher
	concurrency int

	mu      sync.Mutex
	pending map[string][]Completion // in-flight ledger
	queue   []request               // LIFO stack of not-yet-started work
	running int
}

// NewGenerator creates a generator delivering completions through disp.
// concurrency bounds the number of simultaneously running generations;
// values below 1 select the reference behavior of a single generation at a
// time.
func NewGenerator(disp *dispatch.Dispatcher, concurrency int) *Generator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Generator{
		disp:        disp,
		concurrency: concurrency,
		pending:     make(map[string][]Completion),
	}
}

// Generate obtains a thumbnail for the image at location, persisting new
// thumbnails to thumbPath.
//
// When the persisted thumbnail already exists it is decoded from disk and
// returned directly; that path does not populate any in-memory cache, the
// caller is responsible for caching the returned value. Otherwise the
// request joins the in-flight ledger: at most one physical generation runs
// per location, and every queued completion receives the same result.
func (g *Generator) Generate(location, thumbPath string, completion Completion) {
	if _, err := os.Stat(thumbPath); err == nil {
		metrics.ThumbnailDiskHitsTotal.Inc()
		go func() {
			img, err := imaging.Open(thumbPath)
			if err != nil {
				logging.Warn("Thumbnail file unreadable, regenerating %s: %v", thumbPath, err)
				g.enqueue(location, thumbPath, completion)
				return
			}
			g.deliver([]Completion{completion}, img)
		}()
		return
	}
	g.enqueue(location, thumbPath, completion)
}

func (g *Generator) enqueue(location, thumbPath string, completion Completion) {
	g.mu.Lock()
	if callbacks, inFlight := g.pending[location]; inFlight {
		if completion != nil {
			g.pending[location] = append(callbacks, completion)
		}
		g.mu.Unlock()
		metrics.ThumbnailCoalescedTotal.Inc()
		return
	}

	if completion != nil {
		g.pending[location] = []Completion{completion}
	} else {
		g.pending[location] = nil
	}
	g.queue = append(g.queue, request{location: location, thumbPath: thumbPath})
	g.startLocked()
	g.mu.Unlock()
}

// startLocked launches workers while capacity and queued work remain.
// Work is popped from the top of the stack.
func (g *Generator) startLocked() {
	for g.running < g.concurrency && len(g.queue) > 0 {
		req := g.queue[len(g.queue)-1]
		g.queue = g.queue[:len(g.queue)-1]
		g.running++
		go g.run(req)
	}
}

func (g *Generator) run(req request) {
	img := g.produce(req)

	g.mu.Lock()
	callbacks := g.pending[req.location]
	delete(g.pending, req.location)
	g.running--
	g.startLocked()
	g.mu.Unlock()

	g.deliver(callbacks, img)
}

// produce performs the physical decode-resize-encode operation and
// persists the result best-effort. It returns nil when the source cannot
// be decoded.
func (g *Generator) produce(req request) image.Image {
	start := time.Now()

	thumb := loadThumbnail(req.location, ThumbMaxEdge)
	if thumb == nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
		return nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbJPEGQuality}); err != nil {
		logging.Warn("Thumbnail encode failed for %s: %v", req.location, err)
		metrics.ThumbnailPersistErrors.Inc()
	} else if err := os.WriteFile(req.thumbPath, buf.Bytes(), 0644); err != nil {
		// persistence is best-effort: the in-memory result is still delivered
		logging.Warn("Failed to persist thumbnail %s: %v", req.thumbPath, err)
		metrics.ThumbnailPersistErrors.Inc()
	} else {
		logging.Debug("Thumbnail persisted: %s", req.thumbPath)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
	metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	return thumb
}

// loadThumbnail decodes the source at a bounded size. The vips path shrinks
// during decode when libvips is available; the fallback decodes the full
// image and resizes with Lanczos resampling.
func loadThumbnail(location string, maxEdge int) image.Image {
	if IsVipsAvailable() {
		if img, err := loadWithVips(location, maxEdge, maxEdge); err == nil {
			return img
		} else {
			logging.Debug("vips thumbnail failed for %s: %v, falling back", location, err)
		}
	}

	img, err := imaging.Open(location, imaging.AutoOrientation(true))
	if err != nil {
		logging.Debug("Thumbnail decode failed for %s: %v", location, err)
		return nil
	}
	return imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
}

func (g *Generator) deliver(callbacks []Completion, img image.Image) {
	if len(callbacks) == 0 {
		return
	}
	g.disp.Async(func() {
		for _, fn := range callbacks {
			fn(img)
		}
	})
}

package assets

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"sync"

	"github.com/Conceptual-Machines/thumbforge-api/internal/imagedata"
	"github.com/Conceptual-Machines/thumbforge-api/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxAssets is the number of reference images kept per request
	MaxAssets = 3

	// MaxFileSize bounds a single uploaded file
	MaxFileSize = 10 << 20

	maxParallelReads = 4
)

// Collector accumulates uploaded images up to MaxAssets. Add is safe to call
// from concurrent readers; arrival order decides which images are kept.
type Collector struct {
	mu      sync.Mutex
	assets  []imagedata.Image
	dropped int
}

func NewCollector() *Collector {
	return &Collector{}
}

// Add keeps img unless the collector is full. It returns false when dropped.
func (c *Collector) Add(img imagedata.Image) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.assets) >= MaxAssets {
		c.dropped++
		return false
	}
	c.assets = append(c.assets, img)
	return true
}

// Assets returns a copy of the kept images
func (c *Collector) Assets() []imagedata.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]imagedata.Image, len(c.assets))
	copy(out, c.assets)
	return out
}

// DataURIs returns the kept images as data URIs
func (c *Collector) DataURIs() []string {
	images := c.Assets()
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.DataURI()
	}
	return out
}

// Dropped counts images rejected because the collector was full
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Skipped describes an upload that was not an acceptable image
type Skipped struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// ReadFiles reads the uploads concurrently and adds every image to the
// collector. Non-image or unreadable files are skipped and reported.
func ReadFiles(ctx context.Context, collector *Collector, files []*multipart.FileHeader) ([]Skipped, error) {
	var (
		mu      sync.Mutex
		skipped []Skipped
	)
	skip := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		skipped = append(skipped, Skipped{Filename: name, Reason: err.Error()})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for _, fh := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := readImage(fh)
			if err != nil {
				logger.Debug("Skipping upload", logger.Fields{"filename": fh.Filename, "error": err.Error()})
				skip(fh.Filename, err)
				return nil
			}
			collector.Add(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return skipped, err
	}
	return skipped, nil
}

func readImage(fh *multipart.FileHeader) (imagedata.Image, error) {
	if fh.Size > MaxFileSize {
		return imagedata.Image{}, fmt.Errorf("file exceeds %d bytes", MaxFileSize)
	}
	f, err := fh.Open()
	if err != nil {
		return imagedata.Image{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return imagedata.Image{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return imagedata.Image{}, imagedata.ErrEmpty
	}

	// The declared Content-Type is client supplied, so sniff the bytes instead.
	img := imagedata.New(data, "")
	if !img.IsImage() {
		return imagedata.Image{}, fmt.Errorf("%w: %s", imagedata.ErrNotImage, img.MIMEType)
	}
	return img, nil
}

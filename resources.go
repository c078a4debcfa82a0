package stain

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxIdleFrames is the number of frames an image may go unused before
// the cache releases it.
const DefaultMaxIdleFrames = 600

// DefaultFontSizes are the pixel sizes registered with the backend up front.
var DefaultFontSizes = []float32{10, 12, 14, 16, 20, 24, 34, 40, 48}

// contentHash identifies image payloads independent of where they came from.
type contentHash [sha256.Size]byte

type imageEntry struct {
	key      ImageKey
	size     Size
	lastUsed uint64
}

// sourceStamp remembers which content a file had when it was last read.
type sourceStamp struct {
	hash    contentHash
	modTime time.Time
	size    int64
}

type namedImage struct {
	img  *image.RGBA
	hash contentHash
}

// ResourceCache tracks the images and font instances registered with a
// backend. Images are keyed by a hash of their content, so two sources with
// identical bytes share one backend handle. Entries unused for MaxIdleFrames
// frames are evicted and a delete registration is queued for the backend.
//
// Registrations accumulate until Drain hands them to the next transaction.
// ResourceCache is safe for concurrent use.
type ResourceCache struct {
	// MaxIdleFrames is the eviction threshold. Zero disables eviction.
	MaxIdleFrames uint64

	mu        sync.Mutex
	frame     uint64
	nextImage ImageKey
	images    map[contentHash]*imageEntry
	sources   map[string]sourceStamp
	named     map[string]namedImage

	fontData      []byte
	font          FontKey
	fontAdded     bool
	nextInstance  FontInstanceKey
	fontInstances map[uint32]FontInstanceKey

	pending []ResourceUpdate
}

// NewResourceCache creates a cache whose text primitives refer to fontData.
func NewResourceCache(fontData []byte) *ResourceCache {
	return &ResourceCache{
		MaxIdleFrames: DefaultMaxIdleFrames,
		images:        make(map[contentHash]*imageEntry),
		sources:       make(map[string]sourceStamp),
		named:         make(map[string]namedImage),
		fontData:      fontData,
		font:          1,
		fontInstances: make(map[uint32]FontInstanceKey),
	}
}

// BeginFrame advances the frame counter and evicts images that have not been
// used within MaxIdleFrames frames.
func (c *ResourceCache) BeginFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame++
	if c.MaxIdleFrames == 0 {
		return
	}
	for hash, e := range c.images {
		if c.frame-e.lastUsed <= c.MaxIdleFrames {
			continue
		}
		delete(c.images, hash)
		c.pending = append(c.pending, ResourceUpdate{Kind: ResourceDeleteImage, Image: e.key})
		Logger().Debug("image evicted", "key", e.key, "idle", c.frame-e.lastUsed)
	}
}

// Frame returns the current frame number.
func (c *ResourceCache) Frame() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Image resolves source to a registered image handle and its pixel size.
// Named images registered with RegisterImageData are consulted first;
// anything else is read from disk. Errors wrap ErrImageLoad.
func (c *ResourceCache) Image(source string) (ImageKey, Size, error) {
	c.mu.Lock()
	if n, ok := c.named[source]; ok {
		key, size := c.registerLocked(n.hash, n.img)
		c.mu.Unlock()
		return key, size, nil
	}
	c.mu.Unlock()

	info, err := os.Stat(source)
	if err != nil {
		return 0, Size{}, fmt.Errorf("%w: stat %s: %w", ErrImageLoad, source, err)
	}

	c.mu.Lock()
	if st, ok := c.sources[source]; ok && st.modTime.Equal(info.ModTime()) && st.size == info.Size() {
		if e, ok := c.images[st.hash]; ok {
			e.lastUsed = c.frame
			c.mu.Unlock()
			return e.key, e.size, nil
		}
	}
	c.mu.Unlock()

	data, err := readImageSource(source)
	if err != nil {
		return 0, Size{}, err
	}
	hash := sha256.Sum256(data)

	c.mu.Lock()
	c.sources[source] = sourceStamp{hash: hash, modTime: info.ModTime(), size: info.Size()}
	if e, ok := c.images[hash]; ok {
		e.lastUsed = c.frame
		c.mu.Unlock()
		return e.key, e.size, nil
	}
	c.mu.Unlock()

	img, err := decodeImage(source, data)
	if err != nil {
		return 0, Size{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key, size := c.registerLocked(hash, img)
	return key, size, nil
}

// Placeholder returns the handle of a checkerboard image of the given pixel
// size, registering it on first use.
func (c *ResourceCache) Placeholder(w, h int) ImageKey {
	img := makeCheckerboard(w, h)
	hash := sha256.Sum256(img.Pix)

	c.mu.Lock()
	defer c.mu.Unlock()
	key, _ := c.registerLocked(hash, img)
	return key
}

// RegisterImageData makes img available to ImageRef sources named name.
// Registering a name again replaces its content.
func (c *ResourceCache) RegisterImageData(name string, img image.Image) {
	rgba := toRGBA(img)
	hash := sha256.Sum256(rgba.Pix)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.named[name] = namedImage{img: rgba, hash: hash}
}

// registerLocked returns the entry for hash, queueing an upload of img when
// the content is not yet registered. Callers hold c.mu.
func (c *ResourceCache) registerLocked(hash contentHash, img *image.RGBA) (ImageKey, Size) {
	if e, ok := c.images[hash]; ok {
		e.lastUsed = c.frame
		return e.key, e.size
	}
	c.nextImage++
	w, h := img.Rect.Dx(), img.Rect.Dy()
	e := &imageEntry{
		key:      c.nextImage,
		size:     Size{float32(w), float32(h)},
		lastUsed: c.frame,
	}
	c.images[hash] = e
	c.pending = append(c.pending, ResourceUpdate{
		Kind:  ResourceAddImage,
		Image: e.key,
		Descriptor: ImageDescriptor{
			Width:  w,
			Height: h,
			Format: ImageFormatRGBA8,
			Opaque: isOpaque(img),
		},
		Pixels: img.Pix,
	})
	return e.key, e.size
}

// Preload reads and registers every source concurrently. It stops at the
// first failure.
func (c *ResourceCache) Preload(ctx context.Context, sources []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, _, err := c.Image(src)
			return err
		})
	}
	return g.Wait()
}

// FontInstance returns the handle of the cache's font at size pixels,
// registering the font file and the instance on first use. Sizes are
// rounded to whole pixels.
func (c *ResourceCache) FontInstance(size float32) FontInstanceKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fontInstanceLocked(size)
}

// SeedFontSizes registers instances for every size up front.
func (c *ResourceCache) SeedFontSizes(sizes []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range sizes {
		c.fontInstanceLocked(s)
	}
}

func (c *ResourceCache) fontInstanceLocked(size float32) FontInstanceKey {
	if !c.fontAdded {
		c.pending = append(c.pending, ResourceUpdate{Kind: ResourceAddFont, Font: c.font, FontData: c.fontData})
		c.fontAdded = true
	}
	px := uint32(size + 0.5)
	if key, ok := c.fontInstances[px]; ok {
		return key
	}
	c.nextInstance++
	key := c.nextInstance
	c.fontInstances[px] = key
	c.pending = append(c.pending, ResourceUpdate{
		Kind:         ResourceAddFontInstance,
		Font:         c.font,
		FontInstance: key,
		Size:         float32(px),
	})
	return key
}

// Pending returns the number of registrations waiting for a transaction.
func (c *ResourceCache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Drain returns and clears the queued registrations.
func (c *ResourceCache) Drain() []ResourceUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

// Requeue puts registrations that may not have reached the backend back at
// the front of the queue, ahead of anything queued since, so the next
// transaction carries them. Sending an update twice is harmless: adds
// overwrite the same key and deletes of unknown keys are ignored.
func (c *ResourceCache) Requeue(updates []ResourceUpdate) {
	if len(updates) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	Logger().Debug("registrations requeued", "count", len(updates))
	c.pending = append(slices.Clip(updates), c.pending...)
}

// Len returns the number of images currently registered.
func (c *ResourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

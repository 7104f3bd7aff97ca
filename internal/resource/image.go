package resource

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // registers the GIF decoder
	_ "image/jpeg" // registers the JPEG decoder
	"image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"  // registers the BMP decoder
	_ "golang.org/x/image/webp" // registers the WebP decoder

	"framekit/internal/docmodel"
)

// ImageKind is the factory id of image items
const ImageKind = "r_img"

// ImageExtensions are the file types a native drop turns into images
var ImageExtensions = []string{".png", ".bmp", ".jpg", ".jpeg", ".webp"}

// Image is a still image, read from a file or embedded as raw pixels. Raw images keep
// their pixels while offline; file images drop them.
type Image struct {
	Path string

	mu      sync.Mutex
	raw     []byte // PNG encoding of embedded pixels
	decoded image.Image
}

func (c *Image) Kind() string { return ImageKind }

// Clone copies the path or the embedded pixels. Decoded pixels of a file image are not
// copied; the clone loads them when it comes online.
func (c *Image) Clone() Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := &Image{Path: c.Path}
	if c.raw != nil {
		cp.raw = append([]byte(nil), c.raw...)
	}
	return cp
}

// IsRaw reports whether the pixels are embedded rather than read from Path
func (c *Image) IsRaw() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw != nil
}

// Decoded returns the loaded pixels, nil while offline
func (c *Image) Decoded() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decoded
}

// SetRaw embeds img, replacing any file reference
func (c *Image) SetRaw(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode raw image: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Path = ""
	c.raw = buf.Bytes()
	c.decoded = img
	return nil
}

func (c *Image) Serialise(data docmodel.Dict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw != nil {
		data.SetBool("IsRawBitmapMode", true)
		data.SetBytes("Bitmap", c.raw)
		return
	}
	if c.Path != "" {
		data.SetString("FilePath", c.Path)
	}
}

func (c *Image) Deserialise(data docmodel.Dict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data.GetBool("IsRawBitmapMode", false) {
		raw, err := data.GetBytes("Bitmap")
		if err != nil {
			return err
		}
		c.raw = raw
		return nil
	}
	c.Path = data.GetString("FilePath", "")
	return nil
}

func (c *Image) TryAutoEnable(ctx context.Context, item *Item, loader *Loader) bool {
	c.mu.Lock()
	path, raw, loaded := c.Path, c.raw, c.decoded != nil
	c.mu.Unlock()
	if loaded || (path == "" && raw == nil) {
		return true
	}

	var (
		img image.Image
		err error
	)
	if raw != nil {
		img, _, err = image.Decode(bytes.NewReader(raw))
	} else {
		img, err = decodeImageFile(ctx, path)
	}
	if err != nil {
		loader.Add(InvalidEntry{Item: item, Reason: "cannot load image", Path: path, Err: err})
		return false
	}
	c.mu.Lock()
	c.decoded = img
	c.mu.Unlock()
	return true
}

func (c *Image) TryEnableForEntry(ctx context.Context, item *Item, entry InvalidEntry) bool {
	if entry.Path == "" {
		return c.TryAutoEnable(ctx, item, nil)
	}
	img, err := decodeImageFile(ctx, entry.Path)
	if err != nil {
		return false
	}
	c.mu.Lock()
	c.Path = entry.Path
	c.raw = nil
	c.decoded = img
	c.mu.Unlock()
	return true
}

// Release drops decoded pixels of file images
func (c *Image) Release(*Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil {
		c.decoded = nil
	}
	return nil
}

// Destroy drops everything, embedded pixels included
func (c *Image) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoded = nil
	c.raw = nil
	return nil
}

func decodeImageFile(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(bufio.NewReaderSize(f, 32*1024))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("image has no pixels")
	}
	return img, nil
}

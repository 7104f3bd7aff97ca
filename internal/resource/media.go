package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"framekit/internal/docmodel"
)

// AVMediaKind is the factory id of audio/video items
const AVMediaKind = "r_avmedia"

// MediaExtensions are the file types a native drop turns into media items
var MediaExtensions = []string{
	".gif", ".mp3", ".wav", ".ogg", ".mp4", ".wmv", ".avi", ".avchd", ".f4v",
	".swf", ".mov", ".mkv", ".qt", ".webm", ".flv",
}

// AVMedia is an audio or video file. While online it keeps the file open for the decoder
// of the single clip allowed to use it.
type AVMedia struct {
	Path string

	mu          sync.Mutex
	file        *os.File
	size        int64
	contentType string
}

func (c *AVMedia) Kind() string { return AVMediaKind }

// LinkLimit allows one clip per media item; each clip owns its decoder state
func (c *AVMedia) LinkLimit() int { return 1 }

func (c *AVMedia) Clone() Content {
	return &AVMedia{Path: c.Path}
}

// Info returns the size and sniffed content type of the open file
func (c *AVMedia) Info() (size int64, contentType string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, c.contentType, c.file != nil
}

// ReaderAt exposes the open file, nil while offline
func (c *AVMedia) ReaderAt() io.ReaderAt {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	return c.file
}

func (c *AVMedia) Serialise(data docmodel.Dict) {
	if c.Path != "" {
		data.SetString("FilePath", c.Path)
	}
}

func (c *AVMedia) Deserialise(data docmodel.Dict) error {
	c.Path = data.GetString("FilePath", "")
	return nil
}

func (c *AVMedia) TryAutoEnable(ctx context.Context, item *Item, loader *Loader) bool {
	if c.Path == "" {
		return true
	}
	if err := c.open(ctx, c.Path); err != nil {
		loader.Add(InvalidEntry{Item: item, Reason: "cannot open media file", Path: c.Path, Err: err})
		return false
	}
	return true
}

func (c *AVMedia) TryEnableForEntry(ctx context.Context, item *Item, entry InvalidEntry) bool {
	path := entry.Path
	if path == "" {
		path = c.Path
	}
	if err := c.open(ctx, path); err != nil {
		return false
	}
	c.Path = path
	return true
}

func (c *AVMedia) open(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return fmt.Errorf("%s is not a regular file", path)
	}
	head := make([]byte, 512)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file != nil {
		c.file.Close()
	}
	c.file = f
	c.size = st.Size()
	c.contentType = http.DetectContentType(head[:n])
	return nil
}

// Release closes the file
func (c *AVMedia) Release(*Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	c.size = 0
	c.contentType = ""
	return err
}

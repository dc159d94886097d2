package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/Sumit771/1-2-1/internal/domain"
	"github.com/Sumit771/1-2-1/pkg/log"
)

// RoutePrefix is the URL prefix under which stored images are served.
const RoutePrefix = "/api/images/"

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type Config struct {
	MaxSize   int64
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// Processor validates uploaded images, shrinks them to fit the configured
// bounds and stores them as JPEG.
type Processor struct {
	store *LocalStorage
	cfg   Config
	now   func() time.Time
}

func NewProcessor(store *LocalStorage, cfg Config) *Processor {
	return &Processor{store: store, cfg: cfg, now: time.Now}
}

// Upload describes a stored image.
type Upload struct {
	Filename string `json:"filename"`
	Ref      string `json:"imageUrl"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Process reads an uploaded image from r and stores the re-encoded result.
// Oversized input, unsupported content types and undecodable data are
// validation errors.
func (p *Processor) Process(ctx context.Context, originalName, contentType string, r io.Reader) (*Upload, error) {
	if !allowedTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return nil, domain.NewValidationError("Invalid image format. Only JPEG, PNG, WebP, and GIF are allowed")
	}

	data, err := io.ReadAll(io.LimitReader(r, p.cfg.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > p.cfg.MaxSize {
		return nil, domain.NewValidationError(fmt.Sprintf("Image size exceeds maximum of %gMB", float64(p.cfg.MaxSize)/1024/1024))
	}
	if len(data) == 0 {
		return nil, domain.NewValidationError("No image file provided")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.NewValidationError("File is not a valid image")
	}

	resized := imaging.Fit(img, p.cfg.MaxWidth, p.cfg.MaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(p.cfg.Quality)); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	filename := fmt.Sprintf("%d_%s.jpg", p.now().UnixMilli(), sanitizeFilename(originalName))
	if err := p.store.Write(ctx, filename, &buf); err != nil {
		return nil, fmt.Errorf("storing image: %w", err)
	}

	bounds := resized.Bounds()
	l := log.Ctx(ctx)
	l.Debug().Str("file", filename).Int("width", bounds.Dx()).Int("height", bounds.Dy()).Msg("image stored")

	return &Upload{
		Filename: filename,
		Ref:      RoutePrefix + filename,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

// Remove deletes the file behind an image reference.
func (p *Processor) Remove(ctx context.Context, ref string) error {
	name, ok := FilenameFromRef(ref)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidName, ref)
	}
	return p.store.Delete(ctx, name)
}

// Open returns the stored file called name.
func (p *Processor) Open(ctx context.Context, name string) (*os.File, error) {
	return p.store.Open(ctx, name)
}

// CleanupOlderThan removes stored files older than age.
func (p *Processor) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	return p.store.CleanupOlderThan(ctx, age)
}

// FilenameFromRef extracts the stored file name from an image reference.
func FilenameFromRef(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, RoutePrefix)
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}
	return name, true
}

// sanitizeFilename reduces an uploaded name to a safe stem without its
// extension.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.ReplaceAll(name, "..", "")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ".")
	if name == "" || name == "_" {
		return "image"
	}
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

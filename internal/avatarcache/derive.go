package avatarcache

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Register decoders for the formats avatar sources realistically use.
	_ "image/gif"
	_ "image/png"

	apperrors "github.com/target/sessionkit/internal/errors"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSizeThreshold is the source size above which local downscaling
	// kicks in. Smaller sources are cached by reference, unchanged.
	DefaultSizeThreshold = 128 * 1024

	// maxSourceBytes bounds how much of a remote source is ever read.
	maxSourceBytes = 8 * 1024 * 1024
)

// decoratedHost is the third-party image host whose resources accept size
// parameters, making local processing unnecessary.
const decoratedHost = "googleusercontent.com"

// tierPixels maps quality tiers to target square dimensions.
var tierPixels = map[QualityTier]int{
	TierSmall: 48,
	TierLarge: 96,
}

// DeriverOptions groups construction parameters for Deriver.
type DeriverOptions struct {
	HTTPClient    *http.Client
	SizeThreshold int64
	JPEGQuality   int
	Logger        *slog.Logger
}

// Deriver produces the derived artifact for a source reference. Concurrent
// derivations of the same key are collapsed into one.
type Deriver struct {
	httpClient    *http.Client
	sizeThreshold int64
	jpegQuality   int
	logger        *slog.Logger
	group         singleflight.Group
}

// NewDeriver constructs a Deriver.
func NewDeriver(opts DeriverOptions) *Deriver {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	threshold := opts.SizeThreshold
	if threshold <= 0 {
		threshold = DefaultSizeThreshold
	}
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{
		httpClient:    httpClient,
		sizeThreshold: threshold,
		jpegQuality:   quality,
		logger:        logger,
	}
}

// Derive returns the artifact for a source reference at a quality tier:
// a parameter-decorated URL for recognized hosts, a downscaled data URL for
// large sources, or the original reference for small ones.
func (d *Deriver) Derive(ctx context.Context, sourceRef string, tier QualityTier) (string, error) {
	if sourceRef == "" {
		return "", apperrors.Validation("source reference is required")
	}

	key := Key(sourceRef, tier)
	artifact, err, _ := d.group.Do(key, func() (any, error) {
		return d.derive(ctx, sourceRef, tier)
	})
	if err != nil {
		return "", err
	}
	return artifact.(string), nil
}

func (d *Deriver) derive(ctx context.Context, sourceRef string, tier QualityTier) (string, error) {
	if decorated, ok := decorateRecognizedHost(sourceRef, tier); ok {
		return decorated, nil
	}

	body, err := d.fetch(ctx, sourceRef)
	if err != nil {
		return "", err
	}

	if int64(len(body)) <= d.sizeThreshold {
		return sourceRef, nil
	}

	artifact, err := d.downscale(body, tier)
	if err != nil {
		// Undecodable sources fall back to the original reference; the
		// cache still bounds how often that decision is revisited.
		d.logger.Warn("avatar downscale failed, caching source unchanged",
			slog.String("source", sourceRef),
			slog.String("error", err.Error()))
		return sourceRef, nil
	}
	return artifact, nil
}

func (d *Deriver) fetch(ctx context.Context, sourceRef string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceRef, nil)
	if err != nil {
		return nil, apperrors.Validationf("invalid source reference %q", sourceRef)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Transport("fetch avatar source", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.logger.Debug("close avatar source body failed", slog.String("error", cerr.Error()))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.RemoteRejected(fmt.Sprintf("avatar source returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, apperrors.Transport("read avatar source", err)
	}
	return body, nil
}

// downscale box-averages the image down to the tier's square bound and
// re-encodes it as a JPEG data URL.
func (d *Deriver) downscale(body []byte, tier QualityTier) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	target := tierPixels[tier]
	if target <= 0 {
		target = tierPixels[TierSmall]
	}
	scaled := boxScale(src, target)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: d.jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decorateRecognizedHost rewrites references on the recognized image host to
// a parameter-decorated form of the same remote resource. Cheap, no local
// processing.
func decorateRecognizedHost(sourceRef string, tier QualityTier) (string, bool) {
	u, err := url.Parse(sourceRef)
	if err != nil || u.Host == "" {
		return "", false
	}
	etld, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil || etld != decoratedHost {
		return "", false
	}

	px := tierPixels[tier]
	if px <= 0 {
		px = tierPixels[TierSmall]
	}

	// These URLs carry sizing directives after a trailing "=".
	path := u.Path
	if idx := strings.LastIndex(path, "="); idx >= 0 {
		path = path[:idx]
	}
	u.Path = fmt.Sprintf("%s=s%d-c", path, px)
	return u.String(), true
}

// boxScale shrinks src so its longer side is at most target pixels, averaging
// the covered source box per destination pixel. Images already within bounds
// are returned as-is.
func boxScale(src image.Image, target int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= target && h <= target {
		return src
	}

	outW, outH := target, target
	if w > h {
		outH = h * target / w
	} else {
		outW = w * target / h
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for dy := 0; dy < outH; dy++ {
		sy0 := bounds.Min.Y + dy*h/outH
		sy1 := bounds.Min.Y + (dy+1)*h/outH
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		for dx := 0; dx < outW; dx++ {
			sx0 := bounds.Min.X + dx*w/outW
			sx1 := bounds.Min.X + (dx+1)*w/outW
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}

			var r, g, b, a, n uint64
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					pr, pg, pb, pa := src.At(sx, sy).RGBA()
					r += uint64(pr)
					g += uint64(pg)
					b += uint64(pb)
					a += uint64(pa)
					n++
				}
			}
			i := dst.PixOffset(dx, dy)
			dst.Pix[i+0] = uint8(r / n >> 8)
			dst.Pix[i+1] = uint8(g / n >> 8)
			dst.Pix[i+2] = uint8(b / n >> 8)
			dst.Pix[i+3] = uint8(a / n >> 8)
		}
	}
	return dst
}

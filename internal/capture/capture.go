// Package capture turns camera frames and uploaded photos into the JPEG data URLs that
// study results store and the analysis request sends.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// Quality is the fixed JPEG compression quality for captured frames.
	Quality = 85
	// MaxEdge bounds the longest side of a stored frame in pixels.
	MaxEdge = 2048

	dataURLPrefix = "data:image/jpeg;base64,"
)

// ErrInvalidImage is returned for empty or undecodable input.
var ErrInvalidImage = errors.New("invalid image")

// Normalize decodes any supported image, downscales it to MaxEdge and re-encodes it as a
// JPEG data URL.
func Normalize(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrInvalidImage)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img := downscale(src, MaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// NormalizeAll runs Normalize over every frame concurrently. The output keeps input order.
func NormalizeAll(ctx context.Context, frames [][]byte) ([]string, error) {
	out := make([]string, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	for i, frame := range frames {
		i, frame := i, frame
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			url, err := Normalize(frame)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			out[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func downscale(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}
	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// SplitDataURL returns the media type and base64 payload of a data URL. Bare base64 is
// reported as image/jpeg.
func SplitDataURL(s string) (mediaType, payload string) {
	if !strings.HasPrefix(s, "data:") {
		return "image/jpeg", s
	}
	head, body, ok := strings.Cut(s, ",")
	if !ok {
		return "image/jpeg", s
	}
	mediaType = strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return mediaType, body
}

// DecodeDataURL returns the raw bytes of a data URL or bare base64 string.
func DecodeDataURL(s string) ([]byte, error) {
	_, payload := SplitDataURL(s)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return data, nil
}

package scribeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
	maxImageSize  = 10 << 20 // 10MB
)

// errImageTooLarge is returned when a featured image exceeds maxImageSize.
var errImageTooLarge = errors.New("image too large")

// processImage decodes an image from src, resizes it to maxImageWidth when
// wider, and encodes it as JPEG.
func processImage(src io.Reader) (Cover, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Cover{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Cover{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Cover{Width: w, Height: h, Data: buf.Bytes()}, nil
}

// fetchImage downloads url, refusing bodies over maxImageSize.
func (a *App) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageSize {
		return nil, errImageTooLarge
	}
	return data, nil
}

// handleCover serves a post's featured image resized for the blog. Resized
// covers are cached in the store until the post's image URL changes.
func (a *App) handleCover(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if post.FeaturedImage == "" {
		if err := a.Store.DeleteCover(post.Slug); err != nil {
			c.Logger().Errorf("delete cover %s: %v", post.Slug, err)
		}
		return echo.ErrNotFound
	}

	cover, err := a.Store.GetCover(post.Slug, post.FeaturedImage)
	if err == nil {
		return c.Blob(http.StatusOK, "image/jpeg", cover.Data)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	data, err := a.fetchImage(ctx, post.FeaturedImage)
	if err != nil {
		c.Logger().Errorf("fetch cover %s: %v", post.Slug, err)
		return echo.ErrNotFound
	}
	cover, err = processImage(bytes.NewReader(data))
	if err != nil {
		c.Logger().Errorf("process cover %s: %v", post.Slug, err)
		return echo.ErrNotFound
	}
	cover.Slug = post.Slug
	cover.SourceURL = post.FeaturedImage
	if err := a.Store.SaveCover(cover); err != nil {
		c.Logger().Errorf("save cover %s: %v", post.Slug, err)
	}
	return c.Blob(http.StatusOK, "image/jpeg", cover.Data)
}

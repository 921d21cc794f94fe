// Package imagehost uploads evidence images to an SM.MS style hosting service.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // evidence screenshots are usually png
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const compressThreshold = 1024 * 1024

// ErrRateLimited means the host rejected the upload because of flood control.
var ErrRateLimited = errors.New("image host rate limited")

type Client struct {
	baseURL string
	auth    string
	httpc   *http.Client
	log     zerolog.Logger
}

func New(auth string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://smms.app/api/v2",
		auth:    auth,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		log:     logger.With().Str("client", "imagehost").Logger(),
	}
}

// Upload pushes raw image bytes and returns the public URL. Oversized images
// are recompressed first so the host accepts them.
func (c *Client) Upload(ctx context.Context, data []byte) (string, error) {
	if len(data) > compressThreshold {
		compressed, err := compress(data)
		if err != nil {
			return "", fmt.Errorf("compress: %w", err)
		}
		data = compressed
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("smfile", "evidence.jpg")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", c.auth)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return parseUploadResponse(raw)
}

func parseUploadResponse(raw []byte) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("image host response: %w", err)
	}

	switch {
	case out.Success:
		return out.Data.URL, nil
	case out.Code == "image_repeated":
		// the host answers with the existing URL buried in the message text
		if i := strings.Index(out.Message, "https:"); i >= 0 {
			return out.Message[i:], nil
		}
		return "", fmt.Errorf("image host: %s", out.Message)
	case strings.Contains(out.Message, "Flood detected"):
		return "", ErrRateLimited
	default:
		return "", fmt.Errorf("image host: %s", out.Message)
	}
}

// compress re-encodes an image as JPEG quality 72, flattening transparency
// onto white the way the original screenshots tolerate.
func compress(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, img, bounds.Min, draw.Over)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, flat, &jpeg.Options{Quality: 72}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

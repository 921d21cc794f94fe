package bfban

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// TokenProvider yields the current session token for authenticated calls.
type TokenProvider interface {
	Get(ctx context.Context) (string, error)
}

// CaseClient talks to the case tracking service.
type CaseClient struct {
	host   string
	httpc  *http.Client
	tokens TokenProvider
	log    zerolog.Logger
}

func NewCaseClient(host string, tokens TokenProvider, logger zerolog.Logger) *CaseClient {
	return &CaseClient{
		host:   host,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
		log:    logger.With().Str("client", "case").Logger(),
	}
}

// CaseStatus returns the display label for a player's current case, 未被举报
// when no case is open.
func (c *CaseClient) CaseStatus(ctx context.Context, pid int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/player?personaId=%d", c.host, pid), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Code string `json:"code"`
		Data struct {
			Status int `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("case status: %w", err)
	}
	if out.Code != "player.ok" {
		return StatusNotReported, nil
	}
	return StatusLabel(out.Data.Status), nil
}

// FetchCaptcha requests a fresh challenge. The t parameter is a cache buster.
func (c *CaseClient) FetchCaptcha(ctx context.Context) (Captcha, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/captcha?t=%v", c.host, rand.Float64()), nil)
	if err != nil {
		return Captcha{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return Captcha{}, err
	}
	defer resp.Body.Close()

	var out struct {
		Data Captcha `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Captcha{}, fmt.Errorf("captcha fetch: %w", err)
	}
	return out.Data, nil
}

// SubmitReport posts the report payload and returns the upstream result code.
func (c *CaseClient) SubmitReport(ctx context.Context, body ReportBody) (string, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/api/player/report", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-access-token", token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("report response (%d): %w %s", resp.StatusCode, err, raw)
	}
	c.log.Info().Str("code", out.Code).Str("target", body.Data.OriginName).Msg("report submitted")
	return out.Code, nil
}

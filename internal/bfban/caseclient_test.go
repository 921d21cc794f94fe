package bfban

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Get(context.Context) (string, error) { return string(s), nil }

func newCaseTestClient(t *testing.T, handler http.Handler) *CaseClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewCaseClient(server.URL, staticToken("tok-123"), zerolog.Nop())
}

func TestCaseStatusMapsCodes(t *testing.T) {
	tests := []struct {
		code   string
		status int
		want   string
	}{
		{"player.ok", -1, "未被举报"},
		{"player.ok", 1, "石锤"},
		{"player.ok", 5, "讨论中"},
		{"player.ok", 6, "即将石锤"},
		{"player.ok", 99, "查询失败"},
		{"player.notFound", 0, "未被举报"},
	}
	for _, tt := range tests {
		c := newCaseTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/player", r.URL.Path)
			_, _ = fmt.Fprintf(w, `{"code": %q, "data": {"status": %d}}`, tt.code, tt.status)
		}))
		got, err := c.CaseStatus(context.Background(), 555)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "code=%s status=%d", tt.code, tt.status)
	}
}

func TestFetchCaptcha(t *testing.T) {
	c := newCaseTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/captcha", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("t"), "cache buster present")
		_, _ = w.Write([]byte(`{"data": {"hash": "h1", "content": "<svg/>"}}`))
	}))

	got, err := c.FetchCaptcha(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Captcha{Hash: "h1", Content: "<svg/>"}, got)
}

func TestSubmitReportSendsTokenAndBody(t *testing.T) {
	var gotToken string
	var gotBody ReportBody
	c := newCaseTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/player/report", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotToken = r.Header.Get("x-access-token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"code": "report.success"}`))
	}))

	body := ReportBody{
		Data: ReportData{
			Game:         "bfv",
			OriginName:   "abc123",
			CheatMethods: []string{"wallhack"},
			Description:  "<p>desc</p>",
		},
		EncryptCaptcha: "h1",
		Captcha:        "a1B2",
	}
	code, err := c.SubmitReport(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "report.success", code)
	assert.Equal(t, "tok-123", gotToken)
	assert.Equal(t, body, gotBody)
}

func TestStatusLabelHelpers(t *testing.T) {
	assert.True(t, ConfirmedCheater("石锤"))
	assert.True(t, ConfirmedCheater("即将石锤"))
	assert.False(t, ConfirmedCheater("讨论中"))

	assert.True(t, CleanStatus(StatusNotReported))
	assert.True(t, CleanStatus(StatusTimeout))
	assert.True(t, CleanStatus(StatusQueryFailed))
	assert.False(t, CleanStatus("待自证"))

	assert.Equal(t, "未处理", StatusLabel(0))
	assert.Equal(t, StatusQueryFailed, StatusLabel(12345))
}

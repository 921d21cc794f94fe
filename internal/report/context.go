package report

import (
	"fmt"
	"strings"
	"time"

	"bfban-bot/internal/bfban"
)

// Context is the mutable state of one in-flight report. It is owned
// exclusively by the registry entry for its target; the single flow instance
// driving the steps is the only writer.
type Context struct {
	TargetName string
	TargetPID  int64
	ReporterID int64
	OriginID   int64

	Stats    *bfban.StatsSnapshot
	GameType string

	descriptions []string
	imageURLs    []string

	CaptchaHash   string
	CaptchaAnswer string
	CaptchaImage  []byte
	CaptchaURL    string
}

func NewContext(target string, pid, reporter, origin int64) *Context {
	return &Context{
		TargetName: target,
		TargetPID:  pid,
		ReporterID: reporter,
		OriginID:   origin,
	}
}

func (c *Context) AddDescription(paragraphs ...string) {
	c.descriptions = append(c.descriptions, paragraphs...)
}

func (c *Context) AddImageURL(url string) {
	c.imageURLs = append(c.imageURLs, url)
}

func (c *Context) Descriptions() []string {
	return append([]string(nil), c.descriptions...)
}

func (c *Context) ImageURLs() []string {
	return append([]string(nil), c.imageURLs...)
}

// Description assembles the HTML report body: bot header with the masked
// origin, the stats digest, then the user's paragraphs and evidence images.
func (c *Context) Description() string {
	head := fmt.Sprintf("<p>This report comes from common robots (source group: %sat: %s)</p><br>BOT共获取到以下玩家数据信息：<br><br>",
		maskOrigin(c.OriginID), time.Now().Format("2006-01-02 15:04"))

	stats := "获取失败"
	if c.Stats != nil {
		stats = c.Stats.StatsInfo()
	}

	body := strings.Join(c.descriptions, "<br>")

	var img strings.Builder
	for _, url := range c.imageURLs {
		img.WriteString(fmt.Sprintf(`<img src="%s">`, url))
	}

	return fmt.Sprintf("%s%s<br>以下为玩家提供的举报信息：<br><br>%s%s", head, stats, body, img.String())
}

// Payload builds the submission body for the case service.
func (c *Context) Payload() bfban.ReportBody {
	return bfban.ReportBody{
		Data: bfban.ReportData{
			Game:         c.GameType,
			OriginName:   c.TargetName,
			CheatMethods: []string{"wallhack"},
			VideoLink:    "",
			Description:  c.Description(),
		},
		EncryptCaptcha: c.CaptchaHash,
		Captcha:        c.CaptchaAnswer,
	}
}

// maskOrigin keeps the first four digits of the origin id and stars the rest.
func maskOrigin(id int64) string {
	s := fmt.Sprint(id)
	if len(s) <= 4 {
		return s
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

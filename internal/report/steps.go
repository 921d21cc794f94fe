package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	cancelKeyword = "取消"
	skipKeyword   = "无"

	minDescriptionLen = 12
)

var captchaRe = regexp.MustCompile(`^[A-Za-z0-9]{4}`)

type stepFunc func(ctx context.Context, rc *Context, msg Message) Outcome

// runStep wraps a step with the shared guards: the cancel keyword wins over
// any step logic, and a panic never escapes to the orchestrator.
func (f *Flow) runStep(ctx context.Context, rc *Context, msg Message, step stepFunc) (out Outcome) {
	if strings.TrimSpace(msg.Text) == cancelKeyword && !msg.HasImage() {
		return Outcome{Code: CodeCancel}
	}

	defer func() {
		if r := recover(); r != nil {
			f.Log.Error().Interface("panic", r).Str("target", rc.TargetName).Msg("step panicked")
			out = Outcome{Code: CodeError, Reply: Reply{Text: fmt.Sprintf("发生了未捕获的异常: %v", r)}}
		}
	}()

	return step(ctx, rc, msg)
}

// stepSelectGame matches the game aliases. On the bfv family it also tries to
// pre-fetch the stats snapshot; a failed fetch is logged, not surfaced.
func (f *Flow) stepSelectGame(ctx context.Context, rc *Context, msg Message) Outcome {
	const imagePrompt = "请输入举报的图片，受服务器容量限制暂只支持一张"

	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case "1", "一", "战地1", "战地一", "bf1":
		return Outcome{Code: CodeContinue, Reply: Reply{Text: imagePrompt}, Value: "bf1"}
	case "5", "五", "战地5", "战地五", "bf5":
		f.notify(ctx, rc, "正在获取玩家游戏数据快照")
		stats, err := f.Stats.QueryFullStats(ctx, "bfv", rc.TargetName, rc.TargetPID)
		if err != nil {
			f.Log.Warn().Err(err).Str("target", rc.TargetName).Msg("stats prefetch failed")
		} else {
			rc.Stats = stats
		}
		return Outcome{Code: CodeContinue, Reply: Reply{Text: imagePrompt}, Value: "bfv"}
	case "2042", "战地2042", "bf2042":
		return Outcome{Code: CodeContinue, Reply: Reply{Text: imagePrompt}, Value: "bf6"}
	default:
		return Outcome{Code: CodeRetry, Reply: Reply{Text: "请输入正确的游戏名"}}
	}
}

// stepUploadImage accepts one evidence image, the skip keyword, or re-prompts.
// A hosting failure does not block the report: the flow continues with no
// image attached.
func (f *Flow) stepUploadImage(ctx context.Context, rc *Context, msg Message) Outcome {
	if strings.TrimSpace(msg.Text) == skipKeyword {
		return Outcome{Code: CodeContinue, Reply: Reply{Text: "跳过了图片上传"}}
	}
	if !msg.HasImage() {
		return Outcome{Code: CodeRetry, Reply: Reply{Text: "请发送图片消息，回复\"无\"以跳过上传，回复\"取消\"放弃"}}
	}

	f.notify(ctx, rc, "正在上传图片")
	url, err := f.Images.Upload(ctx, msg.Image)
	if err != nil {
		return Outcome{Code: CodeContinue, Reply: Reply{Text: fmt.Sprintf("图片上传失败，错误信息：%v", err)}}
	}

	rc.AddImageURL(url)
	return Outcome{Code: CodeContinue, Reply: Reply{Text: "图片上传成功"}, Value: url}
}

// stepCollectDescription takes the free-text report body, then fetches and
// renders the captcha challenge for the final step.
func (f *Flow) stepCollectDescription(ctx context.Context, rc *Context, msg Message) Outcome {
	if msg.HasImage() {
		return Outcome{Code: CodeRetry, Reply: Reply{Text: "不支持的消息类型，请发送举报的文字信息"}}
	}

	text := msg.Text
	if utf8.RuneCountInString(text) < minDescriptionLen {
		return Outcome{Code: CodeRetry, Reply: Reply{Text: "请输入更详细的举报信息，图片可能会失效，所以请不要只依靠图片来描述举报信息。" +
			"如若涉及具体的对局请至 https://battlefieldtracker.com" +
			fmt.Sprintf("/%s/profile/origin/%s/gamereports ", rc.GameType, rc.TargetName) +
			"查询游戏战报后附加在举报内容中"}}
	}

	for _, line := range strings.Split(text, "\n") {
		rc.AddDescription(fmt.Sprintf("<p>%s</p>", line))
	}

	f.notify(ctx, rc, "正在获取验证码")

	challenge, err := f.Cases.FetchCaptcha(ctx)
	if err != nil {
		f.Log.Warn().Err(err).Msg("captcha fetch failed, retrying")
		if challenge, err = f.Cases.FetchCaptcha(ctx); err != nil {
			f.Log.Error().Err(err).Msg("captcha fetch failed twice")
			return Outcome{Code: CodeError, Reply: Reply{Text: "验证码获取失败"}}
		}
	}
	rc.CaptchaHash = challenge.Hash

	img, err := f.Renderer.Render(challenge.Content)
	if err != nil {
		f.Log.Error().Err(err).Msg("captcha render failed")
		return Outcome{Code: CodeError, Reply: Reply{Text: "验证码获取失败"}}
	}
	rc.CaptchaImage = img

	if f.Mirror != nil {
		go f.mirrorCaptcha(rc, base64.StdEncoding.EncodeToString(img))
	}

	return Outcome{Code: CodeContinue, Reply: Reply{Text: "请输入验证码以提交举报\n", Image: img}, Value: text}
}

// mirrorCaptcha uploads the rendered captcha to the secondary host and tells
// the chat where to find it. Failures only get logged.
func (f *Flow) mirrorCaptcha(rc *Context, imgBase64 string) {
	ctx := context.Background()
	url, err := f.Mirror.Upload(ctx, imgBase64)
	if err != nil {
		f.Log.Warn().Err(err).Msg("captcha mirror upload failed")
		return
	}
	rc.CaptchaURL = url
	f.notify(ctx, rc, fmt.Sprintf("若验证码图片发送失败请手动查看:\n%s", url))
}

// stepVerifyCaptcha validates the transcription and submits the report.
func (f *Flow) stepVerifyCaptcha(ctx context.Context, rc *Context, msg Message) Outcome {
	if msg.HasImage() {
		return Outcome{Code: CodeRetry, Reply: Reply{Text: "不支持的消息类型，请输入验证码"}}
	}

	answer := strings.TrimSpace(msg.Text)
	if !captchaRe.MatchString(answer) {
		return Outcome{Code: CodeRetry, Reply: Reply{Text: "请输入正确的验证码"}}
	}
	rc.CaptchaAnswer = answer

	code, err := f.Cases.SubmitReport(ctx, rc.Payload())
	if err != nil {
		f.Log.Error().Err(err).Str("target", rc.TargetName).Msg("report submission failed")
		return Outcome{Code: CodeError, Reply: Reply{Text: "糟糕！举报失败，连接BFBAN服务器发生错误"}}
	}

	switch code {
	case "report.success":
		return Outcome{Code: CodeSucceed, Reply: Reply{Text: fmt.Sprintf(
			"举报\"%s\"成功\n案件链接：%s\n感谢你对游戏做出的贡献喵\n存在问题请提交issues：https://github.com/KitaProject/BfbanCommonRobot/issues",
			rc.TargetName, f.caseURL(rc.TargetPID))}}
	case "captcha.wrong":
		return Outcome{Code: CodeRetry, Reply: Reply{Text: "验证码输入错误，请重新输入", Image: rc.CaptchaImage}}
	case "user.tokenExpired":
		return Outcome{Code: CodeFailed, Reply: Reply{Text: fmt.Sprintf("糟糕！举报\"%s\"失败，当前机器人登陆状态异常", rc.TargetName)}}
	default:
		return Outcome{Code: CodeError, Reply: Reply{Text: fmt.Sprintf("糟糕！举报\"%s\"失败，BFBAN接口返回的错误信息：%s", rc.TargetName, code)}}
	}
}

package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"bfban-bot/internal/bfban"
)

var targetRe = regexp.MustCompile(`^[a-zA-Z\-_\d]{4,32}$`)

const (
	defaultWaitTimeout   = 150 * time.Second
	defaultStatusTimeout = 7 * time.Second
)

// Flow drives one report session from the incoming command to a terminal
// outcome. All collaborators come in as capability interfaces.
type Flow struct {
	Messenger Messenger
	Stats     StatsClient
	Cases     CaseClient
	Images    ImageHost
	Renderer  CaptchaRenderer
	Mirror    CaptchaMirror // nil = disabled
	Sessions  *Registry
	Audit     AuditLog // nil = disabled
	Log       zerolog.Logger

	// Zero values fall back to the defaults above.
	WaitTimeout   time.Duration
	StatusTimeout time.Duration
}

// Request is one parsed report command.
type Request struct {
	Target   string
	Reporter int64
	Origin   int64
}

// Run executes the whole session: target validation, pid resolution, case
// status gate, admission, then the four steps in order. It blocks until the
// flow reaches a terminal outcome.
func (f *Flow) Run(ctx context.Context, req Request) {
	if !targetRe.MatchString(req.Target) {
		f.reply(ctx, req.Origin, CodeFailed, Reply{Text: "请输入正确的游戏ID，不需要输入战队名"})
		return
	}

	f.send(ctx, req.Origin, Reply{Text: fmt.Sprintf("正在获取ID\"%s\"的信息喵", req.Target)})

	pid, err := f.Stats.ResolvePlayerID(ctx, req.Target)
	if err != nil {
		if errors.Is(err, bfban.ErrPlayerNotFound) {
			f.reply(ctx, req.Origin, CodeFailed, Reply{Text: "此ID不存在，请确认此玩家最新的游戏ID"})
		} else {
			f.Log.Error().Err(err).Str("target", req.Target).Msg("pid lookup failed")
			f.reply(ctx, req.Origin, CodeError, Reply{Text: "查询玩家信息失败，请稍后再试"})
		}
		return
	}

	status := f.caseStatus(ctx, pid)
	if !bfban.CleanStatus(status) {
		caseLink := fmt.Sprintf("链接： %s ", f.caseURL(pid))
		if bfban.ConfirmedCheater(status) {
			// already hammered, a new report adds nothing
			f.reply(ctx, req.Origin, CodeFailed, Reply{Text: fmt.Sprintf(
				"此玩家\"%s\"当前状态为\"%s\"\n%s\n感谢你对游戏做出的贡献", req.Target, status, caseLink)})
			return
		}
		f.reply(ctx, req.Origin, CodeContinue, Reply{Text: fmt.Sprintf(
			"此玩家\"%s\"当前状态为\"%s\"\n%s\n若要补充证据请按照提示继续", req.Target, status, caseLink)})
	}

	rc := NewContext(req.Target, pid, req.Reporter, req.Origin)
	if existing, err := f.Sessions.Admit(rc); err != nil {
		f.reply(ctx, req.Origin, CodeFailed, Reply{Text: fmt.Sprintf(
			"%d正在进行举报此ID的会话，请勿重复提交", existing.ReporterID)})
		return
	}

	f.send(ctx, req.Origin, Reply{Text: "请输入要举报的游戏（战地1、战地5或2042）"})

	out, done := f.stepLoop(ctx, rc, f.stepSelectGame)
	if done {
		return
	}
	rc.GameType = out.Value

	if _, done = f.stepLoop(ctx, rc, f.stepUploadImage); done {
		return
	}

	f.send(ctx, req.Origin, Reply{Text: "请输入举报的详细信息，视频请先上传至bilibili等网站后，再回复视频链接。" +
		"请不要在没有客观证据下凭借主观意识随意举报"})

	if _, done = f.stepLoop(ctx, rc, f.stepCollectDescription); done {
		return
	}

	f.stepLoop(ctx, rc, f.stepVerifyCaptcha)
}

// stepLoop runs one step until its outcome is not RETRY. It renders every
// outcome and tears the session down on terminal ones; done is true when the
// flow must stop.
func (f *Flow) stepLoop(ctx context.Context, rc *Context, step stepFunc) (Outcome, bool) {
	for {
		msg, err := f.Messenger.WaitNext(ctx, rc.OriginID, rc.ReporterID, f.waitTimeout())
		if err != nil {
			// input timeout counts as the user walking away
			out := Outcome{Code: CodeCancel, Reply: Reply{Text: "举报会话已超时，请重新发起举报"}}
			f.finish(ctx, rc, out)
			return out, true
		}

		out := f.runStep(ctx, rc, msg, step)
		if out.Code.Terminal() {
			f.finish(ctx, rc, out)
			return out, true
		}
		f.reply(ctx, rc.OriginID, out.Code, out.Reply)
		if out.Code == CodeContinue {
			return out, false
		}
	}
}

// finish renders a terminal outcome and releases the session.
func (f *Flow) finish(ctx context.Context, rc *Context, out Outcome) {
	reply := out.Reply
	if out.Code == CodeCancel {
		reply.Text = fmt.Sprintf("你取消了对\"%s\"的举报\n%s", rc.TargetName, reply.Text)
	}
	f.reply(ctx, rc.OriginID, out.Code, reply)
	f.Sessions.Remove(rc.TargetName)

	if out.Code == CodeSucceed && f.Audit != nil {
		rec := SubmissionRecord{
			Target:   rc.TargetName,
			PID:      rc.TargetPID,
			Reporter: rc.ReporterID,
			Origin:   rc.OriginID,
			Game:     rc.GameType,
			CaseURL:  f.caseURL(rc.TargetPID),
		}
		if err := f.Audit.RecordSubmission(ctx, rec); err != nil {
			f.Log.Warn().Err(err).Str("target", rc.TargetName).Msg("audit insert failed")
		}
	}
}

// caseStatus asks the case service with a hard cap; any failure degrades to
// the timeout label and never aborts the flow.
func (f *Flow) caseStatus(ctx context.Context, pid int64) string {
	statusCtx, cancel := context.WithTimeout(ctx, f.statusTimeout())
	defer cancel()

	status, err := f.Cases.CaseStatus(statusCtx, pid)
	if err != nil {
		f.Log.Warn().Err(err).Int64("pid", pid).Msg("case status lookup failed")
		return bfban.StatusTimeout
	}
	return status
}

func (f *Flow) reply(ctx context.Context, origin int64, code Code, reply Reply) {
	reply.Text = string(code) + "\n" + reply.Text
	f.send(ctx, origin, reply)
}

func (f *Flow) send(ctx context.Context, origin int64, reply Reply) {
	if err := f.Messenger.Send(ctx, origin, reply); err != nil {
		f.Log.Warn().Err(err).Int64("origin", origin).Msg("send failed")
	}
}

// notify sends an interim progress message from inside a step.
func (f *Flow) notify(ctx context.Context, rc *Context, text string) {
	f.send(ctx, rc.OriginID, Reply{Text: text})
}

func (f *Flow) caseURL(pid int64) string { return bfban.CaseURL(pid) }

func (f *Flow) waitTimeout() time.Duration {
	if f.WaitTimeout > 0 {
		return f.WaitTimeout
	}
	return defaultWaitTimeout
}

func (f *Flow) statusTimeout() time.Duration {
	if f.StatusTimeout > 0 {
		return f.StatusTimeout
	}
	return defaultStatusTimeout
}

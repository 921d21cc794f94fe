package report

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bfban-bot/internal/bfban"
)

type fakeAudit struct{ recs []SubmissionRecord }

func (a *fakeAudit) RecordSubmission(_ context.Context, rec SubmissionRecord) error {
	a.recs = append(a.recs, rec)
	return nil
}

func sentContaining(m *fakeMessenger, sub string) bool {
	for _, text := range m.texts() {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}

func TestRunHappyPath(t *testing.T) {
	m := &fakeMessenger{}
	m.push(
		Message{Text: "5"},
		Message{Text: "无"},
		Message{Text: "这一段举报描述的长度足够详细了"},
		Message{Text: "a1B2"},
	)
	cases := &fakeCases{
		status:     bfban.StatusNotReported,
		captcha:    bfban.Captcha{Hash: "h1", Content: "<svg/>"},
		submitCode: "report.success",
	}
	audit := &fakeAudit{}
	f := newTestFlow(m, &fakeStats{pid: 555, snap: &bfban.StatsSnapshot{}}, cases, &fakeImages{}, &fakeRenderer{png: []byte("png")})
	f.Audit = audit

	f.Run(context.Background(), Request{Target: "abc123", Reporter: 10001, Origin: 20002})

	assert.True(t, sentContaining(m, "请输入要举报的游戏"), "session admitted and prompted")
	assert.False(t, sentContaining(m, "当前状态为"), "clean status sends no case notice")
	assert.True(t, sentContaining(m, string(CodeSucceed)))
	assert.True(t, sentContaining(m, "https://bfban.gametools.network/player/555"))

	assert.False(t, f.Sessions.Has("abc123"), "session released after success")

	require.Len(t, audit.recs, 1)
	assert.Equal(t, "abc123", audit.recs[0].Target)
	assert.Equal(t, "bfv", audit.recs[0].Game)
	assert.Equal(t, int64(555), audit.recs[0].PID)
}

func TestRunRejectsBadTargetID(t *testing.T) {
	for _, bad := range []string{"ab", "has space", "way-toooooooo-loooooooong-for-an-ea-id-xx", "名字"} {
		m := &fakeMessenger{}
		f := newTestFlow(m, &fakeStats{}, &fakeCases{}, &fakeImages{}, &fakeRenderer{})
		f.Run(context.Background(), Request{Target: bad, Reporter: 1, Origin: 2})
		assert.True(t, sentContaining(m, string(CodeFailed)), "target %q", bad)
		assert.True(t, sentContaining(m, "请输入正确的游戏ID"), "target %q", bad)
	}
}

func TestRunPlayerNotFound(t *testing.T) {
	m := &fakeMessenger{}
	f := newTestFlow(m, &fakeStats{resolveErr: bfban.ErrPlayerNotFound}, &fakeCases{}, &fakeImages{}, &fakeRenderer{})
	f.Run(context.Background(), Request{Target: "abc123", Reporter: 1, Origin: 2})
	assert.True(t, sentContaining(m, "此ID不存在"))
	assert.False(t, f.Sessions.Has("abc123"))
}

func TestRunConfirmedCheaterBlocksSession(t *testing.T) {
	m := &fakeMessenger{}
	f := newTestFlow(m, &fakeStats{pid: 555}, &fakeCases{status: "石锤"}, &fakeImages{}, &fakeRenderer{})
	f.Run(context.Background(), Request{Target: "abc123", Reporter: 1, Origin: 2})
	assert.True(t, sentContaining(m, "石锤"))
	assert.True(t, sentContaining(m, "感谢你对游戏做出的贡献"))
	assert.False(t, f.Sessions.Has("abc123"), "no session admitted for hammered players")
}

func TestRunExistingCaseStillAllowsReport(t *testing.T) {
	m := &fakeMessenger{} // empty script: first wait times out
	f := newTestFlow(m, &fakeStats{pid: 555}, &fakeCases{status: "讨论中"}, &fakeImages{}, &fakeRenderer{})
	f.Run(context.Background(), Request{Target: "abc123", Reporter: 1, Origin: 2})
	assert.True(t, sentContaining(m, "若要补充证据请按照提示继续"))
	assert.True(t, sentContaining(m, "请输入要举报的游戏"))
}

func TestRunDuplicateSessionFails(t *testing.T) {
	m := &fakeMessenger{}
	f := newTestFlow(m, &fakeStats{pid: 555}, &fakeCases{status: bfban.StatusNotReported}, &fakeImages{}, &fakeRenderer{})

	first := NewContext("abc123", 555, 42, 2)
	_, err := f.Sessions.Admit(first)
	require.NoError(t, err)

	f.Run(context.Background(), Request{Target: "ABC123", Reporter: 1, Origin: 2})

	assert.True(t, sentContaining(m, "正在进行举报此ID的会话"))
	assert.True(t, sentContaining(m, "42"), "names the current reporter")

	got, err := f.Sessions.Get("abc123")
	require.NoError(t, err)
	assert.Same(t, first, got, "existing session survives the duplicate attempt")
}

func TestRunInputTimeoutCancels(t *testing.T) {
	m := &fakeMessenger{} // no scripted messages at all
	f := newTestFlow(m, &fakeStats{pid: 555}, &fakeCases{status: bfban.StatusNotReported}, &fakeImages{}, &fakeRenderer{})
	f.Run(context.Background(), Request{Target: "abc123", Reporter: 1, Origin: 2})

	assert.True(t, sentContaining(m, string(CodeCancel)))
	assert.True(t, sentContaining(m, "举报会话已超时"))
	assert.False(t, f.Sessions.Has("abc123"), "session released on timeout")
}

func TestRunCaseStatusErrorDegradesToTimeoutLabel(t *testing.T) {
	m := &fakeMessenger{}
	cases := &fakeCases{statusErr: context.DeadlineExceeded}
	f := newTestFlow(m, &fakeStats{pid: 555}, cases, &fakeImages{}, &fakeRenderer{})
	f.Log = zerolog.Nop()
	f.Run(context.Background(), Request{Target: "abc123", Reporter: 1, Origin: 2})

	// degraded status is treated as clean: no notice, flow continues to admission
	assert.False(t, sentContaining(m, "当前状态为"))
	assert.True(t, sentContaining(m, "请输入要举报的游戏"))
}

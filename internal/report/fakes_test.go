package report

import (
	"context"
	"sync"
	"time"

	"bfban-bot/internal/bfban"
)

// fakeMessenger feeds scripted inbound messages to the flow and records every
// outbound reply. An exhausted script behaves like an input timeout.
type fakeMessenger struct {
	mu     sync.Mutex
	script []Message
	sent   []Reply
}

func (m *fakeMessenger) push(msgs ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, msgs...)
}

func (m *fakeMessenger) Send(_ context.Context, _ int64, reply Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, reply)
	return nil
}

func (m *fakeMessenger) WaitNext(_ context.Context, _, _ int64, _ time.Duration) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.script) == 0 {
		return Message{}, ErrWaitTimeout
	}
	msg := m.script[0]
	m.script = m.script[1:]
	return msg, nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, r := range m.sent {
		out[i] = r.Text
	}
	return out
}

func (m *fakeMessenger) last() Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Reply{}
	}
	return m.sent[len(m.sent)-1]
}

type fakeStats struct {
	pid        int64
	resolveErr error
	snap       *bfban.StatsSnapshot
	statsErr   error
	statsCalls int
}

func (s *fakeStats) ResolvePlayerID(context.Context, string) (int64, error) {
	return s.pid, s.resolveErr
}

func (s *fakeStats) QueryFullStats(context.Context, string, string, int64) (*bfban.StatsSnapshot, error) {
	s.statsCalls++
	return s.snap, s.statsErr
}

type fakeCases struct {
	status    string
	statusErr error

	captcha      bfban.Captcha
	captchaErrs  []error // consumed per call, nil = success
	captchaCalls int

	submitCode  string
	submitErr   error
	submitCalls int
	lastBody    bfban.ReportBody
}

func (c *fakeCases) CaseStatus(context.Context, int64) (string, error) {
	return c.status, c.statusErr
}

func (c *fakeCases) FetchCaptcha(context.Context) (bfban.Captcha, error) {
	c.captchaCalls++
	if len(c.captchaErrs) > 0 {
		err := c.captchaErrs[0]
		c.captchaErrs = c.captchaErrs[1:]
		if err != nil {
			return bfban.Captcha{}, err
		}
	}
	return c.captcha, nil
}

func (c *fakeCases) SubmitReport(_ context.Context, body bfban.ReportBody) (string, error) {
	c.submitCalls++
	c.lastBody = body
	return c.submitCode, c.submitErr
}

type fakeImages struct {
	url     string
	err     error
	uploads int
}

func (i *fakeImages) Upload(context.Context, []byte) (string, error) {
	i.uploads++
	return i.url, i.err
}

type fakeRenderer struct {
	png []byte
	err error
}

func (r *fakeRenderer) Render(string) ([]byte, error) { return r.png, r.err }

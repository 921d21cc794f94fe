// Package report implements the multi-step cheat report session: one
// conversational flow per target that collects the game, optional evidence,
// a description and a captcha-gated submission.
package report

import "errors"

// Code classifies a step outcome. The raw values double as the message prefix
// shown in chat.
type Code string

const (
	CodeError    Code = "[report error]"
	CodeFailed   Code = "[report failed]"
	CodeCancel   Code = "[report cancel]"
	CodeRetry    Code = "[report retry]"
	CodeContinue Code = "[report continue]"
	CodeSucceed  Code = "[report succeed]"
)

// Terminal reports whether the code ends the whole flow.
func (c Code) Terminal() bool {
	return c != CodeRetry && c != CodeContinue
}

// Message is one inbound chat message, already resolved by the transport:
// plain text and/or downloaded image bytes.
type Message struct {
	Text  string
	Image []byte
}

func (m Message) HasImage() bool { return len(m.Image) > 0 }

// Reply is outbound content: text plus an optional inline image.
type Reply struct {
	Text  string
	Image []byte
}

// Outcome is what a step hands back to the orchestrator. Value carries the
// parsed result for steps that produce one (the matched game tag).
type Outcome struct {
	Code  Code
	Reply Reply
	Value string
}

// ErrWaitTimeout is returned by Messenger.WaitNext when no qualifying message
// arrived in time.
var ErrWaitTimeout = errors.New("wait for message timed out")

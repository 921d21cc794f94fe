package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"bfban-bot/internal/report"
)

// Router is the chat transport: it turns Telegram updates into report flows
// and step inputs, and sends replies back. It implements report.Messenger.
type Router struct {
	Bot  *tgbotapi.BotAPI
	Flow *report.Flow // set after construction, the flow needs the router as its Messenger
	Log  zerolog.Logger

	waiters *waiterRegistry
	httpc   *http.Client
}

func NewRouter(bot *tgbotapi.BotAPI, logger zerolog.Logger) *Router {
	return &Router{
		Bot:     bot,
		Log:     logger.With().Str("component", "telegram").Logger(),
		waiters: newWaiterRegistry(),
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil || upd.Message.From == nil {
		return
	}
	msg := upd.Message
	origin := msg.Chat.ID
	sender := msg.From.ID

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	if target, ok := ParseReportCommand(text); ok {
		r.Log.Info().Str("target", target).Int64("origin", origin).Int64("sender", sender).Msg("report command")
		go r.Flow.Run(context.Background(), report.Request{Target: target, Reporter: sender, Origin: origin})
		return
	}

	if msg.IsCommand() {
		r.handleCommand(*msg)
		return
	}

	// feed an active report session, if any
	key := waiterKey(origin, sender)
	if !r.waiters.hasWaiter(key) {
		return
	}
	in := report.Message{Text: text}
	if len(msg.Photo) > 0 {
		data, err := r.downloadPhoto(msg.Photo[len(msg.Photo)-1])
		if err != nil {
			r.Log.Warn().Err(err).Msg("photo download failed")
		} else {
			in.Image = data
		}
	}
	r.waiters.deliver(key, in)
}

func (r *Router) handleCommand(msg tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		r.sendText(msg.Chat.ID, "发送 !report <游戏ID> 对玩家发起举报，会话中回复\"取消\"放弃。")
	case "health":
		r.sendText(msg.Chat.ID, "✅ OK")
	}
}

// Send implements report.Messenger.
func (r *Router) Send(ctx context.Context, origin int64, reply report.Reply) error {
	if len(reply.Image) > 0 {
		photo := tgbotapi.NewPhoto(origin, tgbotapi.FileBytes{Name: "captcha.png", Bytes: reply.Image})
		photo.Caption = reply.Text
		_, err := r.Bot.Send(photo)
		return err
	}
	_, err := r.Bot.Send(tgbotapi.NewMessage(origin, reply.Text))
	return err
}

// WaitNext implements report.Messenger: it blocks until the sender posts the
// next non-command message in the origin, or the timeout fires.
func (r *Router) WaitNext(ctx context.Context, origin, sender int64, timeout time.Duration) (report.Message, error) {
	key := waiterKey(origin, sender)
	ch := r.waiters.register(key)
	defer r.waiters.unregister(key, ch)

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case msg := <-ch:
		return msg, nil
	case <-t.C:
		return report.Message{}, report.ErrWaitTimeout
	case <-ctx.Done():
		return report.Message{}, ctx.Err()
	}
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Log.Warn().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

// downloadPhoto fetches the largest photo size from the bot file API.
func (r *Router) downloadPhoto(ph tgbotapi.PhotoSize) ([]byte, error) {
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	resp, err := r.httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

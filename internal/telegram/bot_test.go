package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakcode4d/internal/database"
	"breakcode4d/internal/predictor"
	"breakcode4d/internal/service"
)

// blockingEngine 的 Update 一直阻塞到 ctx 被取消
type blockingEngine struct {
	started chan struct{}
	result  chan error
}

func (e *blockingEngine) Update(ctx context.Context) (*service.UpdateResult, error) {
	close(e.started)
	<-ctx.Done()
	e.result <- ctx.Err()
	return nil, ctx.Err()
}

func (e *blockingEngine) GenerateBase(string, int, bool) (*predictor.StrategyResult, error) {
	return nil, predictor.ErrUnknownStrategy
}

func (e *blockingEngine) Predict(string, int, int, bool) ([]string, *predictor.StrategyResult, error) {
	return nil, nil, predictor.ErrUnknownStrategy
}

func (e *blockingEngine) Backtest(string, int, predictor.Direction, int) (*predictor.Report, error) {
	return nil, predictor.ErrUnknownStrategy
}

func (e *blockingEngine) Insight(time.Time) (*predictor.Insight, error) {
	return nil, predictor.ErrUnknownStrategy
}

func (e *blockingEngine) Tune() (*predictor.StrategyResult, error) {
	return nil, predictor.ErrUnknownStrategy
}

func (e *blockingEngine) CrossPick() ([database.Positions][]predictor.CrossEntry, error) {
	return [database.Positions][]predictor.CrossEntry{}, nil
}

func (e *blockingEngine) Status() (*service.Status, error) {
	return &service.Status{}, nil
}

// newTestAPI 启动一个模拟的 Bot API，记录所有发出的消息文本
func newTestAPI(t *testing.T) (*tgbotapi.BotAPI, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var sent []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"test","username":"test_bot"}}`))
			return
		}
		r.ParseForm()
		mu.Lock()
		sent = append(sent, r.Form.Get("text"))
		mu.Unlock()
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":7,"type":"private"}}}`))
	}))
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithClient("token", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	return api, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), sent...)
	}
}

func commandUpdate(command string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     command,
		Chat:     &tgbotapi.Chat{ID: 7, Type: "private"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}}
}

func TestStop_CancelsRunningUpdate(t *testing.T) {
	api, sent := newTestAPI(t)
	engine := &blockingEngine{started: make(chan struct{}), result: make(chan error, 1)}
	updates := make(chan tgbotapi.Update, 1)

	bot := newBot(api, engine, updates)
	bot.Start()
	updates <- commandUpdate("/update")

	select {
	case <-engine.started:
	case <-time.After(2 * time.Second):
		t.Fatal("update command never reached the engine")
	}

	stopped := make(chan struct{})
	go func() {
		bot.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running update")
	}
	assert.ErrorIs(t, <-engine.result, context.Canceled)

	messages := sent()
	require.NotEmpty(t, messages)
	assert.Contains(t, messages[len(messages)-1], "Update failed: context canceled")
}

func TestGetBotInfo(t *testing.T) {
	api, _ := newTestAPI(t)
	bot := newBot(api, &blockingEngine{}, make(chan tgbotapi.Update))

	info := bot.GetBotInfo()
	assert.Equal(t, "test_bot", info["username"])
	assert.Equal(t, int64(42), info["id"])
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"breakcode4d/internal/config"
	"breakcode4d/internal/database"
	"breakcode4d/internal/logger"
	"breakcode4d/internal/predictor"
	"breakcode4d/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Engine 机器人需要的服务能力
type Engine interface {
	Update(ctx context.Context) (*service.UpdateResult, error)
	GenerateBase(name string, recentN int, save bool) (*predictor.StrategyResult, error)
	Predict(name string, recentN, n int, sampled bool) ([]string, *predictor.StrategyResult, error)
	Backtest(name string, recentN int, dir predictor.Direction, rounds int) (*predictor.Report, error)
	Insight(now time.Time) (*predictor.Insight, error)
	Tune() (*predictor.StrategyResult, error)
	CrossPick() ([database.Positions][]predictor.CrossEntry, error)
	Status() (*service.Status, error)
}

// Bot Telegram机器人，作为操作面板使用
type Bot struct {
	api           *tgbotapi.BotAPI
	engine        Engine
	updateChannel tgbotapi.UpdatesChannel
	stopChannel   chan struct{}
	done          chan struct{}

	// ctx 在 Stop 时取消，用于中断正在执行的更新
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBot 创建新的Telegram机器人
func NewBot(cfg *config.Telegram, engine Engine) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is not configured")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %v", err)
	}

	bot.Debug = false
	logger.Infof("Telegram bot authorized on account: %s", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(cfg.Timeout.Seconds())

	return newBot(bot, engine, bot.GetUpdatesChan(u)), nil
}

func newBot(api *tgbotapi.BotAPI, engine Engine, updates tgbotapi.UpdatesChannel) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		api:           api,
		engine:        engine,
		updateChannel: updates,
		stopChannel:   make(chan struct{}),
		done:          make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start 启动机器人
func (b *Bot) Start() {
	logger.Info("Starting Telegram bot...")
	go b.handleUpdates()
}

// Stop 停止机器人，取消正在执行的更新并等待当前命令返回
func (b *Bot) Stop() {
	logger.Info("Stopping Telegram bot...")
	b.cancel()
	close(b.stopChannel)
	b.api.StopReceivingUpdates()
	<-b.done
	logger.Info("Telegram bot stopped")
}

// handleUpdates 逐条处理更新，一个命令完成后才处理下一个
func (b *Bot) handleUpdates() {
	defer close(b.done)
	for {
		select {
		case update, ok := <-b.updateChannel:
			if !ok {
				return
			}
			if update.Message != nil && update.Message.Chat.IsPrivate() {
				b.handleMessage(update.Message)
			} else if update.CallbackQuery != nil && update.CallbackQuery.Message != nil &&
				update.CallbackQuery.Message.Chat.IsPrivate() {
				b.handleCallbackQuery(update.CallbackQuery)
			}
		case <-b.stopChannel:
			return
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !message.IsCommand() {
		b.sendMessage(chatID, "Please use commands, type /help for help.")
		return
	}

	logger.Debugf("Received command: %s %q from user: %d", message.Command(), message.CommandArguments(), chatID)
	b.dispatch(chatID, message.Command(), strings.Fields(message.CommandArguments()))
}

// dispatch 执行命令
func (b *Bot) dispatch(chatID int64, command string, args []string) {
	switch command {
	case "start", "help":
		b.sendWithKeyboard(chatID, formatHelpMessage())
	case "status":
		st, err := b.engine.Status()
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Status", err))
			return
		}
		b.sendMessage(chatID, formatStatusMessage(st))
	case "update":
		b.sendMessage(chatID, "📥 Updating draws, this may take a while...")
		res, err := b.engine.Update(b.ctx)
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Update", err))
			return
		}
		b.sendMessage(chatID, formatUpdateMessage(res))
	case "base":
		opts := parseArgs(args)
		res, err := b.engine.GenerateBase(opts.strategy, opts.recentN, true)
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Base", err))
			return
		}
		b.sendMessage(chatID, formatBaseMessage(res))
	case "predict":
		opts := parseArgs(args)
		numbers, res, err := b.engine.Predict(opts.strategy, opts.recentN, opts.count, opts.sampled)
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Predict", err))
			return
		}
		b.sendMessage(chatID, formatPredictionsMessage(res, numbers))
	case "backtest":
		opts := parseArgs(args)
		report, err := b.engine.Backtest(opts.strategy, opts.recentN, opts.direction, opts.count)
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Backtest", err))
			return
		}
		b.sendMessage(chatID, formatBacktestMessage(report))
	case "insight":
		in, err := b.engine.Insight(time.Now())
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Insight", err))
			return
		}
		b.sendMessage(chatID, formatInsightMessage(in))
	case "tune":
		res, err := b.engine.Tune()
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Tune", err))
			return
		}
		b.sendMessage(chatID, formatTuneMessage(res))
	case "cross":
		cross, err := b.engine.CrossPick()
		if err != nil {
			b.sendMessage(chatID, formatErrorMessage("Cross pick", err))
			return
		}
		b.sendMessage(chatID, formatCrossMessage(cross))
	default:
		b.sendMessage(chatID, "Unknown command. Type /help to view available commands.")
	}
}

// handleCallbackQuery 内联按钮按默认参数执行命令
func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	logger.Debugf("Received callback: %s from user: %d", callback.Data, chatID)

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		logger.Warnf("Failed to answer callback: %v", err)
	}
	b.dispatch(chatID, callback.Data, nil)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", chatID, err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = createInlineKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", chatID, err)
	}
}

// GetBotInfo 获取机器人信息
func (b *Bot) GetBotInfo() map[string]interface{} {
	return map[string]interface{}{
		"username": b.api.Self.UserName,
		"id":       b.api.Self.ID,
	}
}

const helpText = `🔮 *Breakcode4D*

/update - Fetch new draws and regenerate bases
/base ` + "`[strategy] [recent_n]`" + ` - Generate and save a base
/predict ` + "`[strategy] [recent_n] [count] [random]`" + ` - Candidate numbers
/backtest ` + "`[strategy] [recent_n] [rounds] [rtl]`" + ` - Replay history
/insight - Analyse the last result
/tune - Even and 5/7/9 digits of the last 30 draws
/cross - Cross pick table
/status - Draw history summary

Strategies: ` + "`frequency` `frequency-weighted` `gap` `hybrid` `qaisara` `smartpattern`" + `

⚠️ Heuristic digit statistics only, no predictive claim.`

type commandArgs struct {
	strategy  string
	recentN   int
	count     int
	sampled   bool
	direction predictor.Direction
}

// parseArgs 解析 "[strategy] [recent_n] [count] [random|rtl]"，顺序中的数字依次为 recent_n 和 count
func parseArgs(args []string) commandArgs {
	var opts commandArgs
	var ints []int
	for _, arg := range args {
		lower := strings.ToLower(arg)
		if n, err := strconv.Atoi(lower); err == nil {
			ints = append(ints, n)
			continue
		}
		switch lower {
		case "random", "sampled":
			opts.sampled = true
		case "rtl", "ltr":
			opts.direction, _ = predictor.ParseDirection(lower)
		default:
			opts.strategy = lower
		}
	}
	if len(ints) > 0 {
		opts.recentN = ints[0]
	}
	if len(ints) > 1 {
		opts.count = ints[1]
	}
	return opts
}

package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/ai"
	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/delivery"
	"github.com/hray3182/PawLine/internal/notify"
	"github.com/hray3182/PawLine/internal/repository"
)

type Repositories struct {
	User        *repository.UserRepository
	Cat         *repository.CatRepository
	Medicine    *repository.MedicineRepository
	Schedule    *repository.ScheduleRepository
	MedicineLog *repository.MedicineLogRepository
	Weight      *repository.WeightRepository
	Food        *repository.FoodRepository
	Diary       *repository.DiaryRepository
}

type Handlers struct {
	api      *tgbotapi.BotAPI
	repos    *Repositories
	ai       *ai.Client
	delivery *delivery.Handler
	alarms   *alarm.Manager
}

func New(api *tgbotapi.BotAPI, repos *Repositories, aiClient *ai.Client, deliveryHandler *delivery.Handler, alarms *alarm.Manager) *Handlers {
	return &Handlers{
		api:      api,
		repos:    repos,
		ai:       aiClient,
		delivery: deliveryHandler,
		alarms:   alarms,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	// Ensure user exists
	_, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to get/create user")
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "cats":
		h.handleCatList(ctx, msg)
	case "addcat":
		h.handleCatAdd(ctx, msg)
	case "delcat":
		h.handleCatDelete(ctx, msg)
	case "medicines", "meds":
		h.handleMedicineList(ctx, msg)
	case "addmed":
		h.handleMedicineAdd(ctx, msg)
	case "delmed":
		h.handleMedicineDelete(ctx, msg)
	case "pausemed":
		h.handleMedicineActive(ctx, msg, false)
	case "resumemed":
		h.handleMedicineActive(ctx, msg, true)
	case "schedule":
		h.handleScheduleAdd(ctx, msg)
	case "schedules":
		h.handleScheduleList(ctx, msg)
	case "delschedule":
		h.handleScheduleDelete(ctx, msg)
	case "given":
		h.handleGiven(ctx, msg)
	case "skip":
		h.handleSkip(ctx, msg)
	case "logs":
		h.handleLogList(ctx, msg)
	case "weight":
		h.handleWeight(ctx, msg)
	case "weights":
		h.handleWeightList(ctx, msg)
	case "food":
		h.handleFood(ctx, msg)
	case "diary":
		h.handleDiary(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "未知指令，請使用 /help 查看可用指令")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Ensure user exists
	_, err := h.repos.User.GetOrCreate(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to get/create user")
		return
	}

	// Process with AI
	h.handleAIMessage(ctx, msg)
}

// HandleCallbackQuery routes the inline buttons under a reminder message.
// Callback data is "<action>:<scheduleID>". The notifier owns the reminder
// message and deletes it on dismiss, so outcomes are reported with a fresh
// message instead of editing the one the button lived on.
func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Answer callback to remove loading state
	answer := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.api.Request(answer); err != nil {
		log.Warn().Err(err).Msg("failed to answer callback")
	}

	parts := strings.Split(callback.Data, ":")
	if len(parts) != 2 {
		return
	}

	scheduleID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	chatID := callback.Message.Chat.ID

	switch parts[0] {
	case notify.CallbackMarkGiven:
		if err := h.delivery.MarkGiven(ctx, scheduleID); err != nil {
			log.Error().Err(err).Int64("schedule_id", scheduleID).Msg("failed to mark given")
			h.sendMessage(chatID, "記錄失敗，請稍後再試")
			return
		}
		h.sendMessage(chatID, "✅ 已記錄給藥")
	case notify.CallbackSnooze:
		at, err := h.delivery.Snooze(ctx, scheduleID)
		if err != nil {
			log.Error().Err(err).Int64("schedule_id", scheduleID).Msg("failed to snooze")
			h.sendMessage(chatID, "延後失敗，請稍後再試")
			return
		}
		if at.IsZero() {
			h.sendMessage(chatID, "這個提醒已經失效了")
			return
		}
		h.sendMessage(chatID, fmt.Sprintf("⏰ 已延後 %d 分鐘，%s 再提醒你", h.delivery.SnoozeMinutes(), at.Format("15:04")))
	case notify.CallbackDetail:
		h.sendScheduleDetail(ctx, chatID, callback.From.ID, scheduleID)
	}
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := h.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	text := fmt.Sprintf(`👋 你好 %s！

我是 PawLine，你的寵物照護助理機器人。

我可以幫你：
🐱 管理貓咪資料
💊 建立餵藥排程，時間到了提醒你
📋 記錄每次給藥
⚖️ 追蹤體重與進食
📔 寫照護日記

你可以直接用自然語言告訴我，例如：
• "新增一隻貓叫咪咪"
• "咪咪每天早上 9 點要吃心絲蟲藥半顆"
• "咪咪今天 4.2 公斤"

使用 /help 查看所有指令`, msg.From.FirstName)
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	text := `📖 *指令列表*

*貓咪*
/addcat <名字> [品種] - 新增貓咪
/cats - 查看貓咪列表
/delcat <名字> - 刪除貓咪

*藥品*
/addmed <貓名> <藥名> <劑量> [注意事項] - 新增藥品
/medicines <貓名> - 查看藥品列表
/pausemed <藥名> - 暫停藥品提醒
/resumemed <藥名> - 恢復藥品提醒
/delmed <藥名> - 刪除藥品

*餵藥排程*
/schedule <藥名> <HH:MM> [星期] - 建立排程 (星期如「一三五」，省略為每天)
/schedules - 查看所有排程
/delschedule <編號> - 刪除排程

*給藥記錄*
/given <排程編號> - 記錄已給藥
/skip <排程編號> [原因] - 記錄略過
/logs - 查看最近記錄

*日常照護*
/weight <貓名> <公斤> - 記錄體重
/weights <貓名> - 查看體重記錄
/food <貓名> <內容> - 記錄進食
/diary <貓名> <內容> - 寫日記

💡 你也可以直接用自然語言告訴我！`
	h.sendMessage(msg.Chat.ID, text)
}

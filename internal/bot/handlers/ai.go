package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/hray3182/PawLine/internal/ai"
	"github.com/hray3182/PawLine/internal/alarm"
	"github.com/hray3182/PawLine/internal/models"
	"github.com/hray3182/PawLine/internal/recurrence"
)

func (h *Handlers) handleAIMessage(ctx context.Context, msg *tgbotapi.Message) {
	if h.ai == nil {
		h.sendMessage(msg.Chat.ID, "AI 功能尚未啟用，請使用指令操作，/help 查看用法")
		return
	}

	intent, err := h.ai.ParseIntent(ctx, msg.Text)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse intent")
		h.sendMessage(msg.Chat.ID, "抱歉，我無法理解你的訊息。請試著用更清楚的方式描述，或使用 /help 查看可用指令。")
		return
	}

	log.Debug().
		Str("action", intent.Action).
		Float64("confidence", intent.Confidence).
		Interface("params", intent.Parameters).
		Msg("parsed intent")

	if intent.Confidence < 0.5 {
		response := "我不太確定你想做什麼，可以說得更清楚一點嗎？"
		if intent.AIMessage != "" {
			response = intent.AIMessage
		}
		h.sendMessage(msg.Chat.ID, response)
		return
	}

	h.executeIntent(ctx, msg, intent)
}

func (h *Handlers) executeIntent(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	switch intent.Action {
	case "create_cat":
		h.executeCreateCat(ctx, msg, intent)
	case "create_medicine":
		h.executeCreateMedicine(ctx, msg, intent)
	case "create_schedule":
		h.executeCreateSchedule(ctx, msg, intent)
	case "mark_given":
		h.executeMarkGiven(ctx, msg, intent)
	case "log_weight":
		h.executeLogWeight(ctx, msg, intent)
	case "log_food":
		h.executeLogFood(ctx, msg, intent)
	case "create_diary":
		h.executeCreateDiary(ctx, msg, intent)
	case "list_schedules":
		h.handleScheduleList(ctx, msg)
	default:
		response := "我不太懂這個意思，可以用 /help 看看我能做什麼"
		if intent.AIMessage != "" {
			response = intent.AIMessage
		}
		h.sendMessage(msg.Chat.ID, response)
	}
}

func (h *Handlers) executeCreateCat(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	name := intent.Parameters["cat_name"]
	if name == "" {
		h.sendMessage(msg.Chat.ID, "請告訴我貓咪的名字，例如「新增一隻貓叫咪咪」")
		return
	}

	cat := &models.Cat{
		UserID: msg.From.ID,
		Name:   name,
		Breed:  intent.Parameters["breed"],
	}
	if err := h.repos.Cat.Create(ctx, cat); err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to create cat")
		h.sendMessage(msg.Chat.ID, "新增貓咪失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🐱 已新增貓咪 *%s*", cat.Name))
}

func (h *Handlers) executeCreateMedicine(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	cat, ok := h.resolveCat(ctx, msg, intent.Parameters["cat_name"])
	if !ok {
		return
	}

	medName := intent.Parameters["medicine_name"]
	if medName == "" {
		h.sendMessage(msg.Chat.ID, "請告訴我藥品的名稱")
		return
	}

	med := &models.Medicine{
		CatID:        cat.CatID,
		Name:         medName,
		Dosage:       intent.Parameters["dosage"],
		Instructions: intent.Parameters["instructions"],
		IsActive:     true,
	}
	if err := h.repos.Medicine.Create(ctx, med); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to create medicine")
		h.sendMessage(msg.Chat.ID, "新增藥品失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("💊 已為 *%s* 新增藥品 *%s*", cat.Name, med.Name))
}

func (h *Handlers) executeCreateSchedule(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	medName := intent.Parameters["medicine_name"]
	if medName == "" {
		h.sendMessage(msg.Chat.ID, "請告訴我是哪個藥品的排程")
		return
	}

	med, err := h.repos.Medicine.GetByName(ctx, msg.From.ID, medName)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up medicine")
		h.sendMessage(msg.Chat.ID, "查詢藥品失敗，請稍後再試")
		return
	}
	if med == nil {
		// The schedule mentions a medicine we have not seen: create it on
		// the fly when the cat is identifiable.
		cat, ok := h.resolveCat(ctx, msg, intent.Parameters["cat_name"])
		if !ok {
			return
		}
		med = &models.Medicine{
			CatID:    cat.CatID,
			Name:     medName,
			Dosage:   intent.Parameters["dosage"],
			IsActive: true,
		}
		if err := h.repos.Medicine.Create(ctx, med); err != nil {
			log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to create medicine")
			h.sendMessage(msg.Chat.ID, "新增藥品失敗，請稍後再試")
			return
		}
	}

	var hour, minute int
	if _, err := fmt.Sscanf(intent.Parameters["time"], "%d:%d", &hour, &minute); err != nil {
		h.sendMessage(msg.Chat.ID, "請告訴我餵藥時間，例如「每天早上 9 點」")
		return
	}

	mask := recurrence.AllDays
	if wd := intent.Parameters["weekdays"]; wd != "" {
		if m, err := recurrence.ParseWeekdays(wd); err == nil {
			mask = m
		}
	}

	rule := recurrence.Rule{Hour: hour, Minute: minute, WeekdayMask: mask}
	if err := rule.Validate(); err != nil {
		h.sendMessage(msg.Chat.ID, "排程規則無效，請換個說法再試一次")
		return
	}

	sched := &models.MedicineSchedule{MedicineID: med.MedicineID, Rule: rule}
	if err := h.repos.Schedule.Create(ctx, sched); err != nil {
		log.Error().Err(err).Int64("medicine_id", med.MedicineID).Msg("failed to create schedule")
		h.sendMessage(msg.Chat.ID, "建立排程失敗，請稍後再試")
		return
	}

	sc, err := h.repos.Schedule.GetContext(ctx, sched.ScheduleID)
	if err != nil || sc == nil {
		log.Error().Err(err).Int64("schedule_id", sched.ScheduleID).Msg("failed to load schedule context")
		h.sendMessage(msg.Chat.ID, "排程已建立，但設定提醒失敗，請重啟後再試")
		return
	}

	res, err := h.alarms.Arm(&sc.Schedule, alarm.PayloadFor(sc))
	if err != nil {
		log.Error().Err(err).Int64("schedule_id", sched.ScheduleID).Msg("failed to arm schedule")
		h.sendMessage(msg.Chat.ID, "排程已建立，但設定提醒失敗")
		return
	}

	text := fmt.Sprintf("⏰ 排程 *#%d* 已建立\n💊 %s\n📅 %s", sched.ScheduleID, med.Name, recurrence.Describe(rule))
	if res.Armed {
		text += fmt.Sprintf("\n下次提醒: %s", res.At.Format("2006-01-02 15:04"))
	}
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) executeMarkGiven(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	medName := intent.Parameters["medicine_name"]
	if medName == "" {
		h.sendMessage(msg.Chat.ID, "請告訴我是哪個藥，例如「咪咪的心絲蟲藥吃了」")
		return
	}

	med, err := h.repos.Medicine.GetByName(ctx, msg.From.ID, medName)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up medicine")
		h.sendMessage(msg.Chat.ID, "查詢藥品失敗，請稍後再試")
		return
	}
	if med == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的藥品", medName))
		return
	}

	entry := &models.MedicineLog{
		MedicineID:     med.MedicineID,
		AdministeredAt: time.Now(),
	}
	if err := h.repos.MedicineLog.Append(ctx, entry); err != nil {
		log.Error().Err(err).Int64("medicine_id", med.MedicineID).Msg("failed to append medicine log")
		h.sendMessage(msg.Chat.ID, "記錄失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ 已記錄 *%s* 給藥", med.Name))
}

func (h *Handlers) executeLogWeight(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	cat, ok := h.resolveCat(ctx, msg, intent.Parameters["cat_name"])
	if !ok {
		return
	}

	kg, err := strconv.ParseFloat(strings.TrimSpace(intent.Parameters["weight"]), 64)
	if err != nil || kg <= 0 {
		h.sendMessage(msg.Chat.ID, "請告訴我體重的公斤數，例如「咪咪今天 4.2 公斤」")
		return
	}

	entry := &models.WeightEntry{CatID: cat.CatID, WeightKg: kg, MeasuredAt: time.Now()}
	if err := h.repos.Weight.Create(ctx, entry); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to record weight")
		h.sendMessage(msg.Chat.ID, "記錄體重失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚖️ 已記錄 *%s* 體重 %.1f 公斤", cat.Name, kg))
}

func (h *Handlers) executeLogFood(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	cat, ok := h.resolveCat(ctx, msg, intent.Parameters["cat_name"])
	if !ok {
		return
	}

	food := intent.Parameters["food"]
	if food == "" {
		h.sendMessage(msg.Chat.ID, "請告訴我吃了什麼")
		return
	}

	entry := &models.FoodEntry{CatID: cat.CatID, FoodType: "other", BrandName: food, FedAt: time.Now()}
	if err := h.repos.Food.Create(ctx, entry); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to record food")
		h.sendMessage(msg.Chat.ID, "記錄進食失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🍽 已記錄 *%s* 吃了 %s", cat.Name, food))
}

func (h *Handlers) executeCreateDiary(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	cat, ok := h.resolveCat(ctx, msg, intent.Parameters["cat_name"])
	if !ok {
		return
	}

	content := intent.Parameters["content"]
	if content == "" {
		content = msg.Text
	}

	note := &models.DiaryNote{CatID: cat.CatID, Content: content, Category: "general"}
	if err := h.repos.Diary.Create(ctx, note); err != nil {
		log.Error().Err(err).Int64("cat_id", cat.CatID).Msg("failed to create diary note")
		h.sendMessage(msg.Chat.ID, "寫日記失敗，請稍後再試")
		return
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("📔 已為 *%s* 寫下日記", cat.Name))
}

// resolveCat finds the cat an intent refers to. Without a name it falls back
// to the user's only cat; with several cats a name is required.
func (h *Handlers) resolveCat(ctx context.Context, msg *tgbotapi.Message, name string) (*models.Cat, bool) {
	if name != "" {
		cat, err := h.repos.Cat.GetByName(ctx, msg.From.ID, name)
		if err != nil {
			log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to look up cat")
			h.sendMessage(msg.Chat.ID, "查詢貓咪失敗，請稍後再試")
			return nil, false
		}
		if cat == nil {
			h.sendMessage(msg.Chat.ID, fmt.Sprintf("找不到叫 *%s* 的貓咪，先用 /addcat 新增吧", name))
			return nil, false
		}
		return cat, true
	}

	cats, err := h.repos.Cat.GetByUserID(ctx, msg.From.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to list cats")
		h.sendMessage(msg.Chat.ID, "查詢貓咪失敗，請稍後再試")
		return nil, false
	}
	switch len(cats) {
	case 0:
		h.sendMessage(msg.Chat.ID, "還沒有貓咪，先用 /addcat 新增一隻吧")
		return nil, false
	case 1:
		return cats[0], true
	default:
		h.sendMessage(msg.Chat.ID, "你有好幾隻貓，請告訴我是哪一隻")
		return nil, false
	}
}

// Package dialog turns inbound chat updates into store mutations and
// replies. It runs one guided flow per chat (add a task, add a reminder),
// with a single-message fast path when the user packs everything into one
// sentence.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zakkerni/zakkerni/internal/bus"
	"github.com/zakkerni/zakkerni/internal/store"
	"github.com/zakkerni/zakkerni/internal/timeparse"
)

type Config struct {
	FreeTaskLimit     int
	FreeReminderLimit int
	PremiumPriceStars int
	PremiumDays       int
}

type Handler struct {
	store  *store.Store
	parser *timeparse.Parser
	bus    *bus.MessageBus
	states *stateManager
	cfg    Config
}

func NewHandler(st *store.Store, parser *timeparse.Parser, msgBus *bus.MessageBus, cfg Config) *Handler {
	if cfg.FreeTaskLimit <= 0 {
		cfg.FreeTaskLimit = 15
	}
	if cfg.FreeReminderLimit <= 0 {
		cfg.FreeReminderLimit = 3
	}
	if cfg.PremiumPriceStars <= 0 {
		cfg.PremiumPriceStars = 299
	}
	if cfg.PremiumDays <= 0 {
		cfg.PremiumDays = 30
	}
	return &Handler{
		store:  st,
		parser: parser,
		bus:    msgBus,
		states: newStateManager(),
		cfg:    cfg,
	}
}

// Run consumes inbound updates until ctx is cancelled.
func (h *Handler) Run(ctx context.Context) {
	for {
		msg, err := h.bus.ConsumeInbound(ctx)
		if err != nil {
			return
		}
		h.Handle(ctx, msg)
	}
}

// Handle routes one inbound update.
func (h *Handler) Handle(ctx context.Context, msg bus.InboundMessage) {
	if err := h.store.EnsureUser(ctx, msg.SenderID, msg.Username); err != nil {
		slog.Error("ensure user failed", "user", msg.SenderID, "error", err)
	}

	switch msg.Kind {
	case bus.KindCallback:
		h.handleCallback(ctx, msg)
	case bus.KindPreCheckout:
		h.bus.PublishOutbound(bus.OutboundMessage{
			Channel:          msg.Channel,
			AckPreCheckoutID: msg.PreCheckoutID,
		})
	case bus.KindPayment:
		h.handlePayment(ctx, msg)
	default:
		h.handleText(ctx, msg)
	}
}

func (h *Handler) reply(msg bus.InboundMessage, text string) {
	h.bus.PublishOutbound(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: text,
	})
}

func (h *Handler) replyWithButtons(msg bus.InboundMessage, text string, rows [][]bus.Button) {
	h.bus.PublishOutbound(bus.OutboundMessage{
		Channel:    msg.Channel,
		ChatID:     msg.ChatID,
		Content:    text,
		InlineRows: rows,
	})
}

func (h *Handler) handleText(ctx context.Context, msg bus.InboundMessage) {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return
	}

	switch text {
	case "/start":
		h.states.reset(msg.StateKey())
		h.bus.PublishOutbound(bus.OutboundMessage{
			Channel:  msg.Channel,
			ChatID:   msg.ChatID,
			Content:  msgWelcome,
			Keyboard: mainKeyboard(),
		})
		return
	case "/help", labelHelp:
		h.reply(msg, msgHelp)
		return
	case "/cancel", labelCancel:
		h.states.reset(msg.StateKey())
		h.reply(msg, msgCancelled)
		return
	case "/tasks", labelMyTasks:
		h.sendTaskList(ctx, msg)
		return
	case "/reminders", labelMyReminders:
		h.sendReminderList(ctx, msg)
		return
	case "/premium", labelPremium:
		h.sendPremiumPitch(ctx, msg)
		return
	case "/my_subscription":
		h.sendSubscription(ctx, msg)
		return
	case labelNewTask:
		conv := h.states.get(msg.StateKey())
		*conv = conversation{Step: stepAwaitTask}
		h.reply(msg, msgAskTask)
		return
	case labelNewReminder:
		conv := h.states.get(msg.StateKey())
		*conv = conversation{Step: stepAwaitReminder}
		h.reply(msg, msgAskReminder)
		return
	}

	conv := h.states.get(msg.StateKey())
	switch conv.Step {
	case stepAwaitDue:
		h.stepDue(ctx, msg, conv, text)
	case stepAwaitReminderInterval:
		h.stepReminderInterval(ctx, msg, conv, text)
	case stepAwaitReminder:
		h.stepReminder(ctx, msg, conv, text)
	default:
		// idle and stepAwaitTask share the same entry: one sentence that
		// may carry an interval reminder, a task with a due, or a bare
		// title.
		h.stepTask(ctx, msg, conv, text)
	}
}

// stepTask is the free-text entry point. A cadence phrase wins over a due
// phrase so "فكرني بالاستغفار كل ساعة" becomes a reminder, not a task.
func (h *Handler) stepTask(ctx context.Context, msg bus.InboundMessage, conv *conversation, text string) {
	if body, mins, ok := timeparse.ExtractReminder(text); ok {
		h.createReminder(ctx, msg, body, mins)
		return
	}

	if title, due, ok := h.parser.Segment(text); ok {
		if due.Before(h.parser.Now()) {
			h.reply(msg, msgPastDue)
			return
		}
		*conv = conversation{Title: title, Due: &due}
		h.finishTask(ctx, msg, conv)
		return
	}

	// no due phrase found: if this chat explicitly started the task flow,
	// keep the text as the title and ask for the due separately
	if conv.Step == stepAwaitTask {
		conv.Title = timeparse.CleanTitle(text)
		conv.Step = stepAwaitDue
		h.reply(msg, msgAskDue)
		return
	}
	h.reply(msg, msgNothingGrasped)
}

func (h *Handler) stepDue(ctx context.Context, msg bus.InboundMessage, conv *conversation, text string) {
	if isSkipDue(text) {
		conv.Due = nil
		h.finishTask(ctx, msg, conv)
		return
	}
	due, ok := h.parser.Resolve(text)
	if !ok {
		h.reply(msg, msgBadDue)
		return
	}
	if due.Before(h.parser.Now()) {
		h.reply(msg, msgPastDue)
		return
	}
	conv.Due = &due
	h.finishTask(ctx, msg, conv)
}

// isSkipDue matches the phrases that save a task with no due at all.
func isSkipDue(text string) bool {
	switch strings.ToLower(text) {
	case "بدون", "بدون معاد", "بدون موعد", "no", "skip":
		return true
	}
	return false
}

// finishTask closes the flow once title and due are settled. Daily and weekly
// repeats are a premium perk, so only premium owners get the recurrence
// question; everyone else saves a one-shot task right away. A task with no
// due has nothing to repeat from, so it skips the question too.
func (h *Handler) finishTask(ctx context.Context, msg bus.InboundMessage, conv *conversation) {
	premium, err := h.store.IsPremium(ctx, msg.SenderID, h.parser.Now())
	if err != nil {
		slog.Error("premium check failed", "user", msg.SenderID, "error", err)
	}
	if premium && conv.Due != nil {
		conv.Step = stepAwaitRecurrence
		h.askRecurrence(msg, conv)
		return
	}
	conv.Rec = store.RecurrenceNone
	h.createTask(ctx, msg, conv)
}

func (h *Handler) askRecurrence(msg bus.InboundMessage, conv *conversation) {
	text := fmt.Sprintf("📝 %s\n⏰ %s\n\n%s", conv.Title, h.parser.FormatDue(*conv.Due), msgAskRecurrence)
	h.replyWithButtons(msg, text, recurrenceButtons())
}

func (h *Handler) stepReminder(ctx context.Context, msg bus.InboundMessage, conv *conversation, text string) {
	body, mins, ok := timeparse.ExtractReminder(text)
	if !ok {
		// maybe the whole message is the body, cadence comes next
		conv.Body = timeparse.CleanTitle(text)
		conv.Step = stepAwaitReminderInterval
		h.reply(msg, msgAskInterval)
		return
	}
	h.createReminder(ctx, msg, body, mins)
}

func (h *Handler) stepReminderInterval(ctx context.Context, msg bus.InboundMessage, conv *conversation, text string) {
	mins, ok := timeparse.ParseInterval(text)
	if !ok {
		h.reply(msg, msgBadInterval)
		return
	}
	h.createReminder(ctx, msg, conv.Body, mins)
}

func (h *Handler) createReminder(ctx context.Context, msg bus.InboundMessage, body string, mins int) {
	defer h.states.reset(msg.StateKey())

	allowed, err := h.underLimit(ctx, msg.SenderID, h.store.CountReminders, h.cfg.FreeReminderLimit)
	if err != nil {
		slog.Error("reminder limit check failed", "user", msg.SenderID, "error", err)
		return
	}
	if !allowed {
		h.reply(msg, msgReminderLimit)
		return
	}

	next := h.parser.Now().Add(time.Duration(mins) * time.Minute)
	if _, err := h.store.CreateReminder(ctx, msg.SenderID, body, mins, next); err != nil {
		slog.Error("create reminder failed", "user", msg.SenderID, "error", err)
		return
	}
	h.reply(msg, fmt.Sprintf("✅ تمام! هفكرك بـ\"%s\" %s 🔔", body, timeparse.FormatInterval(mins)))
}

func (h *Handler) createTask(ctx context.Context, msg bus.InboundMessage, conv *conversation) {
	defer h.states.reset(msg.StateKey())

	allowed, err := h.underLimit(ctx, msg.SenderID, h.store.CountTasks, h.cfg.FreeTaskLimit)
	if err != nil {
		slog.Error("task limit check failed", "user", msg.SenderID, "error", err)
		return
	}
	if !allowed {
		h.reply(msg, msgTaskLimit)
		return
	}

	if _, err := h.store.CreateTask(ctx, msg.SenderID, conv.Title, conv.Due, conv.Rec); err != nil {
		slog.Error("create task failed", "user", msg.SenderID, "error", err)
		return
	}

	rec := ""
	switch conv.Rec {
	case store.RecurrenceDaily:
		rec = "\n🔁 كل يوم"
	case store.RecurrenceWeekly:
		rec = "\n🔁 كل أسبوع"
	}
	when := "بدون معاد"
	if conv.Due != nil {
		when = h.parser.FormatDue(*conv.Due)
	}
	out := bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: fmt.Sprintf("✅ اتسجلت!\n📝 %s\n⏰ %s%s", conv.Title, when, rec),
	}
	// a recurrence button press edits its own question message in place;
	// the direct text paths send a fresh confirmation
	if msg.Kind == bus.KindCallback {
		out.EditMessageID = msg.MessageID
	}
	h.bus.PublishOutbound(out)
}

// underLimit applies the freemium ceiling; premium users pass unconditionally.
func (h *Handler) underLimit(ctx context.Context, userID int64, count func(context.Context, int64) (int, error), limit int) (bool, error) {
	premium, err := h.store.IsPremium(ctx, userID, h.parser.Now())
	if err != nil {
		return false, err
	}
	if premium {
		return true, nil
	}
	n, err := count(ctx, userID)
	if err != nil {
		return false, err
	}
	return n < limit, nil
}

func (h *Handler) sendTaskList(ctx context.Context, msg bus.InboundMessage) {
	tasks, err := h.store.Tasks(ctx, msg.SenderID, false)
	if err != nil {
		slog.Error("list tasks failed", "user", msg.SenderID, "error", err)
		return
	}
	if len(tasks) == 0 {
		h.reply(msg, msgNoTasks)
		return
	}
	h.reply(msg, fmt.Sprintf("📋 مهامك (%d):", len(tasks)))
	for _, t := range tasks {
		h.replyWithButtons(msg, taskLine(t, h.parser), [][]bus.Button{taskButtons(t)})
	}
}

func (h *Handler) sendReminderList(ctx context.Context, msg bus.InboundMessage) {
	reminders, err := h.store.Reminders(ctx, msg.SenderID)
	if err != nil {
		slog.Error("list reminders failed", "user", msg.SenderID, "error", err)
		return
	}
	if len(reminders) == 0 {
		h.reply(msg, msgNoReminders)
		return
	}
	h.reply(msg, fmt.Sprintf("🔔 تذكيراتك (%d):", len(reminders)))
	for _, r := range reminders {
		h.replyWithButtons(msg, reminderLine(r), [][]bus.Button{reminderButtons(r)})
	}
}

func (h *Handler) sendPremiumPitch(ctx context.Context, msg bus.InboundMessage) {
	premium, err := h.store.IsPremium(ctx, msg.SenderID, h.parser.Now())
	if err != nil {
		slog.Error("premium check failed", "user", msg.SenderID, "error", err)
		return
	}
	if premium {
		h.sendSubscription(ctx, msg)
		return
	}
	pitch := msgPremiumPitch + fmt.Sprintf("\nالسعر: %d ⭐ لمدة %d يوم", h.cfg.PremiumPriceStars, h.cfg.PremiumDays)
	h.replyWithButtons(msg, pitch, [][]bus.Button{{
		{Text: fmt.Sprintf("اشترك ⭐ %d", h.cfg.PremiumPriceStars), Data: "buy"},
	}})
}

func (h *Handler) sendSubscription(ctx context.Context, msg bus.InboundMessage) {
	sub, err := h.store.SubscriptionInfo(ctx, msg.SenderID)
	if err != nil {
		slog.Error("subscription info failed", "user", msg.SenderID, "error", err)
		return
	}
	if sub == nil || !sub.Premium || sub.SubEnd == nil || !sub.SubEnd.After(h.parser.Now()) {
		h.reply(msg, msgNotSubscribed)
		return
	}
	h.reply(msg, fmt.Sprintf("⭐ انت مشترك في بريميوم لغاية %s", sub.SubEnd.Format("2006-01-02")))
}

func (h *Handler) handleCallback(ctx context.Context, msg bus.InboundMessage) {
	verb, arg, _ := strings.Cut(msg.CallbackData, ":")

	ack := func() {
		h.bus.PublishOutbound(bus.OutboundMessage{Channel: msg.Channel, CallbackID: msg.CallbackID})
	}
	alert := func(text string) {
		h.bus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel, CallbackID: msg.CallbackID, Content: text, Alert: true,
		})
	}
	edit := func(text string) {
		h.bus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel, ChatID: msg.ChatID, EditMessageID: msg.MessageID, Content: text,
		})
	}

	switch verb {
	case "cancel":
		h.states.reset(msg.StateKey())
		ack()
		edit(msgCancelled)
		return
	case "buy":
		ack()
		h.bus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Invoice: &bus.Invoice{
				Title:       "اشتراك بريميوم",
				Description: fmt.Sprintf("مهام وتذكيرات من غير حدود لمدة %d يوم", h.cfg.PremiumDays),
				Payload:     fmt.Sprintf("premium:%d", h.cfg.PremiumDays),
				Currency:    "XTR",
				Amount:      h.cfg.PremiumPriceStars,
			},
		})
		return
	case "rec":
		conv := h.states.get(msg.StateKey())
		if conv.Step != stepAwaitRecurrence || conv.Due == nil {
			alert("الخطوة دي خلصت خلاص")
			return
		}
		switch arg {
		case "daily":
			conv.Rec = store.RecurrenceDaily
		case "weekly":
			conv.Rec = store.RecurrenceWeekly
		default:
			conv.Rec = store.RecurrenceNone
		}
		ack()
		h.createTask(ctx, msg, conv)
		return
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		alert("مش فاهم الزرار ده")
		return
	}

	switch verb {
	case "done":
		if ok, err := h.store.MarkDone(ctx, id, msg.SenderID); err != nil {
			slog.Error("mark done failed", "task", id, "error", err)
		} else if !ok {
			alert("مش لاقي المهمة دي")
		} else {
			ack()
			edit("✅ برافو عليك! المهمة خلصت")
		}
	case "del":
		if ok, err := h.store.DeleteTask(ctx, id, msg.SenderID); err != nil {
			slog.Error("delete task failed", "task", id, "error", err)
		} else if !ok {
			alert("مش لاقي المهمة دي")
		} else {
			ack()
			edit("🗑 اتحذفت المهمة")
		}
	case "rpause":
		if ok, err := h.store.PauseReminder(ctx, id, msg.SenderID); err != nil {
			slog.Error("pause reminder failed", "reminder", id, "error", err)
		} else if !ok {
			alert("مش لاقي التذكير ده")
		} else {
			ack()
			edit("⏸ التذكير اتوقف. تقدر تشغله تاني من /reminders")
		}
	case "rresume":
		next := h.parser.Now().Add(time.Minute)
		if ok, err := h.store.ResumeReminder(ctx, id, msg.SenderID, next); err != nil {
			slog.Error("resume reminder failed", "reminder", id, "error", err)
		} else if !ok {
			alert("مش لاقي التذكير ده")
		} else {
			ack()
			edit("▶️ التذكير اشتغل تاني")
		}
	case "rdel":
		if ok, err := h.store.DeleteReminder(ctx, id, msg.SenderID); err != nil {
			slog.Error("delete reminder failed", "reminder", id, "error", err)
		} else if !ok {
			alert("مش لاقي التذكير ده")
		} else {
			ack()
			edit("🗑 اتحذف التذكير")
		}
	default:
		alert("مش فاهم الزرار ده")
	}
}

func (h *Handler) handlePayment(ctx context.Context, msg bus.InboundMessage) {
	days := h.cfg.PremiumDays
	if _, arg, ok := strings.Cut(msg.PaymentPayload, ":"); ok {
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			days = n
		}
	}
	until := h.parser.Now().AddDate(0, 0, days)
	if err := h.store.SetPremium(ctx, msg.SenderID, until); err != nil {
		slog.Error("premium activation failed", "user", msg.SenderID, "error", err)
		return
	}
	h.reply(msg, msgPaymentThanks)
}

package dialog

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zakkerni/zakkerni/internal/bus"
	"github.com/zakkerni/zakkerni/internal/store"
	"github.com/zakkerni/zakkerni/internal/timeparse"
)

var testZone = time.FixedZone("EET", 2*60*60)

type capture struct {
	mu   sync.Mutex
	msgs []bus.OutboundMessage
}

func (c *capture) add(msg bus.OutboundMessage) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// waitFor polls until at least n outbound messages arrived.
func (c *capture) waitFor(t *testing.T, n int) []bus.OutboundMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) < n {
		t.Fatalf("timeout waiting for %d outbound messages, got %d: %+v", n, len(c.msgs), c.msgs)
	}
	out := make([]bus.OutboundMessage, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func newTestHandler(t *testing.T, cfg Config) (*Handler, *capture, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"), testZone)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	msgBus := bus.NewMessageBus(64)
	sink := &capture{}
	msgBus.Subscribe("", sink.add)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go msgBus.DispatchOutbound(ctx)

	h := NewHandler(st, timeparse.New(testZone), msgBus, cfg)
	return h, sink, st
}

func userMsg(text string) bus.InboundMessage {
	return bus.InboundMessage{
		Channel: "telegram", Kind: bus.KindMessage,
		SenderID: 7, ChatID: 7, Username: "tester", Content: text,
	}
}

func callback(data string, messageID int) bus.InboundMessage {
	return bus.InboundMessage{
		Channel: "telegram", Kind: bus.KindCallback,
		SenderID: 7, ChatID: 7, CallbackID: "cb1", CallbackData: data, MessageID: messageID,
	}
}

func TestStartShowsKeyboard(t *testing.T) {
	h, sink, _ := newTestHandler(t, Config{})
	h.Handle(context.Background(), userMsg("/start"))

	msgs := sink.waitFor(t, 1)
	if len(msgs[0].Keyboard) == 0 {
		t.Error("welcome message should carry the reply keyboard")
	}
	if !strings.Contains(msgs[0].Content, "أهلاً") {
		t.Errorf("unexpected welcome text: %q", msgs[0].Content)
	}
}

func TestOneShotTaskFlow(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	// a free user saves right away; repeats are a premium perk
	h.Handle(ctx, userMsg("اتصل بماما بكرة 5 العصر"))

	msgs := sink.waitFor(t, 1)
	conf := msgs[0]
	if !strings.Contains(conf.Content, "اتسجلت") || !strings.Contains(conf.Content, "اتصل بماما") {
		t.Fatalf("expected a save confirmation, got %q", conf.Content)
	}
	if len(conf.InlineRows) != 0 {
		t.Fatalf("free user should not see recurrence buttons, got %+v", conf.InlineRows)
	}
	if conf.EditMessageID != 0 {
		t.Errorf("text-path confirmation should be a fresh message, edits %d", conf.EditMessageID)
	}

	tasks, err := st.Tasks(ctx, 7, false)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.Title != "اتصل بماما" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Due == nil || got.Due.Hour() != 17 {
		t.Errorf("due = %v, want 17:00 tomorrow", got.Due)
	}
	if got.Recurrence != store.RecurrenceNone {
		t.Errorf("recurrence = %q, want none", got.Recurrence)
	}
}

func TestGuidedTaskFlow(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	// premium owner, so the flow ends with the recurrence question
	if err := st.EnsureUser(ctx, 7, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetPremium(ctx, 7, time.Now().In(testZone).AddDate(0, 0, 30)); err != nil {
		t.Fatal(err)
	}

	h.Handle(ctx, userMsg(labelNewTask))
	msgs := sink.waitFor(t, 1)
	if msgs[0].Content != msgAskTask {
		t.Fatalf("expected task prompt, got %q", msgs[0].Content)
	}

	// a bare title keeps the flow going and asks for the due separately
	h.Handle(ctx, userMsg("روح الجيم"))
	msgs = sink.waitFor(t, 2)
	if msgs[1].Content != msgAskDue {
		t.Fatalf("expected due prompt, got %q", msgs[1].Content)
	}

	h.Handle(ctx, userMsg("بكرة 7 المغرب"))
	msgs = sink.waitFor(t, 3)
	if len(msgs[2].InlineRows) == 0 {
		t.Fatalf("expected recurrence buttons, got %+v", msgs[2])
	}

	h.Handle(ctx, callback("rec:daily", 11))
	sink.waitFor(t, 5)

	tasks, err := st.Tasks(ctx, 7, false)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title != "روح الجيم" {
		t.Errorf("title = %q", tasks[0].Title)
	}
	if tasks[0].Recurrence != store.RecurrenceDaily {
		t.Errorf("recurrence = %q, want daily", tasks[0].Recurrence)
	}
	if tasks[0].Due == nil || tasks[0].Due.Hour() != 19 {
		t.Errorf("due = %v, want 19:00", tasks[0].Due)
	}
}

func TestSkipDueSavesTaskWithoutDue(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	h.Handle(ctx, userMsg(labelNewTask))
	h.Handle(ctx, userMsg("اشتري شاحن"))
	sink.waitFor(t, 2)

	h.Handle(ctx, userMsg("بدون"))
	msgs := sink.waitFor(t, 3)
	if !strings.Contains(msgs[2].Content, "اتسجلت") {
		t.Fatalf("expected a save confirmation, got %q", msgs[2].Content)
	}

	tasks, err := st.Tasks(ctx, 7, false)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title != "اشتري شاحن" {
		t.Errorf("title = %q", tasks[0].Title)
	}
	if tasks[0].Due != nil {
		t.Errorf("due = %v, want none", tasks[0].Due)
	}
}

func TestReminderFastPath(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	h.Handle(ctx, userMsg("فكرني بالاستغفار كل ساعة"))
	msgs := sink.waitFor(t, 1)
	if !strings.Contains(msgs[0].Content, "الاستغفار") {
		t.Errorf("confirmation should echo the body: %q", msgs[0].Content)
	}

	reminders, err := st.Reminders(ctx, 7)
	if err != nil {
		t.Fatalf("Reminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(reminders))
	}
	if reminders[0].Text != "الاستغفار" || reminders[0].IntervalMins != 60 {
		t.Errorf("got %q every %d mins", reminders[0].Text, reminders[0].IntervalMins)
	}
}

func TestGuidedReminderFlow(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	h.Handle(ctx, userMsg(labelNewReminder))
	sink.waitFor(t, 1)

	h.Handle(ctx, userMsg("شرب المية"))
	msgs := sink.waitFor(t, 2)
	if msgs[1].Content != msgAskInterval {
		t.Fatalf("expected interval prompt, got %q", msgs[1].Content)
	}

	h.Handle(ctx, userMsg("كل ساعتين"))
	sink.waitFor(t, 3)

	reminders, err := st.Reminders(ctx, 7)
	if err != nil {
		t.Fatalf("Reminders: %v", err)
	}
	if len(reminders) != 1 || reminders[0].IntervalMins != 120 {
		t.Fatalf("expected one 120-minute reminder, got %+v", reminders)
	}
}

func TestPauseThenResumeFromList(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	h.Handle(ctx, userMsg("فكرني بشرب المية كل ساعة"))
	sink.waitFor(t, 1)

	reminders, err := st.Reminders(ctx, 7)
	if err != nil || len(reminders) != 1 {
		t.Fatalf("Reminders = %+v, %v; want one", reminders, err)
	}
	id := strconv.FormatInt(reminders[0].ID, 10)

	h.Handle(ctx, callback("rpause:"+id, 30))
	sink.waitFor(t, 3) // ack + edit

	// the listing still shows the paused reminder, offering a resume button
	h.Handle(ctx, userMsg("/reminders"))
	msgs := sink.waitFor(t, 5)
	item := msgs[4]
	if !strings.Contains(item.Content, "متوقف") {
		t.Errorf("listing should flag the paused state, got %q", item.Content)
	}
	if len(item.InlineRows) == 0 || item.InlineRows[0][0].Data != "rresume:"+id {
		t.Fatalf("expected a resume button, got %+v", item.InlineRows)
	}

	h.Handle(ctx, callback("rresume:"+id, 31))
	sink.waitFor(t, 7)

	reminders, _ = st.Reminders(ctx, 7)
	if len(reminders) != 1 || !reminders[0].Active {
		t.Errorf("reminder should be active again, got %+v", reminders)
	}
}

func TestPastDueRejected(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	h.Handle(ctx, userMsg(labelNewTask))
	h.Handle(ctx, userMsg("مذاكرة"))
	h.Handle(ctx, userMsg("امبارح"))

	msgs := sink.waitFor(t, 3)
	if msgs[2].Content != msgPastDue {
		t.Errorf("expected past-due rejection, got %q", msgs[2].Content)
	}

	tasks, _ := st.Tasks(ctx, 7, false)
	if len(tasks) != 0 {
		t.Errorf("no task should be created for a past due, got %d", len(tasks))
	}
}

func TestFreemiumTaskLimit(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{FreeTaskLimit: 1})
	ctx := context.Background()

	if err := st.EnsureUser(ctx, 7, "tester"); err != nil {
		t.Fatal(err)
	}
	due := time.Now().In(testZone).Add(time.Hour)
	if _, err := st.CreateTask(ctx, 7, "قديمة", &due, store.RecurrenceNone); err != nil {
		t.Fatal(err)
	}

	h.Handle(ctx, userMsg("اتصل بماما بكرة 5 العصر"))

	msgs := sink.waitFor(t, 1)
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Content, "الأقصى") {
		t.Errorf("expected limit message, got %q", last.Content)
	}

	tasks, _ := st.Tasks(ctx, 7, false)
	if len(tasks) != 1 {
		t.Errorf("expected the ceiling to hold at 1 task, got %d", len(tasks))
	}
}

func TestCallbackDoneAndUnknown(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	if err := st.EnsureUser(ctx, 7, "tester"); err != nil {
		t.Fatal(err)
	}
	due := time.Now().In(testZone).Add(time.Hour)
	id, err := st.CreateTask(ctx, 7, "مهمة", &due, store.RecurrenceNone)
	if err != nil {
		t.Fatal(err)
	}

	h.Handle(ctx, callback("done:"+strconv.FormatInt(id, 10), 20))
	msgs := sink.waitFor(t, 2)
	if msgs[1].EditMessageID != 20 {
		t.Errorf("confirmation should edit the notification, got %+v", msgs[1])
	}

	tasks, _ := st.Tasks(ctx, 7, false)
	if len(tasks) != 0 {
		t.Errorf("task should be done, still open: %d", len(tasks))
	}

	// a second press finds nothing and answers with an alert
	h.Handle(ctx, callback("done:"+strconv.FormatInt(id, 10), 20))
	msgs = sink.waitFor(t, 3)
	if !msgs[2].Alert {
		t.Errorf("expected alert for repeated press, got %+v", msgs[2])
	}
}

func TestPaymentFlow(t *testing.T) {
	h, sink, st := newTestHandler(t, Config{})
	ctx := context.Background()

	h.Handle(ctx, bus.InboundMessage{
		Channel: "telegram", Kind: bus.KindPreCheckout,
		SenderID: 7, ChatID: 7, PreCheckoutID: "pcq1", PaymentPayload: "premium:30",
	})
	msgs := sink.waitFor(t, 1)
	if msgs[0].AckPreCheckoutID != "pcq1" {
		t.Fatalf("expected pre-checkout ack, got %+v", msgs[0])
	}

	h.Handle(ctx, bus.InboundMessage{
		Channel: "telegram", Kind: bus.KindPayment,
		SenderID: 7, ChatID: 7, Username: "tester", PaymentPayload: "premium:30",
	})
	sink.waitFor(t, 2)

	premium, err := st.IsPremium(ctx, 7, time.Now().In(testZone))
	if err != nil {
		t.Fatalf("IsPremium: %v", err)
	}
	if !premium {
		t.Error("payment should activate premium")
	}
}

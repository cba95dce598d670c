package dialog

import (
	"fmt"

	"github.com/zakkerni/zakkerni/internal/bus"
	"github.com/zakkerni/zakkerni/internal/store"
	"github.com/zakkerni/zakkerni/internal/timeparse"
)

// Reply keyboard labels double as button-press commands.
const (
	labelNewTask     = "➕ مهمة جديدة"
	labelMyTasks     = "📋 مهامي"
	labelNewReminder = "⏰ تذكير جديد"
	labelMyReminders = "🔔 تذكيراتي"
	labelPremium     = "⭐ بريميوم"
	labelHelp        = "❓ مساعدة"
	labelCancel      = "❌ إلغاء"
)

const (
	msgWelcome = "أهلاً بيك في ذكّرني 👋\n\n" +
		"ابعتلي مهمتك ومعادها في رسالة واحدة، زي:\n" +
		"• \"اتصل بماما بكرة 5 العصر\"\n" +
		"• \"فكرني باجتماع الشغل الخميس 10 الصبح\"\n" +
		"• \"فكرني بالاستغفار كل ساعة\"\n\n" +
		"وهفكرك في معادها بالظبط ⏰"

	msgHelp = "إزاي تستخدمني:\n\n" +
		"📝 مهمة بمعاد: \"روح الجيم بكرة 7 المغرب\"\n" +
		"🔁 تذكير دوري: \"فكرني بشرب المية كل ساعتين\"\n\n" +
		"الأوامر:\n" +
		"/tasks - مهامك الحالية\n" +
		"/reminders - تذكيراتك الدورية\n" +
		"/premium - اشتراك بريميوم\n" +
		"/my_subscription - حالة اشتراكك\n" +
		"/cancel - إلغاء الخطوة الحالية"

	msgAskTask        = "تمام، ابعتلي المهمة ومعادها في رسالة واحدة 📝"
	msgAskDue         = "إمتى أفكرك؟ ⏰\n(مثلاً: بكرة 5 العصر، بعد ساعتين، الخميس 10 الصبح)\nأو اكتب \"بدون\" لو المهمة من غير معاد"
	msgAskRecurrence  = "المهمة دي تتكرر؟ 🔁"
	msgAskReminder    = "ابعتلي التذكير وكل قد إيه أبعته 🔔\n(مثلاً: فكرني بالاستغفار كل ساعة)"
	msgAskInterval    = "كل قد إيه أبعتلك التذكير ده؟\n(مثلاً: كل ساعة، كل 30 دقيقة)"
	msgBadDue         = "معلش مش فاهم المعاد ده 😅 جرب تكتبه بشكل تاني، زي \"بكرة 5 العصر\""
	msgPastDue        = "المعاد ده فات خلاص! ⏰ ابعتلي معاد في المستقبل"
	msgBadInterval    = "مش فاهم المدة دي 😅 جرب زي \"كل ساعة\" أو \"كل 30 دقيقة\""
	msgCancelled      = "تمام، لغيت الخطوة الحالية ✅"
	msgNothingGrasped = "مش فاهم قصدك 😅 ابعت /help أشرحلك"

	msgTaskLimit = "وصلت للحد الأقصى من المهام في النسخة المجانية 😔\n" +
		"اشترك في بريميوم عشان مهام من غير حدود ⭐ /premium"
	msgReminderLimit = "وصلت للحد الأقصى من التذكيرات الدورية في النسخة المجانية 😔\n" +
		"اشترك في بريميوم عشان تذكيرات من غير حدود ⭐ /premium"

	msgNoTasks     = "مفيش مهام حالياً 📭 ابعتلي مهمة جديدة!"
	msgNoReminders = "مفيش تذكيرات دورية حالياً 📭"

	msgPremiumPitch = "⭐ بريميوم يديك:\n" +
		"• مهام وتذكيرات من غير حدود\n" +
		"• تكرار يومي وأسبوعي للمهام\n" +
		"• ملخص يومي لأجندتك كل يوم الصبح\n"
	msgPaymentThanks = "تم تفعيل بريميوم! ⭐ استمتع 🎉"
	msgNotSubscribed = "انت مش مشترك في بريميوم حالياً. ابعت /premium للاشتراك ⭐"
)

// mainKeyboard is the persistent reply keyboard.
func mainKeyboard() [][]string {
	return [][]string{
		{labelNewTask, labelMyTasks},
		{labelNewReminder, labelMyReminders},
		{labelPremium, labelHelp},
	}
}

func recurrenceButtons() [][]bus.Button {
	return [][]bus.Button{
		{
			{Text: "مرة واحدة", Data: "rec:none"},
			{Text: "يومي 🔁", Data: "rec:daily"},
			{Text: "أسبوعي 🔁", Data: "rec:weekly"},
		},
		{{Text: labelCancel, Data: "cancel"}},
	}
}

func taskButtons(t store.Task) []bus.Button {
	return []bus.Button{
		{Text: "تم ✅", Data: fmt.Sprintf("done:%d", t.ID)},
		{Text: "حذف 🗑", Data: fmt.Sprintf("del:%d", t.ID)},
	}
}

func reminderButtons(r store.Reminder) []bus.Button {
	toggle := bus.Button{Text: "إيقاف ⏸", Data: fmt.Sprintf("rpause:%d", r.ID)}
	if !r.Active {
		toggle = bus.Button{Text: "تشغيل ▶️", Data: fmt.Sprintf("rresume:%d", r.ID)}
	}
	return []bus.Button{
		toggle,
		{Text: "حذف 🗑", Data: fmt.Sprintf("rdel:%d", r.ID)},
	}
}

func taskLine(t store.Task, p *timeparse.Parser) string {
	rec := ""
	switch t.Recurrence {
	case store.RecurrenceDaily:
		rec = " 🔁 يومي"
	case store.RecurrenceWeekly:
		rec = " 🔁 أسبوعي"
	}
	if t.Due == nil {
		return fmt.Sprintf("📝 %s%s", t.Title, rec)
	}
	return fmt.Sprintf("📝 %s\n⏰ %s%s", t.Title, p.FormatDue(*t.Due), rec)
}

func reminderLine(r store.Reminder) string {
	state := "شغال ▶️"
	if !r.Active {
		state = "متوقف ⏸"
	}
	return fmt.Sprintf("🔔 %s\n⏱ %s • %s", r.Text, timeparse.FormatInterval(r.IntervalMins), state)
}

package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/transcript"
)

// Callback data understood by the bot.
const (
	cbProfile  = "profile"
	cbPeriods  = "periods"
	cbPayPfx   = "pay_"
	cbAllChats = "all_chats"
	cbOpenChat = "open_chat"
	cbBack     = "back"
	cbHelp     = "help"
	cbNoop     = "noop"
)

const (
	textConnected    = "✅ <b>Бот успешно подключен!</b>\n\nТеперь я буду сохранять и отслеживать сообщения ✨"
	textDisconnected = "Будем вас ждать снова 💖"
	textUpsell       = "⚠️ У вас нет активной подписки! Оплатите Stars ⭐"
	textAdminsOnly   = "⚠️ Эта команда доступна только админам!"
	textGiftUsage    = "Использование: /gift &lt;user_id&gt;"
	textBadUserID    = "⚠️ Некорректный ID пользователя!"
	textNoChats      = "💬 Нет сохраненных чатов."
	textChats        = "💬 Ваши чаты:"
	textMediaGone    = "⚠️ Медиа не найдено или уже удалено."
	textForbidden    = "⛔ Нет доступа к этому чату."
	textPayRejected  = "Не удалось проверить платёж, попробуйте ещё раз."
	textDumpCaption  = "🗄 Резервная копия базы данных"

	textHelp = "<b>💫 Для подключения Delixor выполните следующие шаги:</b>\n\n" +
		"▶ Откройте настройки Telegram\n" +
		"▶ Перейдите в раздел «Telegram для Бизнеса»\n" +
		"▶ Выберите «Чат-боты» и найдите DelixorBot\n\n" +
		"<blockquote>💻 В разрешениях для бота выберите все пункты раздела Сообщения (5/5)</blockquote>\n" +
		"<blockquote>⚠️ Для подключения нашего мода требуется Telegram Premium</blockquote>"
)

// giftDuration is the tester period granted by /gift.
const giftDuration = 30 * 24 * time.Hour

var genitiveMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDate renders t as "2 января 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), genitiveMonths[t.Month()-1], t.Year())
}

func greeting(name string) string {
	return "👋 Привет, " + telegram.Bold(name) + "!\n\n" +
		"Delixor сохраняет удалённые и изменённые сообщения в чатах. Ничего лишнего — только контроль и прозрачность"
}

func profileText(u *telegram.User, sub *store.Subscription, now time.Time, stored int) string {
	var b strings.Builder
	b.WriteString("<b>👤 Профиль</b>\n\n")
	fmt.Fprintf(&b, "<b>🧑‍💻Имя:</b> %s\n", telegram.EscapeHTML(u.FullName()))
	fmt.Fprintf(&b, "<b>🆔ID:</b> %d\n", u.ID)
	fmt.Fprintf(&b, "<b>💬Сохранено сообщений:</b> %d\n", stored)
	if sub.ActiveAt(now) {
		fmt.Fprintf(&b, "<b>Подписка:</b> ✅ активна до %s", FormatDate(*sub.ActiveUntil))
	} else {
		b.WriteString("<b>Подписка:</b> ❌ не активна")
	}
	return b.String()
}

func periodsText(plans subscription.Plans) string {
	var b strings.Builder
	b.WriteString("📌 Доступные подписки:\n\n")
	for _, p := range plans {
		fmt.Fprintf(&b, "- %s: %d Stars ⭐\n", telegram.EscapeHTML(p.Label), p.Stars)
	}
	b.WriteString("\nВыберите нужный период для оплаты:")
	return b.String()
}

func alreadyActiveText(until time.Time) string {
	return "⚠️ У вас уже активная подписка до " + telegram.Bold(FormatDate(until)) + ".\n" +
		"Новая подписка оформить нельзя пока старая активна."
}

func invoiceDescription(plan subscription.Plan) string {
	return plan.Title + " на DelixorBOT"
}

func paidText(until time.Time) string {
	return "✅ Оплата получена! Подписка активна до " + telegram.Bold(FormatDate(until)) + "."
}

func giftedText(until time.Time) string {
	return "🧑‍💻 Вам выдали роль тестировщика до " + FormatDate(until)
}

func giftDoneText(ownerID int64, until time.Time) string {
	return fmt.Sprintf("✅ Роль тестировщика успешна выдана %d до %s", ownerID, FormatDate(until))
}

func mainKeyboard(instructionsURL string) *telegram.InlineKeyboardMarkup {
	instructions := telegram.CallbackButton("📖 Инструкция", cbHelp)
	if instructionsURL != "" {
		instructions = telegram.WebAppButton("📖 Инструкция", instructionsURL)
	}
	return telegram.Keyboard(
		telegram.Row(instructions),
		telegram.Row(telegram.CallbackButton("👤 Профиль", cbProfile)),
		telegram.Row(telegram.CallbackButton("💳 Периоды подписки", cbPeriods)),
		telegram.Row(telegram.CallbackButton("💬 Все чаты", cbAllChats)),
	)
}

func backButton(data string) telegram.InlineKeyboardButton {
	return telegram.CallbackButton("⬅️ Назад", data)
}

func backKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(telegram.Row(backButton(cbBack)))
}

func upsellKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(telegram.Row(telegram.CallbackButton("💳 Оплатить", cbPeriods)))
}

func periodsKeyboard(plans subscription.Plans) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(plans)+1)
	for _, p := range plans {
		rows = append(rows, telegram.Row(telegram.CallbackButton("💳 "+p.Label, cbPayPfx+p.ID)))
	}
	rows = append(rows, telegram.Row(backButton(cbBack)))
	return telegram.Keyboard(rows...)
}

func openChatData(key string, page int) string {
	return fmt.Sprintf("%s:%s:%d", cbOpenChat, key, page)
}

// parseOpenChat decodes "open_chat:{key}:{page}".
func parseOpenChat(data string) (key string, page int, ok bool) {
	rest, found := strings.CutPrefix(data, cbOpenChat+":")
	if !found {
		return "", 0, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return "", 0, false
	}
	page, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], page, true
}

func chatsKeyboard(ownerName string, chats []transcript.Chat) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(chats)+1)
	for _, c := range chats {
		rows = append(rows, telegram.Row(telegram.CallbackButton(ownerName+" ↔ "+c.Name, openChatData(c.Key, 1))))
	}
	rows = append(rows, telegram.Row(backButton(cbBack)))
	return telegram.Keyboard(rows...)
}

func transcriptKeyboard(key string, nav transcript.Navigation) *telegram.InlineKeyboardMarkup {
	var buttons []telegram.InlineKeyboardButton
	if nav.HasPrev {
		buttons = append(buttons, telegram.CallbackButton("◀️", openChatData(key, nav.Page-1)))
	}
	if nav.Pages > 1 {
		buttons = append(buttons, telegram.CallbackButton(fmt.Sprintf("%d/%d", nav.Page, nav.Pages), cbNoop))
	}
	if nav.HasNext {
		buttons = append(buttons, telegram.CallbackButton("▶️", openChatData(key, nav.Page+1)))
	}
	var rows [][]telegram.InlineKeyboardButton
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	rows = append(rows, telegram.Row(backButton(cbAllChats)))
	return telegram.Keyboard(rows...)
}

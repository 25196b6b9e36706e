package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

const (
	// ParseModeHTML selects Telegram's HTML message formatting.
	ParseModeHTML = "HTML"

	// MaxMessageRunes is the length limit of a message text.
	MaxMessageRunes = 4096

	// MaxCaptionRunes is the length limit of a media caption.
	MaxCaptionRunes = 1024

	// Ellipsis ends text that was cut to fit a limit.
	Ellipsis = "…"
)

// EscapeHTML escapes the characters Telegram's HTML parse mode reserves.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Truncate returns s cut to at most limit runes. Cut text ends with
// Ellipsis.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit < 1 {
		return ""
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + Ellipsis
}

// EscapeHTMLLimit escapes s and keeps the result within limit runes. The
// cut never splits an entity, and cut text ends with Ellipsis.
func EscapeHTMLLimit(s string, limit int) string {
	escaped := EscapeHTML(s)
	if utf8.RuneCountInString(escaped) <= limit {
		return escaped
	}
	if limit < 1 {
		return ""
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		e := EscapeHTML(string(r))
		w := utf8.RuneCountInString(e)
		if n+w > limit-1 {
			break
		}
		b.WriteString(e)
		n += w
	}
	b.WriteString(Ellipsis)
	return b.String()
}

// Bold wraps escaped s in <b> tags.
func Bold(s string) string {
	return "<b>" + EscapeHTML(s) + "</b>"
}

// Italic wraps escaped s in <i> tags.
func Italic(s string) string {
	return "<i>" + EscapeHTML(s) + "</i>"
}

// Code wraps escaped s in <code> tags.
func Code(s string) string {
	return "<code>" + EscapeHTML(s) + "</code>"
}

// Link renders an anchor with an escaped label.
func Link(href, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, EscapeHTML(href), EscapeHTML(label))
}

// Mention renders "@handle" for a username, or the escaped name otherwise.
func Mention(username, name string) string {
	if username != "" {
		return "@" + EscapeHTML(strings.TrimPrefix(username, "@"))
	}
	return EscapeHTML(name)
}

// DeepLink returns a t.me start link for the given bot username.
func DeepLink(botUsername, payload string) string {
	return "https://t.me/" + botUsername + "?start=" + payload
}

// Keyboard builds an inline keyboard from rows of buttons.
func Keyboard(rows ...[]InlineKeyboardButton) *InlineKeyboardMarkup {
	if rows == nil {
		rows = [][]InlineKeyboardButton{}
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

// Row groups buttons on one keyboard line.
func Row(buttons ...InlineKeyboardButton) []InlineKeyboardButton {
	return buttons
}

// CallbackButton returns a button that sends data back to the bot.
func CallbackButton(text, data string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, CallbackData: data}
}

// URLButton returns a button that opens url.
func URLButton(text, url string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, URL: url}
}

// WebAppButton returns a button that opens url as a Web App.
func WebAppButton(text, url string) InlineKeyboardButton {
	return InlineKeyboardButton{Text: text, WebApp: &WebAppInfo{URL: url}}
}

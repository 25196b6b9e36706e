package shadow

import (
	"fmt"

	"github.com/delixor/shadowbot/internal/telegram"
)

const (
	maxNoticeHandleRunes = 64
	// Both quotes of an edit notice plus the frame fit in one message.
	maxEditQuoteRunes   = 1950
	maxDeleteQuoteRunes = 3950
)

// EditNotice is the HTML notification sent to the owner when handle edited
// a message from before to after. Long texts are shortened.
func EditNotice(handle, before, after string) string {
	return fmt.Sprintf("<b>✏️@%s изменил сообщение</b>\n<blockquote>💬%s ➜ %s</blockquote>",
		telegram.EscapeHTMLLimit(handle, maxNoticeHandleRunes),
		telegram.EscapeHTMLLimit(before, maxEditQuoteRunes),
		telegram.EscapeHTMLLimit(after, maxEditQuoteRunes))
}

// DeleteNotice is the HTML notification sent to the owner when handle
// deleted a message whose content was original. Long texts are shortened.
func DeleteNotice(handle, original string) string {
	return fmt.Sprintf("<b>🗑️@%s удалил сообщение</b>\n<blockquote>💬%s</blockquote>",
		telegram.EscapeHTMLLimit(handle, maxNoticeHandleRunes),
		telegram.EscapeHTMLLimit(original, maxDeleteQuoteRunes))
}

// RecoveredCaption is the plain-text caption of a deleted media item sent
// back to the owner, cut to the caption limit.
func RecoveredCaption(handle, caption string) string {
	c := "🗑️ @" + handle + " удалил медиа"
	if caption != "" {
		c += "\n" + caption
	}
	return telegram.Truncate(c, telegram.MaxCaptionRunes)
}

// Package telegram is a small Telegram Bot API client covering the business
// connection, inline keyboard and Stars payment surface the bot needs. Updates
// arrive either through the long-polling Poller or the WebhookReceiver; both
// hand each decoded Update to a single Handler.
package telegram

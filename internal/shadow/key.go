package shadow

import (
	"strconv"
	"strings"
)

// ConversationKey returns the key grouping every message between ownerID
// and one counterparty. The counterparty is the participant that is not the
// owner: when the owner authored the message from inside the business chat,
// the chat id identifies the counterparty; otherwise the sender does.
func ConversationKey(ownerID, senderID, chatID int64) string {
	counterparty := senderID
	if senderID == ownerID {
		counterparty = chatID
	}
	return KeyFor(ownerID, counterparty)
}

// KeyFor formats the key of the (ownerID, counterpartyID) pair.
func KeyFor(ownerID, counterpartyID int64) string {
	return strconv.FormatInt(ownerID, 10) + "_" + strconv.FormatInt(counterpartyID, 10)
}

// ParseConversationKey splits key back into its owner and counterparty ids.
// ok is false when key is malformed.
func ParseConversationKey(key string) (ownerID, counterpartyID int64, ok bool) {
	owner, counterparty, found := strings.Cut(key, "_")
	if !found {
		return 0, 0, false
	}
	o, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	c, err := strconv.ParseInt(counterparty, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return o, c, true
}

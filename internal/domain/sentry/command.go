package sentry

// Chat commands understood by the bot.
const (
	CommandStart  = "start"
	CommandStatus = "status"
)

// Command is a slash command received from a chat.
type Command struct {
	// Name is the command without the leading slash and bot suffix.
	Name string
	// From is the sender's username, informational only.
	From string
	// ChatID is the chat the command came from.
	ChatID ChatID
}

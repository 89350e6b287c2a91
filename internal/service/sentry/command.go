package sentry

import (
	"context"
	"fmt"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	"github.com/oshokin/face-sentry/internal/logger"
)

// sourceOperator marks changes made from the chat.
const sourceOperator = "operator"

// CommandHandler reacts to chat commands. It runs on the dispatcher goroutine
// and replies through the same send path as queued messages.
type CommandHandler struct {
	// state is the shared detection state.
	state *SharedState
	// reply sends a text back to the chat.
	reply func(ctx context.Context, msg domain.TextMessage)
}

// NewCommandHandler creates a handler replying through reply.
func NewCommandHandler(state *SharedState, reply func(ctx context.Context, msg domain.TextMessage)) *CommandHandler {
	return &CommandHandler{
		state: state,
		reply: reply,
	}
}

// Handle executes a single command. Unknown commands are ignored.
func (h *CommandHandler) Handle(ctx context.Context, cmd domain.Command) {
	switch cmd.Name {
	case domain.CommandStart:
		h.start(ctx, cmd)
	case domain.CommandStatus:
		h.status(ctx, cmd)
	default:
		logger.DebugKV(ctx, "Ignoring unknown command", "command", cmd.Name, "chat_id", cmd.ChatID)
	}
}

// start registers the chat as the operator, replacing any previous one.
func (h *CommandHandler) start(ctx context.Context, cmd domain.Command) {
	if !cmd.ChatID.IsSet() {
		return
	}

	previous := h.state.RegisterOperator(sourceOperator, cmd.ChatID)

	logger.InfoKV(ctx, "Operator registered", "chat_id", cmd.ChatID, "previous_chat_id", previous, "from", cmd.From)

	body := fmt.Sprintf(
		"Welcome to the face detection bot.\n"+
			"This chat's id is %s, alerts will be sent here.\n"+
			"Press the button to switch face detection on and off (currently %s).",
		cmd.ChatID,
		domain.StatusWord(h.state.Active()),
	)

	h.send(ctx, cmd.ChatID, body)
}

// status reports the current state to the operator. Requests from any other
// chat, or before an operator registered, are ignored.
func (h *CommandHandler) status(ctx context.Context, cmd domain.Command) {
	snapshot := h.state.Snapshot()

	if !snapshot.Operator.IsSet() || cmd.ChatID != snapshot.Operator {
		logger.DebugKV(ctx, "Ignoring status request from non-operator chat", "chat_id", cmd.ChatID)
		return
	}

	body := fmt.Sprintf("Face detection is %s.", domain.StatusWord(snapshot.Active))

	h.send(ctx, cmd.ChatID, body)
}

func (h *CommandHandler) send(ctx context.Context, chatID domain.ChatID, body string) {
	msg, err := domain.NewTextMessage(chatID, body)
	if err != nil {
		return
	}

	h.reply(ctx, msg)
}

package sentry

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNoOperator is returned when a message is built before an operator registered.
var ErrNoOperator = errors.New("no operator registered")

// Request is anything the notification queue carries.
type Request interface {
	// RequestID identifies the request in logs.
	RequestID() string
}

// TextMessage asks the chat channel to send a text.
type TextMessage struct {
	ID     string
	ChatID ChatID
	Body   string
}

// RequestID implements Request.
func (m TextMessage) RequestID() string { return m.ID }

// PhotoMessage asks the chat channel to send the image stored at ImagePath.
type PhotoMessage struct {
	ID        string
	ChatID    ChatID
	ImagePath string
}

// RequestID implements Request.
func (m PhotoMessage) RequestID() string { return m.ID }

// Toggle is a debounced button edge flipping the detection flag.
type Toggle struct {
	ID     string
	Source string
}

// RequestID implements Request.
func (t Toggle) RequestID() string { return t.ID }

// Switch sets the detection flag to an explicit value.
// When Reply is non-nil it receives the state after the switch was applied.
type Switch struct {
	ID     string
	Source string
	Reply  chan<- State
	Active bool
}

// RequestID implements Request.
func (s Switch) RequestID() string { return s.ID }

// NewTextMessage builds a text message for chatID.
func NewTextMessage(chatID ChatID, body string) (TextMessage, error) {
	if !chatID.IsSet() {
		return TextMessage{}, ErrNoOperator
	}

	return TextMessage{
		ID:     uuid.NewString(),
		ChatID: chatID,
		Body:   body,
	}, nil
}

// NewPhotoMessage builds a photo message for chatID.
func NewPhotoMessage(chatID ChatID, imagePath string) (PhotoMessage, error) {
	if !chatID.IsSet() {
		return PhotoMessage{}, ErrNoOperator
	}

	return PhotoMessage{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		ImagePath: imagePath,
	}, nil
}

// NewToggle builds a toggle event.
func NewToggle(source string) Toggle {
	return Toggle{
		ID:     uuid.NewString(),
		Source: source,
	}
}

// NewSwitch builds a switch event. reply may be nil.
func NewSwitch(source string, active bool, reply chan<- State) Switch {
	return Switch{
		ID:     uuid.NewString(),
		Source: source,
		Reply:  reply,
		Active: active,
	}
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
	"github.com/oshokin/face-sentry/internal/logger"
)

const (
	// pollTimeoutSeconds is the server-side long polling timeout.
	pollTimeoutSeconds = 30
	// commandBuffer is the capacity of the command channel.
	commandBuffer = 16
)

// errEmptyToken is returned when no bot token is configured.
var errEmptyToken = errors.New("bot token is empty")

// Bot wraps a Telegram bot client.
type Bot struct {
	api *telego.Bot
}

// New creates a bot client. The library logs only warnings and errors.
func New(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errEmptyToken
	}

	api, err := telego.NewBot(token, telego.WithLogger(logger.Derived("telego", zap.WarnLevel)))
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &Bot{
		api: api,
	}, nil
}

// Username checks the token against the API and returns the bot's username.
func (b *Bot) Username(ctx context.Context) (string, error) {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("get bot identity: %w", err)
	}

	return me.Username, nil
}

// Commands starts long polling and returns the slash commands it receives.
// The channel is closed when polling stops, which happens when ctx ends.
func (b *Bot) Commands(ctx context.Context) (<-chan domain.Command, error) {
	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        pollTimeoutSeconds,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return nil, fmt.Errorf("start long polling: %w", err)
	}

	commands := make(chan domain.Command, commandBuffer)

	go func() {
		defer close(commands)

		for update := range updates {
			cmd, ok := ParseCommand(update)
			if !ok {
				continue
			}

			select {
			case commands <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}()

	return commands, nil
}

// SendText sends a plain text message.
func (b *Bot) SendText(ctx context.Context, chatID domain.ChatID, text string) error {
	if _, err := b.api.SendMessage(ctx, tu.Message(tu.ID(int64(chatID)), text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// SendPhoto uploads the image file at imagePath.
func (b *Bot) SendPhoto(ctx context.Context, chatID domain.ChatID, imagePath string) error {
	file, err := os.Open(filepath.Clean(imagePath))
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err = b.api.SendPhoto(ctx, tu.Photo(tu.ID(int64(chatID)), tu.File(file))); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}

	return nil
}

// ParseCommand extracts a slash command from an update.
// "/start@my_bot payload" yields the command "start".
func ParseCommand(update telego.Update) (domain.Command, bool) {
	msg := update.Message
	if msg == nil {
		return domain.Command{}, false
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return domain.Command{}, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	if name == "" {
		return domain.Command{}, false
	}

	var from string
	if msg.From != nil {
		from = msg.From.Username
		if from == "" {
			from = msg.From.FirstName
		}
	}

	return domain.Command{
		Name:   strings.ToLower(name),
		From:   from,
		ChatID: domain.ChatID(msg.Chat.ID),
	}, true
}

// Package telegram is the chat channel of the sentry: it long-polls the
// Bot API for commands and sends texts and photos to the operator chat.
package telegram

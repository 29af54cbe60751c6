package sms

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/core/ports"
)

// Message is a copy of what a ConsoleSender was asked to deliver.
type Message struct {
	Phone string
	Body  string
}

// ConsoleSender writes outgoing messages to the log instead of a gateway.
type ConsoleSender struct {
	log zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

var _ ports.SMSSender = (*ConsoleSender)(nil)

func NewConsoleSender(log zerolog.Logger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

func (s *ConsoleSender) Send(ctx context.Context, phone, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info().Str("to", phone).Int("chars", len([]rune(body))).Msg(body)

	s.mu.Lock()
	s.sent = append(s.sent, Message{Phone: phone, Body: body})
	s.mu.Unlock()
	return nil
}

// Sent returns everything delivered so far.
func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

// NewSender picks a driver by name. Only "console" exists today.
func NewSender(driver string, log zerolog.Logger) (ports.SMSSender, error) {
	switch driver {
	case "", "console":
		return NewConsoleSender(log), nil
	}
	return nil, fmt.Errorf("sms: unknown sender driver %q", driver)
}

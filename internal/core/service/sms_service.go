package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/core/domain"
	"github.com/mokjang/youth-admin/internal/core/ports"
)

const (
	maxSMSRecipients = 500
	maxSMSBodyRunes  = 2000
)

type SMSService struct {
	log    ports.SMSLogRepository
	sender ports.SMSSender
	logger zerolog.Logger
}

func NewSMSService(log ports.SMSLogRepository, sender ports.SMSSender, logger zerolog.Logger) *SMSService {
	return &SMSService{log: log, sender: sender, logger: logger}
}

// Queue records one queued message per distinct recipient number.
func (s *SMSService) Queue(ctx context.Context, in ports.SendSMSInput) (*ports.SendSMSResult, error) {
	body := strings.TrimSpace(in.Message)
	if body == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if len([]rune(body)) > maxSMSBodyRunes {
		return nil, fmt.Errorf("%w: message is too long", domain.ErrInvalidInput)
	}
	if len(in.Recipients) == 0 || len(in.Recipients) > maxSMSRecipients {
		return nil, fmt.Errorf("%w: between 1 and %d recipients required", domain.ErrInvalidInput, maxSMSRecipients)
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(in.Recipients))
	msgs := make([]*domain.SMSMessage, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		phone := domain.NormalizePhone(r.Phone)
		if phone == "" {
			continue
		}
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		msgs = append(msgs, &domain.SMSMessage{
			ID:        uuid.NewString(),
			BatchID:   batchID,
			Name:      strings.TrimSpace(r.Name),
			Phone:     phone,
			Body:      body,
			Status:    domain.SMSQueued,
			SentBy:    in.SentBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: no recipient has a phone number", domain.ErrInvalidInput)
	}

	if err := s.log.InsertMany(ctx, msgs); err != nil {
		return nil, fmt.Errorf("record sms batch: %w", err)
	}
	s.logger.Info().Str("batch_id", batchID).Int("recipients", len(msgs)).Str("sent_by", in.SentBy).Msg("sms batch queued")
	return &ports.SendSMSResult{BatchID: batchID, Messages: msgs}, nil
}

func (s *SMSService) History(ctx context.Context, limit int) ([]*domain.SMSMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.log.List(ctx, limit)
}

// Deliver hands one message to the gateway and records the outcome.
func (s *SMSService) Deliver(ctx context.Context, msg *domain.SMSMessage) error {
	sendErr := s.sender.Send(ctx, msg.Phone, msg.Body)

	status, errMsg := domain.SMSSent, ""
	if sendErr != nil {
		status, errMsg = domain.SMSFailed, sendErr.Error()
	}
	if err := s.log.UpdateStatus(ctx, msg.ID, status, errMsg); err != nil {
		s.logger.Warn().Err(err).Str("sms_id", msg.ID).Msg("failed to record sms status")
	}
	if sendErr != nil {
		return fmt.Errorf("deliver sms %s: %w", msg.ID, sendErr)
	}
	return nil
}

// Abandon marks a message that never reached a worker as failed.
func (s *SMSService) Abandon(ctx context.Context, msg *domain.SMSMessage, reason string) {
	if err := s.log.UpdateStatus(ctx, msg.ID, domain.SMSFailed, reason); err != nil {
		s.logger.Warn().Err(err).Str("sms_id", msg.ID).Msg("failed to record abandoned sms")
	}
}

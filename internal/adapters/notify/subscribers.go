package notify

import (
	"context"
	"fmt"
	"log/slog"

	"outingrewards/internal/domain"
)

// LogSubscriber records every notification in the structured log.
type LogSubscriber struct {
	logger *slog.Logger
}

func NewLogSubscriber(logger *slog.Logger) *LogSubscriber {
	return &LogSubscriber{logger: logger}
}

func (s *LogSubscriber) Name() string { return "log" }

func (s *LogSubscriber) Handle(ctx context.Context, n *domain.Notification) error {
	s.logger.InfoContext(ctx, "notification",
		"type", n.Type,
		"recipient_id", n.RecipientID,
		"title", n.Title,
		"reference_type", n.ReferenceType,
		"reference_id", n.ReferenceID,
	)
	return nil
}

// MailSubscriber emails the recipient using the notification template.
type MailSubscriber struct {
	users    domain.UserRepository
	renderer domain.EmailTemplateRenderer
	mailer   domain.Mailer
	template string
}

// NewMailSubscriber returns a subscriber that renders templateName for each notification.
func NewMailSubscriber(users domain.UserRepository, renderer domain.EmailTemplateRenderer, mailer domain.Mailer, templateName string) *MailSubscriber {
	return &MailSubscriber{
		users:    users,
		renderer: renderer,
		mailer:   mailer,
		template: templateName,
	}
}

func (s *MailSubscriber) Name() string { return "email" }

func (s *MailSubscriber) Handle(ctx context.Context, n *domain.Notification) error {
	user, err := s.users.GetByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if user.Email == "" {
		return nil
	}
	subject, html, text, err := s.renderer.Render(s.template, domain.NotificationEmailData{
		Email:     user.Email,
		Name:      user.Name,
		Title:     n.Title,
		Message:   n.Message,
		Reference: n.ReferenceID,
	})
	if err != nil {
		return fmt.Errorf("render %s email: %w", n.Type, err)
	}
	if err := s.mailer.Send(ctx, user.Email, subject, html, text); err != nil {
		return fmt.Errorf("send %s email: %w", n.Type, err)
	}
	return nil
}

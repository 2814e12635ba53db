package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/pkg/mailer"
	"github.com/oksasatya/go-user-directory/pkg/mailer/templates"
)

// ErrBadEvent marks a message that can never be processed; consumers drop it
// instead of requeueing.
var ErrBadEvent = errors.New("bad user event")

// UserIndex mirrors users into a search index. *searchindex.UserIndexer satisfies it.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
}

// MailSender delivers rendered emails. *mailer.Mailgun satisfies it.
type MailSender interface {
	SendJob(ctx context.Context, job mailer.EmailJob) error
}

// EventHandler applies user lifecycle events consumed from the queue.
// Index and Mail are optional.
type EventHandler struct {
	Index       UserIndex
	Mail        MailSender
	AppName     string
	CompanyName string
	Logger      *logrus.Logger
}

// Handle decodes one message body and applies it.
func (h *EventHandler) Handle(ctx context.Context, body []byte) error {
	var ev entity.UserEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrBadEvent, err)
	}

	switch ev.Type {
	case entity.EventUserCreated, entity.EventUserUpdated:
		if ev.User == nil {
			return fmt.Errorf("%w: %s without user", ErrBadEvent, ev.Type)
		}
		if h.Index != nil {
			if err := h.Index.Index(ctx, ev.User); err != nil {
				return fmt.Errorf("index user %d: %w", ev.UserID, err)
			}
		}
		if ev.Type == entity.EventUserCreated {
			return h.sendWelcome(ctx, ev.User)
		}
		return nil

	case entity.EventUserDeleted:
		if h.Index != nil {
			if err := h.Index.Delete(ctx, ev.UserID); err != nil {
				return fmt.Errorf("unindex user %d: %w", ev.UserID, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown type %q", ErrBadEvent, ev.Type)
	}
}

func (h *EventHandler) sendWelcome(ctx context.Context, u *entity.User) error {
	if h.Mail == nil || u.Email == "" {
		return nil
	}
	job, err := mailer.NewTemplateJob(u.Email, templates.Welcome, templates.EmailData{
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		BirthDate:   u.BirthDate.String(),
		AppName:     h.AppName,
		CompanyName: h.CompanyName,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: render welcome: %v", ErrBadEvent, err)
	}
	if err := h.Mail.SendJob(ctx, job); err != nil {
		return fmt.Errorf("send welcome to user %d: %w", u.ID, err)
	}
	if h.Logger != nil {
		h.Logger.WithField("user_id", u.ID).Info("welcome email sent")
	}
	return nil
}

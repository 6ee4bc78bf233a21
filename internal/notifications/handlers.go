package notifications

import (
	"context"
	"fmt"

	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/events"
	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/outbox"
)

// WelcomeHandler persists a welcome notification when a user registers.
type WelcomeHandler struct {
	svc  Service
	logg *logger.Logger
}

func NewWelcomeHandler(svc Service, logg *logger.Logger) (*WelcomeHandler, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &WelcomeHandler{svc: svc, logg: logg}, nil
}

func (h *WelcomeHandler) Handle(ctx context.Context, event events.Event) error {
	registered, ok := event.(events.UserRegistered)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unexpected event payload %T", event))
	}

	notification, err := h.svc.Notify(ctx, NotifyParams{
		UserID:  registered.UserID,
		Type:    TypeWelcome,
		Title:   "Welcome aboard",
		Message: "Your account is ready. Start by publishing your first blog.",
	})
	if err != nil {
		return err
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"notification_id": notification.ID.String(),
		"user_id":         registered.UserID.String(),
	})
	h.logg.Info(logCtx, "welcome notification created")
	return nil
}

// BlogPublishedHandler notifies the author when their blog goes live.
type BlogPublishedHandler struct {
	svc  Service
	logg *logger.Logger
}

func NewBlogPublishedHandler(svc Service, logg *logger.Logger) (*BlogPublishedHandler, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &BlogPublishedHandler{svc: svc, logg: logg}, nil
}

func (h *BlogPublishedHandler) Handle(ctx context.Context, event events.Event) error {
	published, ok := event.(events.BlogPublished)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unexpected event payload %T", event))
	}

	notification, err := h.svc.Notify(ctx, NotifyParams{
		UserID:  published.AuthorID,
		Type:    TypeBlogPublished,
		Title:   "Blog published",
		Message: fmt.Sprintf("%q is now live.", published.Title),
	})
	if err != nil {
		return err
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"notification_id": notification.ID.String(),
		"blog_id":         published.BlogID.String(),
	})
	h.logg.Info(logCtx, "blog published notification created")
	return nil
}

// Subscribe attaches the notification handlers to the publisher.
func Subscribe(publisher *outbox.Publisher, svc Service, logg *logger.Logger) error {
	welcome, err := NewWelcomeHandler(svc, logg)
	if err != nil {
		return err
	}
	blogPublished, err := NewBlogPublishedHandler(svc, logg)
	if err != nil {
		return err
	}
	publisher.Subscribe(events.TypeUserRegistered, welcome)
	publisher.Subscribe(events.TypeBlogPublished, blogPublished)
	return nil
}

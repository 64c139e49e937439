package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-sla/internal/api/dto"
	"github.com/spec-kit/support-sla/internal/auth"
	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/service"
	"github.com/spec-kit/support-sla/internal/workinghours"
	apperrors "github.com/spec-kit/support-sla/pkg/util/errorutil"
)

// ConversationWorkflows is the conversation service as seen by HTTP handlers.
type ConversationWorkflows interface {
	HandleMessagePosted(ctx context.Context, msg domain.MessagePosted) (*domain.Conversation, error)
	Close(ctx context.Context, id string, actorID *string) (*domain.Conversation, error)
	Archive(ctx context.Context, id string, actorID *string) (*domain.Conversation, error)
	Snooze(ctx context.Context, id string, until time.Time, actorID *string) (*domain.Conversation, error)
	Wake(ctx context.Context, id string, actorID *string) (*domain.Conversation, error)
	Get(ctx context.Context, id string) (*service.ConversationDetails, error)
	ResponseTime(ctx context.Context, id string, from, to *time.Time) (time.Duration, error)
	RoomCoverage(ctx context.Context, roomID, zoneID string) ([]workinghours.WorkingHours, error)
}

// ConversationsHandler exposes conversation events and agent actions.
type ConversationsHandler struct {
	service ConversationWorkflows
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(svc ConversationWorkflows) *ConversationsHandler {
	return &ConversationsHandler{service: svc}
}

// MessagePosted POST /events/messages.
func (h *ConversationsHandler) MessagePosted(c *fiber.Ctx) error {
	var req dto.MessagePostedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ConversationID == "" || req.RoomID == "" || req.AuthorType == "" {
		return apperrors.NewValidationError("conversation_id, room_id, author_type required", nil)
	}
	msg := domain.MessagePosted{
		ConversationID: req.ConversationID,
		RoomID:         req.RoomID,
		OrganizationID: req.OrganizationID,
		AuthorType:     req.AuthorType,
		AuthorID:       req.AuthorID,
		Hidden:         req.Hidden,
	}
	if req.Timestamp != nil {
		msg.Timestamp = req.Timestamp.UTC()
	}
	conv, err := h.service.HandleMessagePosted(c.UserContext(), msg)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": conversationResponse(conv)})
}

// Close POST /conversations/:id/close.
func (h *ConversationsHandler) Close(c *fiber.Ctx) error {
	return h.act(c, h.service.Close)
}

// Archive POST /conversations/:id/archive.
func (h *ConversationsHandler) Archive(c *fiber.Ctx) error {
	return h.act(c, h.service.Archive)
}

// Wake POST /conversations/:id/wake.
func (h *ConversationsHandler) Wake(c *fiber.Ctx) error {
	return h.act(c, h.service.Wake)
}

// Snooze POST /conversations/:id/snooze.
func (h *ConversationsHandler) Snooze(c *fiber.Ctx) error {
	var req dto.SnoozeRequest
	if err := c.BodyParser(&req); err != nil || req.Until.IsZero() {
		return apperrors.NewValidationError("until required", nil)
	}
	principal, _ := auth.PrincipalFromContext(c)
	conv, err := h.service.Snooze(c.UserContext(), c.Params("id"), req.Until, principal.ActorID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationResponse(conv)})
}

// Get GET /conversations/:id.
func (h *ConversationsHandler) Get(c *fiber.Ctx) error {
	details, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationDetail(details)})
}

// ResponseTime GET /conversations/:id/response-time?from=&to=.
func (h *ConversationsHandler) ResponseTime(c *fiber.Ctx) error {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return err
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return err
	}
	id := c.Params("id")
	elapsed, err := h.service.ResponseTime(c.UserContext(), id, from, to)
	if err != nil {
		return err
	}
	resp := dto.ResponseTimeResponse{ConversationID: id, Seconds: elapsed.Seconds()}
	if from != nil {
		resp.From = *from
	}
	if to != nil {
		resp.To = *to
	}
	return c.JSON(fiber.Map{"data": resp})
}

type conversationAction func(ctx context.Context, id string, actorID *string) (*domain.Conversation, error)

func (h *ConversationsHandler) act(c *fiber.Ctx, action conversationAction) error {
	principal, _ := auth.PrincipalFromContext(c)
	conv, err := action(c.UserContext(), c.Params("id"), principal.ActorID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationResponse(conv)})
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
	}
	t = t.UTC()
	return &t, nil
}

func conversationResponse(conv *domain.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ID:                 conv.ID,
		RoomID:             conv.RoomID,
		OrganizationID:     conv.OrganizationID,
		State:              conv.State,
		CreatedOn:          conv.CreatedOn,
		LastStateChangeOn:  conv.LastStateChangeOn,
		FirstResponseOn:    conv.FirstResponseOn,
		ClosedOn:           conv.ClosedOn,
		ArchivedOn:         conv.ArchivedOn,
		WarningSentOn:      conv.TimeToRespondWarningNotificationSent,
		SnoozedUntil:       conv.SnoozedUntil,
		Version:            conv.Version,
		WaitingForResponse: conv.State.IsWaitingForResponse(),
	}
}

func conversationDetail(details *service.ConversationDetails) dto.ConversationDetailResponse {
	evs := make([]dto.StateChangeResponse, 0, len(details.Events))
	for _, ev := range details.Events {
		evs = append(evs, dto.StateChangeResponse{
			ID:        ev.ID,
			OldState:  ev.OldState,
			NewState:  ev.NewState,
			Implicit:  ev.Implicit,
			ActorID:   ev.ActorID,
			Timestamp: ev.Timestamp,
		})
	}
	obs := make([]dto.ObservationResponse, 0, len(details.Observations))
	for _, o := range details.Observations {
		obs = append(obs, dto.ObservationResponse{Metric: o.Metric, Value: o.Value, Timestamp: o.Timestamp})
	}
	return dto.ConversationDetailResponse{
		ConversationResponse: conversationResponse(details.Conversation),
		Events:               evs,
		Observations:         obs,
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sla/internal/clock"
	"github.com/spec-kit/support-sla/internal/config"
	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/events"
	"github.com/spec-kit/support-sla/internal/repository"
	"github.com/spec-kit/support-sla/internal/responsetime"
	"github.com/spec-kit/support-sla/internal/workinghours"
	"github.com/spec-kit/support-sla/pkg/util/errorutil"
)

// ConversationService applies messages and agent actions to conversations.
type ConversationService struct {
	conversations repository.ConversationRepository
	observations  repository.MetricObservationRepository
	rooms         repository.RoomRepository
	organizations repository.OrganizationRepository
	members       repository.MemberRepository
	scheduler     *NotificationScheduler
	dispatcher    events.Dispatcher
	clock         clock.Clock
	logger        *zap.Logger
	sla           config.SLAConfig
}

// ConversationDependencies bundles collaborators for the conversation service.
type ConversationDependencies struct {
	ConversationRepo repository.ConversationRepository
	ObservationRepo  repository.MetricObservationRepository
	RoomRepo         repository.RoomRepository
	OrganizationRepo repository.OrganizationRepository
	MemberRepo       repository.MemberRepository
	Scheduler        *NotificationScheduler
	Dispatcher       events.Dispatcher
	Clock            clock.Clock
	Logger           *zap.Logger
	SLA              config.SLAConfig
}

// ConversationDetails is a conversation with its timeline and measurements.
type ConversationDetails struct {
	Conversation *domain.Conversation
	Events       []domain.StateChangedEvent
	Observations []domain.MetricObservation
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}
	return &ConversationService{
		conversations: deps.ConversationRepo,
		observations:  deps.ObservationRepo,
		rooms:         deps.RoomRepo,
		organizations: deps.OrganizationRepo,
		members:       deps.MemberRepo,
		scheduler:     deps.Scheduler,
		dispatcher:    deps.Dispatcher,
		clock:         c,
		logger:        logger,
		sla:           deps.SLA,
	}
}

// HandleMessagePosted advances the conversation a message belongs to,
// creating it on the first message of a thread.
func (s *ConversationService) HandleMessagePosted(ctx context.Context, msg domain.MessagePosted) (*domain.Conversation, error) {
	if strings.TrimSpace(msg.ConversationID) == "" || strings.TrimSpace(msg.RoomID) == "" {
		return nil, errorutil.NewValidationError("conversation_id and room_id are required", nil)
	}
	switch msg.AuthorType {
	case domain.AuthorTypeCustomer, domain.AuthorTypeSupport, domain.AuthorTypeSystem:
	default:
		return nil, errorutil.NewValidationError("unknown author type", map[string]any{"author_type": msg.AuthorType})
	}
	ts := msg.Timestamp.UTC()
	if msg.Timestamp.IsZero() {
		ts = s.clock.UTCNow()
	}
	var actor *string
	if msg.AuthorID != "" {
		actor = &msg.AuthorID
	}

	conv, err := s.conversations.GetByID(ctx, msg.ConversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.startConversation(ctx, msg, ts)
	}
	if err != nil {
		return nil, errorutil.MapError(err)
	}

	switch msg.AuthorType {
	case domain.AuthorTypeSupport:
		waitingSince, err := s.waitingSince(ctx, conv)
		if err != nil {
			return nil, errorutil.MapError(err)
		}
		if !conv.SupportResponded(ts, actor) {
			return conv, nil
		}
		var observations []domain.MetricObservation
		elapsed, err := s.businessTime(ctx, conv.RoomID, conv.OrganizationID, waitingSince, ts)
		if err != nil {
			s.logger.Warn("response time not recorded",
				zap.String("conversation_id", conv.ID),
				zap.Error(err))
		} else {
			observations = append(observations, newObservation(conv, domain.MetricResponseTime, elapsed.Seconds(), ts))
		}
		if err := s.persist(ctx, conv, observations); err != nil {
			return nil, err
		}
	case domain.AuthorTypeCustomer:
		if !conv.CustomerResponded(ts, actor) {
			return conv, nil
		}
		if err := s.persist(ctx, conv, nil); err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// waitingSince returns when the customer started waiting. Overdue
// conversations have been waiting since before the deadline passed.
func (s *ConversationService) waitingSince(ctx context.Context, conv *domain.Conversation) (time.Time, error) {
	if conv.State != domain.ConversationStateOverdue {
		return conv.LastStateChangeOn, nil
	}
	evs, err := s.conversations.ListEvents(ctx, conv.ID)
	if err != nil {
		return time.Time{}, err
	}
	return waitStart(conv, evs), nil
}

func waitStart(conv *domain.Conversation, evs []domain.StateChangedEvent) time.Time {
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].NewState == domain.ConversationStateOverdue {
			if evs[i].OldState == domain.ConversationStateNew {
				return conv.CreatedOn
			}
			continue
		}
		if evs[i].NewState == domain.ConversationStateNeedsResponse {
			return evs[i].Timestamp
		}
	}
	return conv.CreatedOn
}

func (s *ConversationService) startConversation(ctx context.Context, msg domain.MessagePosted, ts time.Time) (*domain.Conversation, error) {
	orgID := msg.OrganizationID
	if orgID == "" {
		room, err := s.rooms.GetByID(ctx, msg.RoomID)
		if err != nil {
			return nil, notFound(err, "room", msg.RoomID)
		}
		orgID = room.OrganizationID
	}
	hidden := msg.Hidden || msg.AuthorType != domain.AuthorTypeCustomer
	conv := domain.NewConversation(msg.ConversationID, msg.RoomID, orgID, ts, hidden)
	if err := s.conversations.Create(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrConversationExists) || repository.IsUniqueViolation(err) {
			// Another message started the thread first; the caller retries against it.
			return nil, errorutil.NewConcurrencyConflict("conversation", map[string]any{"id": conv.ID})
		}
		return nil, errorutil.MapError(err)
	}
	s.logger.Info("conversation started",
		zap.String("conversation_id", conv.ID),
		zap.String("room_id", conv.RoomID),
		zap.String("state", conv.State.String()))
	return conv, nil
}

// Close closes an open conversation on behalf of a member.
func (s *ConversationService) Close(ctx context.Context, id string, actorID *string) (*domain.Conversation, error) {
	return s.mutate(ctx, id, func(c *domain.Conversation, now time.Time) error {
		return c.Close(now, actorID)
	})
}

// Archive archives a conversation on behalf of a member.
func (s *ConversationService) Archive(ctx context.Context, id string, actorID *string) (*domain.Conversation, error) {
	return s.mutate(ctx, id, func(c *domain.Conversation, now time.Time) error {
		return c.Archive(now, actorID)
	})
}

// Snooze hides a conversation until the given instant.
func (s *ConversationService) Snooze(ctx context.Context, id string, until time.Time, actorID *string) (*domain.Conversation, error) {
	return s.mutate(ctx, id, func(c *domain.Conversation, now time.Time) error {
		return c.Snooze(now, until.UTC(), actorID)
	})
}

// Wake returns a snoozed conversation to the queue.
func (s *ConversationService) Wake(ctx context.Context, id string, actorID *string) (*domain.Conversation, error) {
	return s.mutate(ctx, id, func(c *domain.Conversation, now time.Time) error {
		return c.Wake(now, actorID)
	})
}

// Get returns the conversation with its state timeline and observations.
func (s *ConversationService) Get(ctx context.Context, id string) (*ConversationDetails, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "conversation", id)
	}
	evs, err := s.conversations.ListEvents(ctx, id)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	obs, err := s.observations.ListByConversation(ctx, id)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return &ConversationDetails{Conversation: conv, Events: evs, Observations: obs}, nil
}

// ResponseTime measures business time for a conversation between from and
// to. from defaults to the creation instant; to defaults to the first
// response, or now when there is none yet.
func (s *ConversationService) ResponseTime(ctx context.Context, id string, from, to *time.Time) (time.Duration, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return 0, notFound(err, "conversation", id)
	}
	start := conv.CreatedOn
	if from != nil {
		start = *from
	}
	end := s.clock.UTCNow()
	switch {
	case to != nil:
		end = *to
	case conv.FirstResponseOn != nil:
		end = *conv.FirstResponseOn
	}
	elapsed, err := s.businessTime(ctx, conv.RoomID, conv.OrganizationID, start, end)
	if err != nil {
		return 0, mapCalculationError(err)
	}
	return elapsed, nil
}

// RoomCoverage returns the room's responder coverage as observed in zoneID.
// An empty zone means UTC.
func (s *ConversationService) RoomCoverage(ctx context.Context, roomID, zoneID string) ([]workinghours.WorkingHours, error) {
	target := time.UTC
	if zoneID != "" {
		target = workinghours.LoadZone(zoneID)
		if target == nil {
			return nil, errorutil.NewValidationError("unknown time zone", map[string]any{"tz": zoneID})
		}
	}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, notFound(err, "room", roomID)
	}
	org, err := s.organizations.GetByID(ctx, room.OrganizationID)
	if err != nil {
		return nil, notFound(err, "organization", room.OrganizationID)
	}
	members, err := s.members.ListByIDs(ctx, firstResponders(room, org))
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	coverage, err := workinghours.CalculateCoverage(domain.Workers(members), target, s.sla.DefaultWorkingHours, s.clock.UTCNow())
	if err != nil {
		return nil, mapCalculationError(err)
	}
	return coverage, nil
}

func (s *ConversationService) mutate(ctx context.Context, id string, apply func(*domain.Conversation, time.Time) error) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "conversation", id)
	}
	if err := apply(conv, s.clock.UTCNow()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, errorutil.NewStateConflict(err, map[string]any{"state": conv.State})
		}
		return nil, errorutil.MapError(err)
	}
	if err := s.persist(ctx, conv, nil); err != nil {
		return nil, err
	}
	return conv, nil
}

// persist saves the conversation, then publishes its transitions and drops
// reminders that no longer apply.
func (s *ConversationService) persist(ctx context.Context, conv *domain.Conversation, observations []domain.MetricObservation) error {
	pending := conv.PendingEvents
	if err := s.conversations.Save(ctx, conv, observations); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return errorutil.NewConcurrencyConflict("conversation", map[string]any{"id": conv.ID})
		}
		return errorutil.MapError(err)
	}

	if cancelsReminders(conv.State) && s.scheduler != nil {
		if err := s.scheduler.Cancel(ctx, conv.ID); err != nil {
			s.logger.Warn("cancel reminders failed", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}
	s.publish(ctx, conv.RoomID, pending, observations)
	return nil
}

func (s *ConversationService) publish(ctx context.Context, roomID string, transitions []domain.StateChangedEvent, observations []domain.MetricObservation) {
	if s.dispatcher == nil {
		return
	}
	for _, ev := range transitions {
		_ = s.dispatcher.Publish(ctx, events.FromStateChange(roomID, ev))
	}
	for _, obs := range observations {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:             obs.ID,
			Type:           events.EventMetricRecorded,
			ConversationID: obs.ConversationID,
			Timestamp:      obs.Timestamp,
			Payload:        events.MetricRecordedPayload{Metric: obs.Metric, Value: obs.Value},
		})
	}
}

// businessTime measures the room responders' working time between two
// instants. A room without responders falls back to the default hours in UTC.
func (s *ConversationService) businessTime(ctx context.Context, roomID, orgID string, start, end time.Time) (time.Duration, error) {
	startUTC, endUTC := start.UTC(), end.UTC()
	members, err := s.responders(ctx, roomID, orgID, domain.NotificationKindWarning)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return responsetime.CalculateForWorkingHours(s.sla.DefaultWorkingHours, time.UTC, startUTC, endUTC)
	}
	return responsetime.CalculateForWorkers(domain.Workers(members), s.sla.DefaultWorkingHours, startUTC, endUTC)
}

// responders loads the members to notify for kind: first responders for
// warnings, escalation responders for overdue conversations.
func (s *ConversationService) responders(ctx context.Context, roomID, orgID string, kind domain.NotificationKind) ([]domain.Member, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if orgID == "" {
		orgID = room.OrganizationID
	}
	org, err := s.organizations.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ids := firstResponders(room, org)
	if kind == domain.NotificationKindOverdue {
		if escalation := escalationResponders(room, org); len(escalation) > 0 {
			ids = escalation
		}
	}
	return s.members.ListByIDs(ctx, ids)
}

// thresholds resolves warning and deadline durations: room override, then
// organization default, then configuration.
func (s *ConversationService) thresholds(ctx context.Context, roomID, orgID string) (domain.ResponseTarget, error) {
	target := domain.ResponseTarget{Warning: s.sla.Warning(), Deadline: s.sla.Deadline()}
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return target, err
	}
	if orgID == "" {
		orgID = room.OrganizationID
	}
	org, err := s.organizations.GetByID(ctx, orgID)
	if err != nil {
		return target, err
	}
	for _, override := range []*domain.ResponseTarget{org.DefaultTimeToRespond, room.TimeToRespond} {
		if override == nil {
			continue
		}
		if override.Warning > 0 {
			target.Warning = override.Warning
		}
		if override.Deadline > 0 {
			target.Deadline = override.Deadline
		}
	}
	return target, nil
}

// cancelsReminders reports states in which queued reminders no longer apply.
func cancelsReminders(state domain.ConversationState) bool {
	return state != domain.ConversationStateNew && state != domain.ConversationStateNeedsResponse
}

func firstResponders(room *domain.Room, org *domain.Organization) []string {
	if len(room.FirstResponderIDs) > 0 {
		return room.FirstResponderIDs
	}
	return org.DefaultFirstResponderIDs
}

func escalationResponders(room *domain.Room, org *domain.Organization) []string {
	if len(room.EscalationResponderIDs) > 0 {
		return room.EscalationResponderIDs
	}
	return org.DefaultEscalationResponderIDs
}

func newObservation(conv *domain.Conversation, metric domain.MetricName, value float64, ts time.Time) domain.MetricObservation {
	return domain.MetricObservation{
		ID:             uuid.NewString(),
		Timestamp:      ts,
		Metric:         metric,
		Value:          value,
		ConversationID: conv.ID,
		RoomID:         conv.RoomID,
		OrganizationID: conv.OrganizationID,
	}
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errorutil.NewNotFound(resource, map[string]any{"id": id})
	}
	return errorutil.MapError(err)
}

func mapCalculationError(err error) error {
	switch {
	case errors.Is(err, responsetime.ErrResponseBeforeStart),
		errors.Is(err, responsetime.ErrOvernightWindow),
		errors.Is(err, workinghours.ErrNotUTC):
		return errorutil.NewInvalidArgument(err, nil)
	case errors.Is(err, pgx.ErrNoRows):
		return errorutil.NewNotFound("room", nil)
	default:
		return errorutil.MapError(err)
	}
}

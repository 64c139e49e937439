package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-sla/internal/clock"
	"github.com/spec-kit/support-sla/internal/config"
	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/events"
	"github.com/spec-kit/support-sla/internal/observability"
	"github.com/spec-kit/support-sla/internal/workinghours"
)

// 2024-01-08 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2024, 1, 8, hour, minute, 0, 0, time.UTC)
}

func hours(t *testing.T, s string) workinghours.WorkingHours {
	t.Helper()
	wh, err := workinghours.Parse(s)
	require.NoError(t, err)
	return wh
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

type harness struct {
	clock     *clock.Fixed
	convs     *fakeConversationRepo
	dir       *fakeDirectory
	pending   *fakePendingRepo
	metrics   *observability.Metrics
	svc       *ConversationService
	sla       *SLAService
	mu        sync.Mutex
	published []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   clock.NewFixed(monday(9, 0)),
		convs:   newFakeConversationRepo(),
		dir:     newFakeDirectory(),
		pending: newFakePendingRepo(),
		metrics: observability.NewMetrics(),
	}
	office := hours(t, "09:00-17:00")
	h.dir.orgs["o1"] = domain.Organization{ID: "o1", Name: "Acme"}
	h.dir.rooms["r1"] = domain.Room{
		ID:                     "r1",
		OrganizationID:         "o1",
		Name:                   "support",
		FirstResponderIDs:      []string{"m1"},
		EscalationResponderIDs: []string{"m2"},
	}
	h.dir.members["m1"] = domain.Member{ID: "m1", OrganizationID: "o1", TimeZoneID: "UTC", Hours: &office, WorkDays: weekdays, Active: true}
	h.dir.members["m2"] = domain.Member{ID: "m2", OrganizationID: "o1", TimeZoneID: "UTC", Hours: &office, WorkDays: weekdays, Active: true}

	sla := config.SLAConfig{
		DefaultWorkingHours: office,
		DefaultWorkDays:     weekdays,
		WarningMinutes:      60,
		DeadlineMinutes:     120,
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	record := func(_ context.Context, ev events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.published = append(h.published, ev)
		return nil
	}
	dispatcher.Subscribe(events.EventConversationStateChanged, record)
	dispatcher.Subscribe(events.EventMetricRecorded, record)
	dispatcher.Subscribe(events.EventNotificationScheduled, record)
	NewAuditService(dispatcher, nil, h.metrics).RegisterHandlers()

	scheduler := NewNotificationScheduler(SchedulerDependencies{
		PendingRepo:     h.pending,
		Clock:           h.clock,
		Metrics:         h.metrics,
		DefaultHours:    office,
		DefaultWorkDays: weekdays,
	})
	h.svc = NewConversationService(ConversationDependencies{
		ConversationRepo: h.convs,
		ObservationRepo:  h.convs,
		RoomRepo:         fakeRoomRepo{h.dir},
		OrganizationRepo: fakeOrganizationRepo{h.dir},
		MemberRepo:       fakeMemberRepo{h.dir},
		Scheduler:        scheduler,
		Dispatcher:       dispatcher,
		Clock:            h.clock,
		SLA:              sla,
	})
	h.sla = NewSLAService(h.svc, 100)
	return h
}

func (h *harness) events(typ events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var result []events.Event
	for _, ev := range h.published {
		if ev.Type == typ {
			result = append(result, ev)
		}
	}
	return result
}

func (h *harness) post(t *testing.T, author domain.MessageAuthorType, authorID string, at time.Time) *domain.Conversation {
	t.Helper()
	conv, err := h.svc.HandleMessagePosted(context.Background(), domain.MessagePosted{
		ConversationID: "c1",
		RoomID:         "r1",
		AuthorType:     author,
		AuthorID:       authorID,
		Timestamp:      at,
	})
	require.NoError(t, err)
	return conv
}

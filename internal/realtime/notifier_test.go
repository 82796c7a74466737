package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioserve/folio-live/internal/domain"
)

type fakeBroadcaster struct {
	calls []broadcastCall
	err   error
	n     int
}

type broadcastCall struct {
	room  string
	event string
	data  interface{}
}

func (f *fakeBroadcaster) Broadcast(room, event string, data interface{}) (int, error) {
	f.calls = append(f.calls, broadcastCall{room: room, event: event, data: data})
	if f.err != nil {
		return 0, f.err
	}
	return f.n, nil
}

func TestNotifier_MutationPayloads(t *testing.T) {
	type skill struct {
		ID string `json:"id"`
	}

	tests := []struct {
		name      string
		emit      func(n *Notifier) int
		wantRoom  string
		wantEvent string
		wantKeys  []string
	}{
		{
			name: "created carries entity and collection",
			emit: func(n *Notifier) int {
				return n.Created(context.Background(), Skills, skill{ID: "s1"}, []skill{{ID: "s1"}})
			},
			wantRoom:  domain.RoomSkills,
			wantEvent: "skill-created",
			wantKeys:  []string{"skill", "skills"},
		},
		{
			name: "updated carries entity and collection",
			emit: func(n *Notifier) int {
				return n.Updated(context.Background(), Projects, skill{ID: "p1"}, []skill{{ID: "p1"}})
			},
			wantRoom:  domain.RoomProjects,
			wantEvent: "project-updated",
			wantKeys:  []string{"project", "projects"},
		},
		{
			name: "deleted carries deletedId and remaining collection",
			emit: func(n *Notifier) int {
				return n.Deleted(context.Background(), Certificates, "c9", []skill{})
			},
			wantRoom:  domain.RoomCertificates,
			wantEvent: "certificate-deleted",
			wantKeys:  []string{"deletedId", "certificates"},
		},
		{
			name: "contact uses message payload keys",
			emit: func(n *Notifier) int {
				return n.Created(context.Background(), Contact, skill{ID: "m1"}, []skill{{ID: "m1"}})
			},
			wantRoom:  domain.RoomContact,
			wantEvent: "contact-created",
			wantKeys:  []string{"message", "messages"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBroadcaster{n: 3}
			n := NewNotifier(fb)

			delivered := tt.emit(n)

			assert.Equal(t, 3, delivered)
			require.Len(t, fb.calls, 1)
			call := fb.calls[0]
			assert.Equal(t, tt.wantRoom, call.room)
			assert.Equal(t, tt.wantEvent, call.event)

			payload, ok := call.data.(map[string]interface{})
			require.True(t, ok)
			for _, key := range tt.wantKeys {
				assert.Contains(t, payload, key)
			}
			assert.Len(t, payload, len(tt.wantKeys))
		})
	}
}

func TestNotifier_DeletedPayloadID(t *testing.T) {
	fb := &fakeBroadcaster{n: 1}
	n := NewNotifier(fb)

	n.Deleted(context.Background(), Projects, "p42", []string{})

	payload := fb.calls[0].data.(map[string]interface{})
	assert.Equal(t, "p42", payload["deletedId"])
}

func TestNotifier_AdminNotify(t *testing.T) {
	fb := &fakeBroadcaster{n: 2}
	n := NewNotifier(fb)

	delivered := n.AdminNotify(context.Background(), "skill", ActionCreated, "skill \"Go\" was created")

	assert.Equal(t, 2, delivered)
	require.Len(t, fb.calls, 1)
	assert.Equal(t, domain.RoomAdmin, fb.calls[0].room)
	assert.Equal(t, "admin-notification", fb.calls[0].event)

	toast, ok := fb.calls[0].data.(domain.AdminNotification)
	require.True(t, ok)
	assert.Equal(t, "skill", toast.Type)
	assert.Equal(t, ActionCreated, toast.Action)
	assert.NotEmpty(t, toast.Message)
}

func TestNotifier_BroadcastErrorSwallowed(t *testing.T) {
	fb := &fakeBroadcaster{err: errors.New("boom")}
	n := NewNotifier(fb)

	assert.NotPanics(t, func() {
		delivered := n.Created(context.Background(), Skills, nil, nil)
		assert.Zero(t, delivered)
	})
}

func TestNotifier_VisitorCount(t *testing.T) {
	fb := &fakeBroadcaster{n: 5}
	n := NewNotifier(fb)

	n.VisitorCount(context.Background(), 7)

	require.Len(t, fb.calls, 1)
	assert.Equal(t, domain.RoomVisitors, fb.calls[0].room)
	assert.Equal(t, "visitors-updated", fb.calls[0].event)
	count, ok := fb.calls[0].data.(domain.VisitorCount)
	require.True(t, ok)
	assert.Equal(t, 7, count.Count)
}

func TestDescribeMutation(t *testing.T) {
	assert.Equal(t, `skill "Go" was created`, DescribeMutation(Skills, ActionCreated, "Go"))
	assert.Equal(t, "a skill was deleted", DescribeMutation(Skills, ActionDeleted, ""))
}

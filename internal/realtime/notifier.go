package realtime

import (
	"context"
	"fmt"

	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/pkg/log"
)

// Broadcaster delivers an event to every member of a room and reports
// how many clients it was queued for. Implemented by hub.Hub; tests
// substitute a fake.
type Broadcaster interface {
	Broadcast(room, event string, data interface{}) (int, error)
}

// Actions attached to mutation events and admin notifications.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Domain names one content domain's room and payload keys. Events are
// named "<prefix>-<action>", e.g. "project-created".
type Domain struct {
	Room     string // room broadcast target
	Prefix   string // event name prefix, singular
	Singular string // payload key for the mutated entity
	Plural   string // payload key for the full collection
}

var (
	Projects      = Domain{Room: domain.RoomProjects, Prefix: "project", Singular: "project", Plural: "projects"}
	Skills        = Domain{Room: domain.RoomSkills, Prefix: "skill", Singular: "skill", Plural: "skills"}
	Certificates  = Domain{Room: domain.RoomCertificates, Prefix: "certificate", Singular: "certificate", Plural: "certificates"}
	Contact       = Domain{Room: domain.RoomContact, Prefix: "contact", Singular: "message", Plural: "messages"}
	About         = Domain{Room: domain.RoomAbout, Prefix: "about", Singular: "about", Plural: "about"}
	Notifications = Domain{Room: domain.RoomAdmin, Prefix: "notification", Singular: "notification", Plural: "notifications"}
)

// Notifier builds mutation event payloads and pushes them through the
// broadcaster. Every payload carries the full, freshly-read collection
// so any subscriber converges after one event; the mutated entity (or
// deleted id) rides along for display purposes. Broadcast failures are
// logged and never propagated: the durable write already succeeded and
// clients reconcile on their next fetch.
type Notifier struct {
	b Broadcaster
}

// NewNotifier wires a notifier to a broadcaster.
func NewNotifier(b Broadcaster) *Notifier {
	return &Notifier{b: b}
}

// Created broadcasts a <prefix>-created event with the mutated entity
// and the full collection. Returns the delivered count.
func (n *Notifier) Created(ctx context.Context, d Domain, item interface{}, collection interface{}) int {
	return n.emit(ctx, d.Room, d.Prefix+"-"+ActionCreated, map[string]interface{}{
		d.Singular: item,
		d.Plural:   collection,
	})
}

// Updated broadcasts a <prefix>-updated event.
func (n *Notifier) Updated(ctx context.Context, d Domain, item interface{}, collection interface{}) int {
	return n.emit(ctx, d.Room, d.Prefix+"-"+ActionUpdated, map[string]interface{}{
		d.Singular: item,
		d.Plural:   collection,
	})
}

// Deleted broadcasts a <prefix>-deleted event carrying the removed id
// and the remaining collection.
func (n *Notifier) Deleted(ctx context.Context, d Domain, deletedID string, collection interface{}) int {
	return n.emit(ctx, d.Room, d.Prefix+"-"+ActionDeleted, map[string]interface{}{
		"deletedId": deletedID,
		d.Plural:   collection,
	})
}

// AdminNotify broadcasts a human-readable toast to the admin room.
func (n *Notifier) AdminNotify(ctx context.Context, typ, action, message string) int {
	return n.emit(ctx, domain.RoomAdmin, "admin-notification", domain.AdminNotification{
		Type:    typ,
		Action:  action,
		Message: message,
	})
}

// VisitorCount broadcasts the live connection count to the visitors room.
func (n *Notifier) VisitorCount(ctx context.Context, count int) int {
	return n.emit(ctx, domain.RoomVisitors, "visitors-updated", domain.VisitorCount{Count: count})
}

func (n *Notifier) emit(ctx context.Context, room, event string, data interface{}) int {
	delivered, err := n.b.Broadcast(room, event, data)
	l := log.Ctx(ctx)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoom, room).Str(log.FieldEvent, event).Msg("broadcast failed")
		return 0
	}
	l.Debug().Str(log.FieldRoom, room).Str(log.FieldEvent, event).Int("delivered", delivered).Msg("event broadcast")
	return delivered
}

// DescribeMutation builds the default admin toast message.
func DescribeMutation(d Domain, action, title string) string {
	if title == "" {
		return fmt.Sprintf("a %s was %s", d.Prefix, action)
	}
	return fmt.Sprintf("%s %q was %s", d.Prefix, title, action)
}

package mapsession

import (
	"time"

	"github.com/terminalworks/kiosk-core/internal/mapengine"
)

// NotificationType identifies a notification on the manager's bus. Map
// events keep the engine's meaning but carry the manager's names; the
// state-change type is the manager's own.
type NotificationType string

// Notification types.
const (
	NoteMovementStarted NotificationType = "map.movement_started"
	NotePOISelected     NotificationType = "map.poi_selected"
	NoteFloorChanged    NotificationType = "map.floor_changed"
	NoteStateChanged    NotificationType = "session.state_changed"
)

// Notification is one event on the manager's bus.
type Notification struct {
	Type    NotificationType `json:"type"`
	POIID   string           `json:"poi_id,omitempty"`
	FloorID string           `json:"floor_id,omitempty"`
	Status  Status           `json:"status,omitempty"`
	At      time.Time        `json:"at"`
}

// Subscribe registers for notifications. Subscriptions outlive instance
// recreation; unsubscribe with the returned function. The channel is
// closed on unsubscribe or manager Close.
func (m *Manager) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, notificationBufferSize)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
		m.subMu.Unlock()
	}
	return ch, cancel
}

// publish fans a notification out to all subscribers. Full subscriber
// buffers drop the notification; the pump never blocks on a consumer.
func (m *Manager) publish(n Notification) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for id, ch := range m.subs {
		select {
		case ch <- n:
		default:
			m.logger.Debug("notification dropped, subscriber buffer full",
				"subscriber", id, "type", n.Type)
		}
	}
}

// notifyStatus publishes a state-change notification.
func (m *Manager) notifyStatus(s Status) {
	m.publish(Notification{Type: NoteStateChanged, Status: s, At: time.Now()})
}

// pump republishes one instance's event stream onto the manager bus. It
// exits when the stream closes or when seq shows the instance has been
// replaced, so events from a dying instance never surface as current.
func (m *Manager) pump(inst mapengine.Instance, seq uint64) {
	for ev := range inst.Events() {
		m.mu.RLock()
		stale := m.initSeq != seq
		m.mu.RUnlock()
		if stale {
			return
		}

		n := Notification{POIID: ev.POIID, FloorID: ev.FloorID, At: ev.At}
		if n.At.IsZero() {
			n.At = time.Now()
		}
		switch ev.Type {
		case mapengine.EventMovementStarted:
			n.Type = NoteMovementStarted
		case mapengine.EventPOISelected:
			n.Type = NotePOISelected
		case mapengine.EventFloorChanged:
			n.Type = NoteFloorChanged
		default:
			m.logger.Debug("unrecognised engine event", "type", ev.Type)
			continue
		}
		m.publish(n)
	}
}

package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

const publishTimeout = 5 * time.Second

// Fanout broadcasts alarm state changes to the room-scoped channel and the
// global caretakers channel. Publishing is fire-and-forget: it runs off the
// request goroutine and a failed delivery never affects the state transition
// that caused it.
type Fanout struct {
	publisher ports.EventPublisher
}

func NewFanout(publisher ports.EventPublisher) *Fanout {
	return &Fanout{publisher: publisher}
}

// AlarmTriggered broadcasts an alarm.triggered event for the snapshot.
func (f *Fanout) AlarmTriggered(snapshot ports.AlarmEventSnapshot) {
	f.broadcast(ports.EventAlarmTriggered, snapshot)
}

// AlarmAcknowledged broadcasts an alarm.acknowledged event for the snapshot.
func (f *Fanout) AlarmAcknowledged(snapshot ports.AlarmEventSnapshot) {
	f.broadcast(ports.EventAlarmAcknowledged, snapshot)
}

func (f *Fanout) broadcast(event string, snapshot ports.AlarmEventSnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("fanout: failed to encode %s for alarm %s: %v", event, snapshot.Alarm.ID, err)
		return
	}

	channels := []string{
		ports.RoomChannel(snapshot.Alarm.RoomID),
		ports.ChannelCaretakers,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		for _, channel := range channels {
			if err := f.publisher.Publish(ctx, channel, event, payload); err != nil {
				log.Printf("fanout: failed to publish %s to %s: %v", event, channel, err)
			}
		}
	}()
}

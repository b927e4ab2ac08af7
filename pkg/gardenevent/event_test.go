package gardenevent

import (
	"testing"

	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/stretchr/testify/assert"
)

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBus(4)
	ch, unsub := b.Subscribe()
	defer unsub()

	ref := schema.ActionRef{Kind: schema.KindBuild, Name: "svc"}
	b.Publish(Event{Kind: TaskStarted, ActionRef: ref})

	ev := <-ch
	assert.Equal(t, TaskStarted, ev.Kind)
	assert.Equal(t, "svc", ev.ActionRef.Name)
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewBus(1)
	_, unsub := b.Subscribe()
	defer unsub()

	b.Publish(Event{Kind: TaskStarted})
	b.Publish(Event{Kind: TaskCompleted}) // buffer full, this one drops

	assert.Equal(t, int64(1), b.DroppedCount())
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBus(1)
	ch, unsub := b.Subscribe()
	unsub()

	_, open := <-ch
	assert.False(t, open)
}

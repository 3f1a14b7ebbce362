package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishInvokesSubscribersInOrder(t *testing.T) {
	b := NewBus()
	var order []int
	b.On(EEventName.Progress(), func(interface{}) { order = append(order, 1) })
	b.On(EEventName.Progress(), func(interface{}) { order = append(order, 2) })

	b.Publish(EEventName.Progress(), nil)

	assert.Equal(t, []int{1, 2}, order)
}

func TestBus_ReentrantPublishIsQueuedNotNested(t *testing.T) {
	b := NewBus()
	var order []string
	b.On(EEventName.End(), func(interface{}) {
		order = append(order, "end-outer")
		b.Publish(EEventName.Error(), nil) // re-entrant: must not run before End's handler returns
	})
	b.On(EEventName.Error(), func(interface{}) {
		order = append(order, "error")
	})

	b.Publish(EEventName.End(), nil)

	assert.Equal(t, []string{"end-outer", "error"}, order)
}

func TestEventName_String(t *testing.T) {
	assert.Equal(t, "QueueDrained", EEventName.QueueDrained().String())
}

package service

import (
	"testing"

	"github.com/junker098/universe-app/internal/model"
	"github.com/stretchr/testify/require"
)

func TestEventBus_OrderAndSeq(t *testing.T) {
	bus := NewEventBus(4)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(model.Event{Kind: model.EventTrashCount, Count: 1})
	bus.Publish(model.Event{Kind: model.EventPhotoReady, PhotoID: "a"})

	first := <-ch
	second := <-ch
	require.Equal(t, uint64(1), first.Seq)
	require.Equal(t, uint64(2), second.Seq)
	require.Equal(t, "a", second.PhotoID)
	require.False(t, first.At.IsZero())
}

func TestEventBus_SlowSubscriberLosesEvents(t *testing.T) {
	bus := NewEventBus(1)
	slow, cancelSlow := bus.Subscribe()
	defer cancelSlow()
	fast, cancelFast := bus.Subscribe()
	defer cancelFast()

	bus.Publish(model.Event{Kind: model.EventTrashCount, Count: 1})
	require.Equal(t, 1, (<-fast).Count)
	bus.Publish(model.Event{Kind: model.EventTrashCount, Count: 2})
	require.Equal(t, 2, (<-fast).Count)

	require.Equal(t, 1, (<-slow).Count)
	require.Len(t, slow, 0)
}

func TestEventBus_CancelAndClose(t *testing.T) {
	bus := NewEventBus(1)
	ch, cancel := bus.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	other, _ := bus.Subscribe()
	bus.Close()
	bus.Close()
	_, ok = <-other
	require.False(t, ok)

	late, _ := bus.Subscribe()
	_, ok = <-late
	require.False(t, ok)

	// публикация после закрытия никому не уходит и не паникует
	bus.Publish(model.Event{Kind: model.EventError})
}

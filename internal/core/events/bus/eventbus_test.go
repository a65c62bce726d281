package bus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got Event
	_, err := b.Subscribe("test.event", func(e Event) error {
		got = e
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("test.event", "tester", 123, map[string]any{"k": "v"})))
	require.NotNil(t, got)
	assert.Equal(t, "tester", got.Source())
	assert.Equal(t, 123, got.Data())
	assert.Equal(t, "v", got.Metadata()["k"])
	assert.False(t, got.Timestamp().IsZero())
}

func TestPublishAsyncReturnsErrorChannel(t *testing.T) {
	b := New()
	handlerErr := errors.New("fail")
	_, err := b.Subscribe("x", func(Event) error { return handlerErr })
	require.NoError(t, err)

	select {
	case e := <-b.PublishAsync(NewEvent("x", "src", nil, nil)):
		assert.ErrorIs(t, e, handlerErr)
	case <-time.After(time.Second):
		t.Fatal("async publish did not complete")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe("x", func(Event) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("x", "", nil, nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Publish(NewEvent("x", "", nil, nil)))

	assert.Equal(t, 1, calls)
	assert.False(t, sub.IsActive())
	assert.Zero(t, b.Metrics().SubscribersActive)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestFiltersAndBatch(t *testing.T) {
	b := New()
	errA := errors.New("a")
	errB := errors.New("b")
	_, err := b.Subscribe("a", func(Event) error { return errA })
	require.NoError(t, err)
	_, err = b.Subscribe("b", func(Event) error { return errB })
	require.NoError(t, err)

	reject := func(Event) bool { return false }
	assert.NoError(t, b.PublishWithFilters(NewEvent("a", "", nil, nil), reject))

	err = b.PublishBatch(NewEvent("a", "", nil, nil), NewEvent("b", "", nil, nil))
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	m := b.Metrics()
	assert.EqualValues(t, 1, m.DroppedByFilters)
	assert.EqualValues(t, 2, m.Published)
	assert.EqualValues(t, 2, m.Errors)
	assert.EqualValues(t, 2, m.SubscribersActive)
}

func TestSubscribeNilHandler(t *testing.T) {
	_, err := New().Subscribe("x", nil)
	assert.Error(t, err)
}

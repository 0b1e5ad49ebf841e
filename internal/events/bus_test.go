package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memStore struct {
	next   int64
	events []Event
}

func (m *memStore) InsertEvent(_ context.Context, ev Event) (Event, error) {
	m.next++
	ev.ID = m.next
	m.events = append(m.events, ev)
	return ev, nil
}

type captureNotifier struct {
	got []Event
	err error
}

func (c *captureNotifier) Notify(_ context.Context, ev Event) error {
	c.got = append(c.got, ev)
	return c.err
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &memStore{}
	n := &captureNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{n}}

	ev, err := bus.Emit(context.Background(), TopicSubmissionAccepted, 41, map[string]any{"session_id": "s1"})
	require.NoError(t, err)
	require.EqualValues(t, 1, ev.ID)
	require.Equal(t, TopicSubmissionAccepted, ev.Topic)
	require.Len(t, store.events, 1)
	require.Len(t, n.got, 1)
	require.JSONEq(t, `{"session_id":"s1"}`, string(n.got[0].Payload))
}

func TestEmitNotifierFailureDoesNotUndoPersist(t *testing.T) {
	store := &memStore{}
	n := &captureNotifier{err: errors.New("smtp down")}
	bus := &Bus{Store: store, Notifiers: []Notifier{n}}

	_, err := bus.Emit(context.Background(), TopicSubmissionFailed, 7, nil)
	require.Error(t, err)
	require.Len(t, store.events, 1, "event stays persisted when a notifier fails")
}

func TestEmitValidatesInput(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	_, err := bus.Emit(context.Background(), " ", 1, nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), TopicSessionStarted, 0, nil)
	require.Error(t, err)
}

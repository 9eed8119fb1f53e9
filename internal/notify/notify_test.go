package notify

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/domain"
)

func TestChannelPublisherFillsIDAndTimestamp(t *testing.T) {
	p := NewChannelPublisher(slog.Default())
	p.Publish(context.Background(), Event{
		Type:    EventListed,
		AssetID: domain.FirstAssetID,
		Actor:   domain.Identity("acct-maker"),
	})

	select {
	case event := <-p.Inbox():
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
		assert.Equal(t, EventListed, event.Type)
	default:
		t.Fatal("expected an event in the inbox")
	}
}

func TestChannelPublisherDropsWhenFull(t *testing.T) {
	p := NewChannelPublisher(slog.Default())
	ctx := context.Background()
	for i := 0; i < defaultBuffer+10; i++ {
		p.Publish(ctx, Event{Type: EventSold, AssetID: domain.FirstAssetID})
	}
	// The buffer holds exactly its capacity; the overflow was dropped, not
	// blocked on.
	assert.Equal(t, defaultBuffer, len(p.Inbox()))
}

func TestWorkerFansOutToSinks(t *testing.T) {
	p := NewChannelPublisher(slog.Default())
	store := NewInMemoryStore()
	worker := NewWorker(p.Inbox(), slog.Default(), NewStoreSink(store))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	p.Publish(ctx, Event{Type: EventServiceRequested, AssetID: domain.FirstAssetID})
	p.Publish(ctx, Event{Type: EventClaimResolved, AssetID: domain.FirstAssetID + 1})

	require.Eventually(t, func() bool {
		recent, err := store.ListRecent(ctx, 0)
		return err == nil && len(recent) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	byAsset, err := store.ListByAsset(ctx, domain.FirstAssetID)
	require.NoError(t, err)
	require.Len(t, byAsset, 1)
	assert.Equal(t, EventServiceRequested, byAsset[0].Type)
}

func TestInMemoryStoreBacklogBounded(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for i := 0; i < defaultBacklog+50; i++ {
		require.NoError(t, store.Append(ctx, Event{ID: "e", Type: EventSold}))
	}
	recent, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, defaultBacklog)
}

func TestListRecentLimit(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, Event{Type: EventListed, AssetID: domain.FirstAssetID + domain.AssetID(i)}))
	}
	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.FirstAssetID+3, recent[0].AssetID)
	assert.Equal(t, domain.FirstAssetID+4, recent[1].AssetID)
}

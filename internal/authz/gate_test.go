package authz

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"steam-shelf/internal/cache"
	"steam-shelf/internal/syncer"
)

const (
	viewerID = "76561198000000001"
	friendID = "76561198000000002"
	otherID  = "76561198000000003"
)

type fakeFriendSource struct {
	friends []string
	err     error
	calls   int
}

func (f *fakeFriendSource) GetFriendList(ctx context.Context, steamID string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.friends, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestGate_SelfIsAlwaysAuthorized(t *testing.T) {
	source := &fakeFriendSource{err: errors.New("must not be called")}
	gate := NewGate(testLogger(), source, cache.NewMemoryCache())

	ok, err := gate.IsAuthorized(context.Background(), viewerID, viewerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected self access to be authorized")
	}
	if source.calls != 0 {
		t.Error("expected no friend list fetch for self access")
	}
}

func TestGate_FriendIsAuthorized(t *testing.T) {
	source := &fakeFriendSource{friends: []string{friendID}}
	gate := NewGate(testLogger(), source, cache.NewMemoryCache())

	ok, err := gate.IsAuthorized(context.Background(), viewerID, friendID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected a friend to be authorized")
	}
}

func TestGate_NonFriendIsDenied(t *testing.T) {
	source := &fakeFriendSource{friends: []string{friendID}}
	gate := NewGate(testLogger(), source, cache.NewMemoryCache())

	ok, err := gate.IsAuthorized(context.Background(), viewerID, otherID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected a non-friend to be denied")
	}
}

func TestGate_FetchFailureWithNoCacheDenies(t *testing.T) {
	source := &fakeFriendSource{err: errors.New("steam down")}
	gate := NewGate(testLogger(), source, cache.NewMemoryCache())

	ok, err := gate.IsAuthorized(context.Background(), viewerID, friendID)
	if err != nil {
		t.Fatalf("expected conservative deny without error, got %v", err)
	}
	if ok {
		t.Error("expected deny when no friend list can be established")
	}
}

func TestGate_FreshCacheSkipsFetch(t *testing.T) {
	source := &fakeFriendSource{friends: []string{friendID}}
	gate := NewGate(testLogger(), source, cache.NewMemoryCache())

	ctx := context.Background()
	if _, err := gate.FriendIDs(ctx, viewerID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := gate.FriendIDs(ctx, viewerID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if source.calls != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", source.calls)
	}
}

func TestGate_ExpiredCacheServedWhenFetchFails(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	mem := cache.NewMemoryCache().WithClock(clock)
	source := &fakeFriendSource{friends: []string{friendID}}
	gate := NewGate(testLogger(), source, mem).WithClock(clock)

	ctx := context.Background()
	if _, err := gate.FriendIDs(ctx, viewerID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// jump past the TTL and break the upstream
	now = now.Add(syncer.FriendListTTL + time.Hour)
	source.err = errors.New("steam down")

	friends, err := gate.FriendIDs(ctx, viewerID, false)
	if err != nil {
		t.Fatalf("expected the expired cached list, got error: %v", err)
	}
	if len(friends) != 1 || friends[0] != friendID {
		t.Errorf("expected the cached friend list, got %v", friends)
	}

	// authorization keeps working through the stale list
	ok, err := gate.IsAuthorized(ctx, viewerID, friendID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected authorization via the stale friend list")
	}
}

func TestGate_RefreshBypassesCache(t *testing.T) {
	source := &fakeFriendSource{friends: []string{friendID}}
	gate := NewGate(testLogger(), source, cache.NewMemoryCache())

	ctx := context.Background()
	if _, err := gate.FriendIDs(ctx, viewerID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	source.friends = []string{friendID, otherID}
	friends, err := gate.FriendIDs(ctx, viewerID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(friends) != 2 {
		t.Errorf("expected the refetched list of 2, got %v", friends)
	}
	if source.calls != 2 {
		t.Errorf("expected 2 upstream fetches, got %d", source.calls)
	}
}

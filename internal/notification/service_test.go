package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/profile"
)

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications map[int64]*Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[int64]*Notification)}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n.ID = f.nextID
	stored := *n
	f.notifications[n.ID] = &stored
	return nil
}

func (f *fakeNotificationRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			stored := *n
			out = append(out, &stored)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeNotificationRepo) CountForUser(ctx context.Context, userID int64) (int, error) {
	listed, _ := f.ListForUser(ctx, userID, 1000, 0)
	return len(listed), nil
}

func (f *fakeNotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, userID, notificationID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[notificationID]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

type fakeActorStore struct {
	summaries map[int64]*profile.Summary
}

func (f *fakeActorStore) GetSummary(ctx context.Context, userID int64) (*profile.Summary, error) {
	s, ok := f.summaries[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return s, nil
}

func (f *fakeActorStore) GetSummaries(ctx context.Context, userIDs []int64) (map[int64]*profile.Summary, error) {
	out := make(map[int64]*profile.Summary)
	for _, id := range userIDs {
		if s, ok := f.summaries[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

// dialHub opens a real websocket connection registered in the hub
func dialHub(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()

	registered := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(userID, conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	<-registered
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) *Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var n Notification
	require.NoError(t, json.Unmarshal(payload, &n))
	return &n
}

func assertNoMessage(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestSelfActionsAreSilent(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.PostLiked(ctx, 1, 1, 10))
	require.NoError(t, svc.PostCommented(ctx, 2, 2, 10, 20))

	total, err := repo.CountForUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, total)
	total, err = repo.CountForUser(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEventsStoreTypedNotifications(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.PostLiked(ctx, 2, 1, 10))
	require.NoError(t, svc.PostShared(ctx, 3, 1, 10))
	require.NoError(t, svc.CommentReplied(ctx, 4, 1, 10, 20))

	listed, total, unread, err := svc.List(ctx, 1, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, unread)
	require.Len(t, listed, 3)

	// Newest first
	assert.Equal(t, TypeReplyComment, listed[0].Type)
	assert.Equal(t, TypeSharePost, listed[1].Type)
	assert.Equal(t, TypeLikePost, listed[2].Type)
}

func TestMarkRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.PostLiked(ctx, 2, 1, 10))

	err := svc.MarkRead(ctx, 1, 999)
	require.Error(t, err)
	assert.Equal(t, "notification_not_found", apperrors.From(err).Reason)

	// Recipients cannot touch each other's notifications
	err = svc.MarkRead(ctx, 2, 1)
	require.Error(t, err)

	require.NoError(t, svc.MarkRead(ctx, 1, 1))

	_, _, unread, err := svc.List(ctx, 1, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMarkAllRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.PostLiked(ctx, 2, 1, 10))
	require.NoError(t, svc.PostLiked(ctx, 3, 1, 11))

	require.NoError(t, svc.MarkAllRead(ctx, 1))

	_, total, unread, err := svc.List(ctx, 1, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Zero(t, unread)
}

func TestListAttachesActors(t *testing.T) {
	repo := newFakeNotificationRepo()
	actors := &fakeActorStore{summaries: map[int64]*profile.Summary{
		2: {ID: 2, DisplayName: "Dele", Slug: "dele"},
	}}
	svc := NewService(repo, actors, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.PostLiked(ctx, 2, 1, 10))

	listed, _, _, err := svc.List(ctx, 1, 20, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Actor)
	assert.Equal(t, "Dele", listed[0].Actor.DisplayName)
}

func TestDeliverBroadcastsWithoutPublisher(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 1)
	svc := NewService(newFakeNotificationRepo(), nil, hub, nil)

	require.NoError(t, svc.PostLiked(context.Background(), 2, 1, 10))

	got := readNotification(t, conn)
	assert.Equal(t, TypeLikePost, got.Type)
	assertNoMessage(t, conn)
}

func TestDeliverPublishesInsteadOfBroadcasting(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 1)
	pub := &fakePublisher{}
	svc := NewService(newFakeNotificationRepo(), nil, hub, pub)

	require.NoError(t, svc.PostLiked(context.Background(), 2, 1, 10))

	// The bus owns delivery: the subscriber loop echoes the publish
	// back into this hub, so a direct broadcast on top of it would
	// reach every local connection twice.
	assert.Equal(t, 1, pub.count())
	assertNoMessage(t, conn)
}

func TestDeliverFallsBackToHubWhenPublishFails(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, 1)
	pub := &fakePublisher{err: errors.New("bus down")}
	svc := NewService(newFakeNotificationRepo(), nil, hub, pub)

	require.NoError(t, svc.PostLiked(context.Background(), 2, 1, 10))

	got := readNotification(t, conn)
	assert.Equal(t, TypeLikePost, got.Type)
	assertNoMessage(t, conn)
}

func TestDeliveryFailureDoesNotFailEvent(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewService(repo, nil, nil, &fakePublisher{err: errors.New("bus down")})
	ctx := context.Background()

	require.NoError(t, svc.PostLiked(ctx, 2, 1, 10))

	total, err := repo.CountForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestHubConnectionBookkeeping(t *testing.T) {
	hub := NewHub()

	hub.Register(1, nil)
	hub.mu.RLock()
	assert.Len(t, hub.conns[1], 1)
	hub.mu.RUnlock()

	hub.Unregister(1, nil)
	hub.mu.RLock()
	assert.Empty(t, hub.conns)
	hub.mu.RUnlock()

	// Unregistering an unknown connection is a no-op
	hub.Unregister(2, nil)
}

// internal/notification/service.go
// Business logic for creating and delivering notifications

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/profile"
)

// ActorStore resolves the acting users shown on notifications
type ActorStore interface {
	GetSummary(ctx context.Context, userID int64) (*profile.Summary, error)
	GetSummaries(ctx context.Context, userIDs []int64) (map[int64]*profile.Summary, error)
}

// Publisher pushes encoded notifications onto the shared fan-out bus
// so every instance's subscriber can deliver them.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher adapts a Redis client to the Publisher interface
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// Service creates notifications for domain events and serves the
// recipient-facing reads. The event methods satisfy the Notifier
// interfaces of the posts and comments packages.
type Service interface {
	PostLiked(ctx context.Context, actorID, postAuthorID, postID int64) error
	PostShared(ctx context.Context, actorID, parentAuthorID, parentID int64) error
	PostCommented(ctx context.Context, actorID, postAuthorID, postID, commentID int64) error
	CommentReplied(ctx context.Context, actorID, parentAuthorID, postID, commentID int64) error
	CommentLiked(ctx context.Context, actorID, commentAuthorID, postID, commentID int64) error

	List(ctx context.Context, userID int64, limit, offset int) ([]*Notification, int, int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type service struct {
	repo      Repository
	actors    ActorStore
	hub       *Hub
	publisher Publisher
}

// NewService creates a notification service. hub and publisher are
// both optional; without them notifications are stored only.
func NewService(repo Repository, actors ActorStore, hub *Hub, publisher Publisher) Service {
	return &service{repo: repo, actors: actors, hub: hub, publisher: publisher}
}

func (s *service) PostLiked(ctx context.Context, actorID, postAuthorID, postID int64) error {
	return s.create(ctx, &Notification{
		UserID:  postAuthorID,
		ActorID: actorID,
		Type:    TypeLikePost,
		PostID:  &postID,
	})
}

func (s *service) PostShared(ctx context.Context, actorID, parentAuthorID, parentID int64) error {
	return s.create(ctx, &Notification{
		UserID:  parentAuthorID,
		ActorID: actorID,
		Type:    TypeSharePost,
		PostID:  &parentID,
	})
}

func (s *service) PostCommented(ctx context.Context, actorID, postAuthorID, postID, commentID int64) error {
	return s.create(ctx, &Notification{
		UserID:    postAuthorID,
		ActorID:   actorID,
		Type:      TypeCommentPost,
		PostID:    &postID,
		CommentID: &commentID,
	})
}

func (s *service) CommentReplied(ctx context.Context, actorID, parentAuthorID, postID, commentID int64) error {
	return s.create(ctx, &Notification{
		UserID:    parentAuthorID,
		ActorID:   actorID,
		Type:      TypeReplyComment,
		PostID:    &postID,
		CommentID: &commentID,
	})
}

func (s *service) CommentLiked(ctx context.Context, actorID, commentAuthorID, postID, commentID int64) error {
	return s.create(ctx, &Notification{
		UserID:    commentAuthorID,
		ActorID:   actorID,
		Type:      TypeLikeComment,
		PostID:    &postID,
		CommentID: &commentID,
	})
}

// create stores the notification and pushes it to live connections.
// Acting on your own content never notifies you.
func (s *service) create(ctx context.Context, n *Notification) error {
	if n.UserID == n.ActorID {
		return nil
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	notificationsCreatedTotal.WithLabelValues(string(n.Type)).Inc()

	if s.actors != nil {
		actor, err := s.actors.GetSummary(ctx, n.ActorID)
		if err != nil {
			log.Printf("failed to resolve notification actor %d: %v", n.ActorID, err)
		} else {
			n.Actor = actor
		}
	}

	s.deliver(ctx, n)
	return nil
}

// deliver pushes a stored notification to live listeners. Delivery is
// best effort: the notification is already persisted.
func (s *service) deliver(ctx context.Context, n *Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		log.Printf("failed to encode notification %d: %v", n.ID, err)
		return
	}

	if s.publisher != nil {
		channel := fmt.Sprintf("notifications:user:%d", n.UserID)
		err := s.publisher.Publish(ctx, channel, payload)
		if err == nil {
			// The subscriber loop feeds published messages back into the
			// local hub, so broadcasting here as well would deliver every
			// notification twice.
			return
		}
		log.Printf("failed to publish notification %d: %v", n.ID, err)
	}

	if s.hub != nil {
		s.hub.Broadcast(n.UserID, payload)
	}
}

func (s *service) List(ctx context.Context, userID int64, limit, offset int) ([]*Notification, int, int, error) {
	notifications, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, 0, apperrors.Internal(err)
	}
	if err := s.attachActors(ctx, notifications); err != nil {
		return nil, 0, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return nil, 0, 0, apperrors.Internal(err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, 0, apperrors.Internal(err)
	}
	return notifications, total, unread, nil
}

// attachActors resolves the acting users of a page in one batch
func (s *service) attachActors(ctx context.Context, notifications []*Notification) error {
	if s.actors == nil || len(notifications) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(notifications))
	seen := make(map[int64]bool, len(notifications))
	for _, n := range notifications {
		if !seen[n.ActorID] {
			seen[n.ActorID] = true
			ids = append(ids, n.ActorID)
		}
	}

	summaries, err := s.actors.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, n := range notifications {
		n.Actor = summaries[n.ActorID]
	}
	return nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	marked, err := s.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !marked {
		return apperrors.NotFound("notification_not_found", "Notification does not exist")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID int64) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

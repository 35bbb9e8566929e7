// internal/comments/service.go
// Business logic for comments, replies and comment likes

package comments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
	"github.com/beegin-app/beegin-backend/internal/posts"
	"github.com/beegin-app/beegin-backend/internal/profile"
)

// PostStore is the slice of the post repository comments need: the
// commented post and its comment counter.
type PostStore interface {
	GetByID(ctx context.Context, id int64) (*posts.Post, error)
	IncrementComments(ctx context.Context, postID int64, delta int) error
}

// Notifier receives comment events. Delivery failures must never fail
// the triggering request.
type Notifier interface {
	PostCommented(ctx context.Context, actorID, postAuthorID, postID, commentID int64) error
	CommentReplied(ctx context.Context, actorID, parentAuthorID, postID, commentID int64) error
	CommentLiked(ctx context.Context, actorID, commentAuthorID, postID, commentID int64) error
}

// Service defines comment business operations
type Service interface {
	CreateComment(ctx context.Context, userID, postID int64, req *CreateCommentRequest) (*Comment, error)
	GetComment(ctx context.Context, commentID, viewerID int64) (*Comment, error)
	UpdateComment(ctx context.Context, userID, commentID int64, req *UpdateCommentRequest) (*Comment, error)
	DeleteComment(ctx context.Context, userID, commentID int64) error

	ListComments(ctx context.Context, postID, viewerID int64, limit, offset int) ([]*Comment, int, error)
	ListReplies(ctx context.Context, commentID, viewerID int64, limit, offset int) ([]*Comment, int, error)

	LikeComment(ctx context.Context, userID, commentID int64) error
	UnlikeComment(ctx context.Context, userID, commentID int64) error
	GetLikers(ctx context.Context, commentID int64, limit, offset int) ([]*profile.Summary, int, error)
}

type service struct {
	repo             Repository
	postStore        PostStore
	notifier         Notifier
	maxCommentLength int
	notifyTimeout    time.Duration
}

// NewService creates a comment service. notifier may be nil.
func NewService(repo Repository, postStore PostStore, notifier Notifier, maxCommentLength int, notifyTimeout time.Duration) Service {
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &service{
		repo:             repo,
		postStore:        postStore,
		notifier:         notifier,
		maxCommentLength: maxCommentLength,
		notifyTimeout:    notifyTimeout,
	}
}

// activePost gates comment operations on the commented post being
// visible: missing and soft-deleted posts both read as 404.
func (s *service) activePost(ctx context.Context, postID int64) (*posts.Post, error) {
	post, err := s.postStore.GetByID(ctx, postID)
	if errors.Is(err, posts.ErrPostNotFound) {
		return nil, apperrors.NotFound("post_not_found", "Post does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !post.IsActive {
		return nil, apperrors.NotFound("post_inactive", "Post has been deleted")
	}
	return post, nil
}

// ownComment loads a comment for update or delete. Existence is
// checked before ownership.
func (s *service) ownComment(ctx context.Context, commentID, userID int64) (*Comment, error) {
	comment, err := s.repo.GetByID(ctx, commentID)
	if errors.Is(err, ErrCommentNotFound) {
		return nil, apperrors.NotFound("comment_not_found", "Comment does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if comment.UserID != userID {
		return nil, apperrors.Forbidden("not_comment_owner", "You can only modify your own comments")
	}
	return comment, nil
}

func (s *service) validateContent(content string) error {
	if content == "" {
		return apperrors.BadRequest("empty_comment", "Comment content is required")
	}
	if len(content) > s.maxCommentLength {
		return apperrors.BadRequest("content_too_long",
			fmt.Sprintf("Content must be at most %d characters", s.maxCommentLength))
	}
	return nil
}

func (s *service) CreateComment(ctx context.Context, userID, postID int64, req *CreateCommentRequest) (*Comment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.validateContent(req.Content); err != nil {
		return nil, err
	}

	post, err := s.activePost(ctx, postID)
	if err != nil {
		return nil, err
	}

	var parent *Comment
	if req.Parent != nil {
		parent, err = s.repo.GetByID(ctx, *req.Parent)
		if errors.Is(err, ErrCommentNotFound) {
			return nil, apperrors.NotFound("comment_not_found", "Parent comment does not exist")
		}
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if parent.PostID != postID {
			return nil, apperrors.BadRequest("invalid_parent", "Parent comment belongs to a different post")
		}
		// One level of nesting only: replying to a reply attaches to
		// the top-level comment.
		if parent.ParentID != nil {
			req.Parent = parent.ParentID
		}
	}

	comment := &Comment{
		PostID:   postID,
		UserID:   userID,
		ParentID: req.Parent,
		Content:  req.Content,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.postStore.IncrementComments(ctx, postID, 1); err != nil {
		return nil, apperrors.Internal(err)
	}

	if parent != nil {
		s.notify(func(ctx context.Context) error {
			return s.notifier.CommentReplied(ctx, userID, parent.UserID, postID, comment.ID)
		})
	} else {
		s.notify(func(ctx context.Context) error {
			return s.notifier.PostCommented(ctx, userID, post.UserID, postID, comment.ID)
		})
	}

	created, err := s.repo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return created, nil
}

func (s *service) GetComment(ctx context.Context, commentID, viewerID int64) (*Comment, error) {
	comment, err := s.repo.GetByID(ctx, commentID)
	if errors.Is(err, ErrCommentNotFound) {
		return nil, apperrors.NotFound("comment_not_found", "Comment does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.attachLikeStatus(ctx, viewerID, []*Comment{comment}); err != nil {
		return nil, apperrors.Internal(err)
	}
	return comment, nil
}

func (s *service) UpdateComment(ctx context.Context, userID, commentID int64, req *UpdateCommentRequest) (*Comment, error) {
	comment, err := s.ownComment(ctx, commentID, userID)
	if err != nil {
		return nil, err
	}

	if req.Content == nil {
		return comment, nil
	}
	if err := s.validateContent(*req.Content); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, commentID, *req.Content); err != nil {
		return nil, apperrors.Internal(err)
	}

	updated, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return updated, nil
}

func (s *service) DeleteComment(ctx context.Context, userID, commentID int64) error {
	comment, err := s.ownComment(ctx, commentID, userID)
	if err != nil {
		return err
	}

	// Replies are removed with the comment, so the post counter drops
	// by the whole subtree.
	replies, err := s.repo.CountReplies(ctx, commentID)
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.Delete(ctx, commentID); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.postStore.IncrementComments(ctx, comment.PostID, -(1 + replies)); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) ListComments(ctx context.Context, postID, viewerID int64, limit, offset int) ([]*Comment, int, error) {
	if _, err := s.activePost(ctx, postID); err != nil {
		return nil, 0, err
	}

	comments, err := s.repo.ListByPost(ctx, postID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountByPost(ctx, postID)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if err := s.attachLikeStatus(ctx, viewerID, comments); err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return comments, total, nil
}

func (s *service) ListReplies(ctx context.Context, commentID, viewerID int64, limit, offset int) ([]*Comment, int, error) {
	if _, err := s.repo.GetByID(ctx, commentID); errors.Is(err, ErrCommentNotFound) {
		return nil, 0, apperrors.NotFound("comment_not_found", "Comment does not exist")
	} else if err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	replies, err := s.repo.ListReplies(ctx, commentID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountReplies(ctx, commentID)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if err := s.attachLikeStatus(ctx, viewerID, replies); err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return replies, total, nil
}

func (s *service) LikeComment(ctx context.Context, userID, commentID int64) error {
	comment, err := s.repo.GetByID(ctx, commentID)
	if errors.Is(err, ErrCommentNotFound) {
		return apperrors.NotFound("comment_not_found", "Comment does not exist")
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	err = s.repo.InsertLike(ctx, commentID, userID)
	if errors.Is(err, ErrAlreadyLiked) {
		return apperrors.BadRequest("already_liked", "You have already liked this comment")
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.IncrementLikes(ctx, commentID, 1); err != nil {
		return apperrors.Internal(err)
	}

	s.notify(func(ctx context.Context) error {
		return s.notifier.CommentLiked(ctx, userID, comment.UserID, comment.PostID, comment.ID)
	})
	return nil
}

func (s *service) UnlikeComment(ctx context.Context, userID, commentID int64) error {
	if _, err := s.repo.GetByID(ctx, commentID); errors.Is(err, ErrCommentNotFound) {
		return apperrors.NotFound("comment_not_found", "Comment does not exist")
	} else if err != nil {
		return apperrors.Internal(err)
	}

	deleted, err := s.repo.DeleteLike(ctx, commentID, userID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !deleted {
		return apperrors.BadRequest("not_liked", "You have not liked this comment")
	}

	if err := s.repo.IncrementLikes(ctx, commentID, -1); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) GetLikers(ctx context.Context, commentID int64, limit, offset int) ([]*profile.Summary, int, error) {
	if _, err := s.repo.GetByID(ctx, commentID); errors.Is(err, ErrCommentNotFound) {
		return nil, 0, apperrors.NotFound("comment_not_found", "Comment does not exist")
	} else if err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	likers, err := s.repo.ListLikers(ctx, commentID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountLikers(ctx, commentID)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return likers, total, nil
}

func (s *service) attachLikeStatus(ctx context.Context, viewerID int64, comments []*Comment) error {
	if viewerID == 0 {
		return nil
	}
	for _, comment := range comments {
		liked, err := s.repo.IsLiked(ctx, comment.ID, viewerID)
		if err != nil {
			return err
		}
		comment.IsLiked = liked
	}
	return nil
}

func (s *service) notify(fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("notification delivery failed: %v", err)
		}
	}()
}

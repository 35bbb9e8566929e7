// internal/posts/service.go
// Business logic for posts, shares, likes and feeds

package posts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"regexp"
	"time"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/query"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
	"github.com/beegin-app/beegin-backend/internal/profile"
)

// enrichConcurrency bounds the per-page like-status fan-out
const enrichConcurrency = 8

// Notifier receives post events. Delivery failures must never fail
// the triggering request.
type Notifier interface {
	PostLiked(ctx context.Context, actorID, postAuthorID, postID int64) error
	PostShared(ctx context.Context, actorID, parentAuthorID, parentID int64) error
}

// Service defines post business operations. viewerID is zero for
// anonymous requests.
type Service interface {
	CreatePost(ctx context.Context, userID int64, req *CreatePostRequest) (*Post, error)
	GetPost(ctx context.Context, postID, viewerID int64) (*Post, error)
	UpdatePost(ctx context.Context, userID, postID int64, req *UpdatePostRequest) (*Post, error)
	DeletePost(ctx context.Context, userID, postID int64) error

	LikePost(ctx context.Context, userID, postID int64) error
	UnlikePost(ctx context.Context, userID, postID int64) error
	IsPostLiked(ctx context.Context, userID, postID int64) (bool, error)
	GetLikers(ctx context.Context, postID int64, opts *query.Options) ([]*profile.Summary, int, error)
	GetSharers(ctx context.Context, postID, viewerID int64, opts *query.Options) ([]*Post, int, error)

	GetUserPosts(ctx context.Context, authorID, viewerID int64, opts *query.Options) ([]*Post, int, error)
	GetUserShares(ctx context.Context, userID, viewerID int64, opts *query.Options) ([]*Post, int, error)
	GetUserLikes(ctx context.Context, userID, viewerID int64, opts *query.Options) ([]*Post, int, error)
	GetRandomPosts(ctx context.Context, viewerID int64, limit int) ([]*Post, error)
	SearchPosts(ctx context.Context, term string, mediaOnly bool, viewerID int64, limit, offset int) ([]*Post, int, error)

	UploadImages(ctx context.Context, headers []*multipart.FileHeader) ([]string, error)
}

type service struct {
	repo          Repository
	notifier      Notifier
	uploader      UploadService
	maxPostLength int
	maxImages     int
	notifyTimeout time.Duration
}

// NewService creates a post service. notifier and uploader may be nil;
// the matching features are then disabled.
func NewService(repo Repository, notifier Notifier, uploader UploadService, maxPostLength, maxImages int, notifyTimeout time.Duration) Service {
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &service{
		repo:          repo,
		notifier:      notifier,
		uploader:      uploader,
		maxPostLength: maxPostLength,
		maxImages:     maxImages,
		notifyTimeout: notifyTimeout,
	}
}

// activePost loads a post that must be visible. A missing row and a
// soft-deleted row both map to 404, with distinct reason codes.
func (s *service) activePost(ctx context.Context, postID int64) (*Post, error) {
	post, err := s.repo.GetByID(ctx, postID)
	if errors.Is(err, ErrPostNotFound) {
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

// mutablePost loads a post for update or delete. Checks run in a fixed
// order: existence, then ownership, then active state.
func (s *service) mutablePost(ctx context.Context, postID, userID int64) (*Post, error) {
	post, err := s.repo.GetByID(ctx, postID)
	if errors.Is(err, ErrPostNotFound) {
		return nil, apperrors.NotFound("post_not_found", "Post does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if post.UserID != userID {
		return nil, apperrors.Forbidden("not_post_owner", "You can only modify your own posts")
	}
	if !post.IsActive {
		return nil, apperrors.NotFound("post_inactive", "Post has been deleted")
	}
	return post, nil
}

func (s *service) validateContent(content string, images []string) error {
	if len(content) > s.maxPostLength {
		return apperrors.BadRequest("content_too_long",
			fmt.Sprintf("Content must be at most %d characters", s.maxPostLength))
	}
	if len(images) > s.maxImages {
		return apperrors.BadRequest("too_many_images",
			fmt.Sprintf("A post can carry at most %d images", s.maxImages))
	}
	return nil
}

func (s *service) CreatePost(ctx context.Context, userID int64, req *CreatePostRequest) (*Post, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.validateContent(req.Content, req.Images); err != nil {
		return nil, err
	}
	if req.Content == "" && len(req.Images) == 0 && req.Parent == nil {
		return nil, apperrors.BadRequest("empty_post", "A post needs content, images or a shared post")
	}

	var parent *Post
	if req.Parent != nil {
		var err error
		parent, err = s.activePost(ctx, *req.Parent)
		if err != nil {
			return nil, err
		}
	}

	images := req.Images
	if images == nil {
		images = []string{}
	}

	post := &Post{
		UserID:   userID,
		Content:  req.Content,
		Images:   pq.StringArray(images),
		ParentID: req.Parent,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, apperrors.Internal(err)
	}

	if parent != nil {
		// The counter is recomputed, not incremented, so it self-heals
		// after out-of-band changes.
		if _, err := s.repo.RecomputeShareCount(ctx, parent.ID); err != nil {
			return nil, apperrors.Internal(err)
		}
		postsSharedTotal.Inc()
		s.notify(func(ctx context.Context) error {
			return s.notifier.PostShared(ctx, userID, parent.UserID, parent.ID)
		})
	} else {
		postsCreatedTotal.Inc()
	}

	created, err := s.repo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, userID, []*Post{created}); err != nil {
		return nil, apperrors.Internal(err)
	}
	return created, nil
}

func (s *service) GetPost(ctx context.Context, postID, viewerID int64) (*Post, error) {
	post, err := s.activePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, viewerID, []*Post{post}); err != nil {
		return nil, apperrors.Internal(err)
	}
	return post, nil
}

func (s *service) UpdatePost(ctx context.Context, userID, postID int64, req *UpdatePostRequest) (*Post, error) {
	if _, err := s.mutablePost(ctx, postID, userID); err != nil {
		return nil, err
	}

	content := ""
	if req.Content != nil {
		content = *req.Content
	}
	images := []string{}
	if req.Images != nil {
		images = *req.Images
	}
	if err := s.validateContent(content, images); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, postID, req); err != nil {
		return nil, apperrors.Internal(err)
	}

	updated, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, userID, []*Post{updated}); err != nil {
		return nil, apperrors.Internal(err)
	}
	return updated, nil
}

func (s *service) DeletePost(ctx context.Context, userID, postID int64) error {
	if _, err := s.mutablePost(ctx, postID, userID); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, postID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) LikePost(ctx context.Context, userID, postID int64) error {
	post, err := s.activePost(ctx, postID)
	if err != nil {
		return err
	}

	err = s.repo.InsertLike(ctx, postID, userID)
	if errors.Is(err, ErrAlreadyLiked) {
		return apperrors.BadRequest("already_liked", "You have already liked this post")
	}
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.repo.IncrementLikes(ctx, postID, 1); err != nil {
		return apperrors.Internal(err)
	}
	postLikesTotal.WithLabelValues("like").Inc()

	s.notify(func(ctx context.Context) error {
		return s.notifier.PostLiked(ctx, userID, post.UserID, post.ID)
	})
	return nil
}

func (s *service) UnlikePost(ctx context.Context, userID, postID int64) error {
	if _, err := s.activePost(ctx, postID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteLike(ctx, postID, userID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !deleted {
		return apperrors.BadRequest("not_liked", "You have not liked this post")
	}

	if err := s.repo.IncrementLikes(ctx, postID, -1); err != nil {
		return apperrors.Internal(err)
	}
	postLikesTotal.WithLabelValues("unlike").Inc()
	return nil
}

func (s *service) IsPostLiked(ctx context.Context, userID, postID int64) (bool, error) {
	if _, err := s.activePost(ctx, postID); err != nil {
		return false, err
	}

	liked, err := s.repo.IsLiked(ctx, postID, userID)
	if err != nil {
		return false, apperrors.Internal(err)
	}
	return liked, nil
}

func (s *service) GetLikers(ctx context.Context, postID int64, opts *query.Options) ([]*profile.Summary, int, error) {
	if _, err := s.activePost(ctx, postID); err != nil {
		return nil, 0, err
	}

	likers, err := s.repo.ListLikers(ctx, postID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountLikers(ctx, postID)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return likers, total, nil
}

// GetSharers lists the share posts of a post. The stored counter is
// refreshed first so the response never disagrees with itself.
func (s *service) GetSharers(ctx context.Context, postID, viewerID int64, opts *query.Options) ([]*Post, int, error) {
	if _, err := s.activePost(ctx, postID); err != nil {
		return nil, 0, err
	}

	if _, err := s.repo.RecomputeShareCount(ctx, postID); err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	shares, err := s.repo.ListShares(ctx, postID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountShares(ctx, postID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, viewerID, shares); err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return shares, total, nil
}

func (s *service) GetUserPosts(ctx context.Context, authorID, viewerID int64, opts *query.Options) ([]*Post, int, error) {
	feedRequestsTotal.Inc()

	posts, err := s.repo.ListByAuthor(ctx, authorID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountByAuthor(ctx, authorID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, viewerID, posts); err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return posts, total, nil
}

func (s *service) GetUserShares(ctx context.Context, userID, viewerID int64, opts *query.Options) ([]*Post, int, error) {
	feedRequestsTotal.Inc()

	shares, err := s.repo.ListSharedBy(ctx, userID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountSharedBy(ctx, userID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, viewerID, shares); err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return shares, total, nil
}

func (s *service) GetUserLikes(ctx context.Context, userID, viewerID int64, opts *query.Options) ([]*Post, int, error) {
	feedRequestsTotal.Inc()

	liked, err := s.repo.ListLikedBy(ctx, userID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountLikedBy(ctx, userID, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, viewerID, liked); err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return liked, total, nil
}

func (s *service) GetRandomPosts(ctx context.Context, viewerID int64, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > query.MaxLimit {
		limit = query.MaxLimit
	}

	posts, err := s.repo.Random(ctx, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, viewerID, posts); err != nil {
		return nil, apperrors.Internal(err)
	}
	return posts, nil
}

func (s *service) SearchPosts(ctx context.Context, term string, mediaOnly bool, viewerID int64, limit, offset int) ([]*Post, int, error) {
	if term == "" {
		return nil, 0, apperrors.BadRequest("empty_search", "Search term is required")
	}

	// Whole-word match, term treated literally
	pattern := `\m` + regexp.QuoteMeta(term) + `\M`

	posts, err := s.repo.Search(ctx, pattern, mediaOnly, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	total, err := s.repo.CountSearch(ctx, pattern, mediaOnly)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	if err := s.enrich(ctx, viewerID, posts); err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return posts, total, nil
}

func (s *service) UploadImages(ctx context.Context, headers []*multipart.FileHeader) ([]string, error) {
	if s.uploader == nil {
		return nil, apperrors.BadRequest("uploads_disabled", "Image uploads are not available")
	}
	if len(headers) > s.maxImages {
		return nil, apperrors.BadRequest("too_many_images",
			fmt.Sprintf("A post can carry at most %d images", s.maxImages))
	}

	urls := make([]string, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, apperrors.Internal(fmt.Errorf("failed to open upload: %w", err))
		}

		url, err := s.uploader.UploadImage(ctx, file, header)
		file.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// enrich attaches parent summaries and the viewer's like status to a
// page of posts. Posts are modified in place so ordering is preserved.
func (s *service) enrich(ctx context.Context, viewerID int64, posts []*Post) error {
	if err := s.attachParents(ctx, posts); err != nil {
		return err
	}
	return s.attachLikeStatus(ctx, viewerID, posts)
}

func (s *service) attachParents(ctx context.Context, posts []*Post) error {
	for _, post := range posts {
		if post.ParentID == nil {
			continue
		}
		parent, err := s.repo.ParentSummary(ctx, *post.ParentID)
		if errors.Is(err, ErrPostNotFound) {
			// Parent row is gone entirely; the share renders without it
			continue
		}
		if err != nil {
			return err
		}
		post.Parent = parent
	}
	return nil
}

func (s *service) attachLikeStatus(ctx context.Context, viewerID int64, posts []*Post) error {
	if viewerID == 0 {
		// Anonymous viewers see isLiked false everywhere
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for _, post := range posts {
		post := post
		g.Go(func() error {
			liked, err := s.repo.IsLiked(gctx, post.ID, viewerID)
			if err != nil {
				return err
			}
			post.IsLiked = liked
			return nil
		})
	}
	return g.Wait()
}

// notify runs a notification delivery off the request path. Failures
// are logged and dropped; the triggering write has already succeeded.
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

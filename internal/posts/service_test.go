package posts

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/query"
	"github.com/beegin-app/beegin-backend/internal/profile"
)

// fakeRepo is an in-memory Repository for service tests
type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*Post
	likes  map[int64]map[int64]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		posts: make(map[int64]*Post),
		likes: make(map[int64]map[int64]bool),
	}
}

func (f *fakeRepo) Create(ctx context.Context, post *Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	post.ID = f.nextID
	post.IsActive = true
	post.CreatedAt = time.Now()
	stored := *post
	f.posts[post.ID] = &stored
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	post := *stored
	post.Author = &profile.Summary{ID: stored.UserID}
	return &post, nil
}

func (f *fakeRepo) ParentSummary(ctx context.Context, id int64) (*ParentPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return &ParentPost{
		ID:        stored.ID,
		UserID:    stored.UserID,
		Content:   stored.Content,
		Images:    stored.Images,
		IsActive:  stored.IsActive,
		CreatedAt: stored.CreatedAt,
		Author:    &profile.Summary{ID: stored.UserID},
	}, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, req *UpdatePostRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.posts[id]
	if req.Content != nil {
		stored.Content = *req.Content
	}
	if req.Images != nil {
		stored.Images = pq.StringArray(*req.Images)
	}
	return nil
}

func (f *fakeRepo) SoftDelete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[id].IsActive = false
	return nil
}

func (f *fakeRepo) children(parentID int64) []*Post {
	var out []*Post
	for _, p := range f.posts {
		if p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeRepo) ListByAuthor(ctx context.Context, authorID int64, opts *query.Options) ([]*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Post
	for _, p := range f.posts {
		if p.UserID == authorID && p.IsActive {
			post := *p
			post.Author = &profile.Summary{ID: p.UserID}
			out = append(out, &post)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) CountByAuthor(ctx context.Context, authorID int64, opts *query.Options) (int, error) {
	posts, _ := f.ListByAuthor(ctx, authorID, opts)
	return len(posts), nil
}

func (f *fakeRepo) ListSharedBy(ctx context.Context, userID int64, opts *query.Options) ([]*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Post
	for _, p := range f.posts {
		if p.UserID == userID && p.ParentID != nil && p.IsActive {
			post := *p
			out = append(out, &post)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountSharedBy(ctx context.Context, userID int64, opts *query.Options) (int, error) {
	shares, _ := f.ListSharedBy(ctx, userID, opts)
	return len(shares), nil
}

func (f *fakeRepo) ListLikedBy(ctx context.Context, userID int64, opts *query.Options) ([]*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Post
	for postID, likers := range f.likes {
		if likers[userID] {
			if p, ok := f.posts[postID]; ok && p.IsActive {
				post := *p
				out = append(out, &post)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) CountLikedBy(ctx context.Context, userID int64, opts *query.Options) (int, error) {
	liked, _ := f.ListLikedBy(ctx, userID, opts)
	return len(liked), nil
}

func (f *fakeRepo) ListShares(ctx context.Context, parentID int64, opts *query.Options) ([]*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Post
	for _, p := range f.children(parentID) {
		if p.IsActive {
			post := *p
			out = append(out, &post)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountShares(ctx context.Context, parentID int64, opts *query.Options) (int, error) {
	shares, _ := f.ListShares(ctx, parentID, opts)
	return len(shares), nil
}

func (f *fakeRepo) Random(ctx context.Context, limit int) ([]*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Post
	for _, p := range f.posts {
		if p.IsActive && len(out) < limit {
			post := *p
			out = append(out, &post)
		}
	}
	return out, nil
}

func (f *fakeRepo) Search(ctx context.Context, pattern string, mediaOnly bool, limit, offset int) ([]*Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	term := strings.TrimSuffix(strings.TrimPrefix(pattern, `\m`), `\M`)
	var out []*Post
	for _, p := range f.posts {
		if !p.IsActive || !strings.Contains(p.Content, term) {
			continue
		}
		if mediaOnly && len(p.Images) == 0 {
			continue
		}
		post := *p
		out = append(out, &post)
	}
	return out, nil
}

func (f *fakeRepo) CountSearch(ctx context.Context, pattern string, mediaOnly bool) (int, error) {
	found, _ := f.Search(ctx, pattern, mediaOnly, 1000, 0)
	return len(found), nil
}

func (f *fakeRepo) InsertLike(ctx context.Context, postID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likes[postID] == nil {
		f.likes[postID] = make(map[int64]bool)
	}
	if f.likes[postID][userID] {
		return ErrAlreadyLiked
	}
	f.likes[postID][userID] = true
	return nil
}

func (f *fakeRepo) DeleteLike(ctx context.Context, postID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.likes[postID][userID] {
		return false, nil
	}
	delete(f.likes[postID], userID)
	return true, nil
}

func (f *fakeRepo) IsLiked(ctx context.Context, postID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.likes[postID][userID], nil
}

func (f *fakeRepo) ListLikers(ctx context.Context, postID int64, opts *query.Options) ([]*profile.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*profile.Summary
	for userID := range f.likes[postID] {
		out = append(out, &profile.Summary{ID: userID})
	}
	return out, nil
}

func (f *fakeRepo) CountLikers(ctx context.Context, postID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.likes[postID]), nil
}

func (f *fakeRepo) IncrementLikes(ctx context.Context, postID int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[postID].NumLikes += delta
	return nil
}

func (f *fakeRepo) IncrementComments(ctx context.Context, postID int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[postID].NumComments += delta
	return nil
}

func (f *fakeRepo) RecomputeShareCount(ctx context.Context, parentID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[parentID]
	if !ok {
		return 0, ErrPostNotFound
	}
	stored.NumShares = len(f.children(parentID))
	return stored.NumShares, nil
}

func newTestService(repo Repository) Service {
	return NewService(repo, nil, nil, 8192, 4, time.Second)
}

func reason(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.From(err).Reason
}

func TestCreatePostValidation(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, 1, &CreatePostRequest{})
	assert.Equal(t, "empty_post", reason(t, err))

	_, err = svc.CreatePost(ctx, 1, &CreatePostRequest{Content: strings.Repeat("a", 9000)})
	assert.Equal(t, "content_too_long", reason(t, err))

	images := []string{
		"https://cdn.example.com/1.png", "https://cdn.example.com/2.png",
		"https://cdn.example.com/3.png", "https://cdn.example.com/4.png",
		"https://cdn.example.com/5.png",
	}
	_, err = svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "hi", Images: images})
	assert.Equal(t, "too_many_images", reason(t, err))
}

func TestShareRecomputesParentCounter(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	parent, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "original"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.CreatePost(ctx, 2, &CreatePostRequest{Content: "look", Parent: &parent.ID})
		require.NoError(t, err)
	}

	refreshed, err := svc.GetPost(ctx, parent.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed.NumShares)
}

func TestShareOfMissingOrInactiveParent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	missing := int64(999)
	_, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "x", Parent: &missing})
	assert.Equal(t, "post_not_found", reason(t, err))

	parent, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "soon gone"})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePost(ctx, 1, parent.ID))

	_, err = svc.CreatePost(ctx, 2, &CreatePostRequest{Content: "x", Parent: &parent.ID})
	assert.Equal(t, "post_inactive", reason(t, err))
}

func TestUpdatePermissionOrdering(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	content := "edited"

	_, err := svc.UpdatePost(ctx, 1, 999, &UpdatePostRequest{Content: &content})
	assert.Equal(t, "post_not_found", reason(t, err))

	post, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "mine"})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePost(ctx, 1, post.ID))

	// Ownership is checked before the active state, so a stranger
	// poking at a deleted post still gets 403.
	_, err = svc.UpdatePost(ctx, 2, post.ID, &UpdatePostRequest{Content: &content})
	assert.Equal(t, "not_post_owner", reason(t, err))

	_, err = svc.UpdatePost(ctx, 1, post.ID, &UpdatePostRequest{Content: &content})
	assert.Equal(t, "post_inactive", reason(t, err))
}

func TestLikeUnlikeFlow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "like me"})
	require.NoError(t, err)

	require.NoError(t, svc.LikePost(ctx, 2, post.ID))

	liked, err := svc.GetPost(ctx, post.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.NumLikes)
	assert.True(t, liked.IsLiked)

	err = svc.LikePost(ctx, 2, post.ID)
	assert.Equal(t, "already_liked", reason(t, err))

	require.NoError(t, svc.UnlikePost(ctx, 2, post.ID))

	err = svc.UnlikePost(ctx, 2, post.ID)
	assert.Equal(t, "not_liked", reason(t, err))

	unliked, err := svc.GetPost(ctx, post.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.NumLikes)
	assert.False(t, unliked.IsLiked)
}

func TestAnonymousViewerSeesNoLikeStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "popular"})
	require.NoError(t, err)
	require.NoError(t, svc.LikePost(ctx, 2, post.ID))

	anon, err := svc.GetPost(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.False(t, anon.IsLiked)
	assert.Equal(t, 1, anon.NumLikes)
}

func TestShareKeepsDeletedParentVisible(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	parent, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "short-lived"})
	require.NoError(t, err)
	share, err := svc.CreatePost(ctx, 2, &CreatePostRequest{Content: "saving this", Parent: &parent.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, 1, parent.ID))

	got, err := svc.GetPost(ctx, share.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, got.Parent)
	assert.Equal(t, parent.ID, got.Parent.ID)
	assert.False(t, got.Parent.IsActive)
}

func TestGetSharersRefreshesCounter(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	parent, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "root"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, 2, &CreatePostRequest{Content: "", Parent: &parent.ID})
	require.NoError(t, err)

	opts := query.Parse(url.Values{})
	shares, total, err := svc.GetSharers(ctx, parent.ID, 0, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, shares, 1)
	require.NotNil(t, shares[0].Parent)
	assert.Equal(t, parent.ID, shares[0].Parent.ID)
}

func TestDeletedPostReads(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "bye"})
	require.NoError(t, err)
	require.NoError(t, svc.DeletePost(ctx, 1, post.ID))

	_, err = svc.GetPost(ctx, post.ID, 1)
	assert.Equal(t, "post_inactive", reason(t, err))

	err = svc.LikePost(ctx, 2, post.ID)
	assert.Equal(t, "post_inactive", reason(t, err))
}

func TestSearchRequiresTerm(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, _, err := svc.SearchPosts(context.Background(), "", false, 0, 20, 0)
	assert.Equal(t, "empty_search", reason(t, err))
}

func TestSearchMediaFilter(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, 1, &CreatePostRequest{Content: "sunset words only"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, 1, &CreatePostRequest{
		Content: "sunset photo",
		Images:  []string{"https://cdn.example.com/sunset.png"},
	})
	require.NoError(t, err)

	all, total, err := svc.SearchPosts(ctx, "sunset", false, 0, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	media, total, err := svc.SearchPosts(ctx, "sunset", true, 0, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, media, 1)
	assert.NotEmpty(t, media[0].Images)
}

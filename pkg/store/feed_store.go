package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"nemsutalks/internal/util"
	"nemsutalks/pkg/domain"
	"nemsutalks/pkg/sentiment"
)

// Display fields stamped on composed posts and fresh comments.
const (
	AnonymousAuthor = "Anonymous Student"
	ComposerAvatar  = "YU"
	JustNow         = "Just now"
)

type feedState struct {
	Sentiments []domain.UserSentiment `json:"sentiments"`
}

// FeedStore holds the social feed, most recent first.
// For every post Likes equals len(LikedBy); both change together.
type FeedStore struct {
	mu       sync.RWMutex
	state    feedState
	now      func() time.Time
	snapshot *snapshotter
}

func NewFeedStore(opts ...Option) *FeedStore {
	o := buildOptions(opts)
	return &FeedStore{
		state:    feedState{Sentiments: []domain.UserSentiment{}},
		now:      o.now,
		snapshot: newSnapshotter(FeedSnapshot, o.backend),
	}
}

// Restore replaces the feed with the persisted snapshot, if any. Like
// counts are recomputed from the liker sets.
func (s *FeedStore) Restore(ctx context.Context) error {
	var st feedState
	ok, err := s.snapshot.load(ctx, &st)
	if err != nil || !ok {
		return err
	}
	if st.Sentiments == nil {
		st.Sentiments = []domain.UserSentiment{}
	}
	for i := range st.Sentiments {
		normalisePost(&st.Sentiments[i])
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

func (s *FeedStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.write(ctx, s.state)
}

// Seed prepends pre-built posts. It does not persist; the next mutation does.
func (s *FeedStore) Seed(posts []domain.UserSentiment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seeded := make([]domain.UserSentiment, len(posts))
	for i, p := range posts {
		seeded[i] = clonePost(p)
		normalisePost(&seeded[i])
	}
	s.state.Sentiments = append(seeded, s.state.Sentiments...)
}

// Compose classifies content, prepends a new anonymous post and returns it.
func (s *FeedStore) Compose(content string, category domain.Category) domain.UserSentiment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxID int64
	for _, p := range s.state.Sentiments {
		maxID = max(maxID, p.ID)
	}
	post := domain.UserSentiment{
		ID:        maxID + 1,
		Avatar:    ComposerAvatar,
		Author:    AnonymousAuthor,
		Content:   content,
		Timestamp: JustNow,
		Sentiment: sentiment.Classify(content),
		Category:  category,
		LikedBy:   []string{},
		Comments:  []domain.Comment{},
		CreatedAt: s.now().UnixMilli(),
	}
	s.state.Sentiments = append([]domain.UserSentiment{post}, s.state.Sentiments...)
	s.snapshot.save(s.state)
	return clonePost(post)
}

// ToggleLike adds userID to the post's likers or removes it. The second
// result is false when the post does not exist.
func (s *FeedStore) ToggleLike(postID int64, userID string) (domain.UserSentiment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(postID)
	if p == nil {
		return domain.UserSentiment{}, false
	}
	if i := slices.Index(p.LikedBy, userID); i >= 0 {
		p.LikedBy = slices.Delete(p.LikedBy, i, i+1)
	} else {
		p.LikedBy = append(p.LikedBy, userID)
	}
	p.Likes = len(p.LikedBy)
	s.snapshot.save(s.state)
	return clonePost(*p), true
}

func (s *FeedStore) IsLiked(postID int64, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findLocked(postID)
	return p != nil && slices.Contains(p.LikedBy, userID)
}

// AddComment appends a comment to the post. Unknown posts report false.
func (s *FeedStore) AddComment(postID int64, author domain.Author, content string) (domain.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(postID)
	if p == nil {
		return domain.Comment{}, false
	}
	c := domain.Comment{
		ID:        util.NewPrefixedID("c"),
		AuthorID:  author.ID,
		Author:    author.Name,
		Avatar:    author.Avatar,
		Content:   content,
		Timestamp: JustNow,
		CreatedAt: s.now().UnixMilli(),
	}
	p.Comments = append(p.Comments, c)
	s.snapshot.save(s.state)
	return c, true
}

// DeleteComment removes a comment on behalf of actorID, who must be its
// author. An empty actorID is the administrator and may delete any comment.
func (s *FeedStore) DeleteComment(postID int64, commentID, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(postID)
	if p == nil {
		return ErrNotFound
	}
	i := slices.IndexFunc(p.Comments, func(c domain.Comment) bool { return c.ID == commentID })
	if i < 0 {
		return ErrNotFound
	}
	if actorID != "" && p.Comments[i].AuthorID != actorID {
		return ErrNotCommentAuthor
	}
	p.Comments = slices.Delete(p.Comments, i, i+1)
	s.snapshot.save(s.state)
	return nil
}

func (s *FeedStore) Get(postID int64) (domain.UserSentiment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.findLocked(postID)
	if p == nil {
		return domain.UserSentiment{}, false
	}
	return clonePost(*p), true
}

func (s *FeedStore) List() []domain.UserSentiment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserSentiment, len(s.state.Sentiments))
	for i, p := range s.state.Sentiments {
		out[i] = clonePost(p)
	}
	return out
}

func (s *FeedStore) findLocked(postID int64) *domain.UserSentiment {
	for i := range s.state.Sentiments {
		if s.state.Sentiments[i].ID == postID {
			return &s.state.Sentiments[i]
		}
	}
	return nil
}

// clonePost copies the slices so callers never alias store state.
func clonePost(p domain.UserSentiment) domain.UserSentiment {
	p.LikedBy = append([]string{}, p.LikedBy...)
	p.Comments = append([]domain.Comment{}, p.Comments...)
	return p
}

func normalisePost(p *domain.UserSentiment) {
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	if p.Comments == nil {
		p.Comments = []domain.Comment{}
	}
	p.Likes = len(p.LikedBy)
}

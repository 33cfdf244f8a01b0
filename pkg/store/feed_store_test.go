package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"nemsutalks/pkg/domain"
	"nemsutalks/pkg/storage"
)

func checkLikeCounts(t *testing.T, s *FeedStore) {
	t.Helper()
	for _, p := range s.List() {
		if p.Likes != len(p.LikedBy) {
			t.Fatalf("post %d: likes=%d likedBy=%d", p.ID, p.Likes, len(p.LikedBy))
		}
	}
}

func TestToggleLikeKeepsCountInLockstep(t *testing.T) {
	s := NewFeedStore(WithClock(fixedClock))
	s.Seed(SeedFeed(fixedNow))
	checkLikeCounts(t, s)

	users := []string{"u1", "u2", "u1", "u3", "u2", "u2"}
	for _, u := range users {
		if _, ok := s.ToggleLike(1, u); !ok {
			t.Fatalf("toggle on existing post failed")
		}
		checkLikeCounts(t, s)
	}
	p, _ := s.Get(1)
	// u1 twice (off), u2 three times (on), u3 once (on).
	if p.Likes != 24+2 {
		t.Fatalf("expected 26 likes, got %d", p.Likes)
	}
	if s.IsLiked(1, "u1") || !s.IsLiked(1, "u2") || !s.IsLiked(1, "u3") {
		t.Fatalf("unexpected membership: %v", p.LikedBy)
	}
}

func TestToggleLikeIsInvolution(t *testing.T) {
	s := NewFeedStore()
	s.Seed(SeedFeed(fixedNow))
	before, _ := s.Get(3)

	s.ToggleLike(3, "student-9")
	s.ToggleLike(3, "student-9")

	after, _ := s.Get(3)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("double toggle changed post:\nbefore=%+v\nafter=%+v", before, after)
	}
	if _, ok := s.ToggleLike(404, "student-9"); ok {
		t.Fatalf("unknown post must report false")
	}
}

func TestComposeClassifiesAndPrepends(t *testing.T) {
	s := NewFeedStore(WithClock(fixedClock))
	s.Seed(SeedFeed(fixedNow))

	post := s.Compose("The aircon is broken and the room is terrible", domain.CategoryFacilities)
	if post.ID != 7 {
		t.Fatalf("expected id 7, got %d", post.ID)
	}
	if post.Sentiment != domain.PolarityNegative {
		t.Fatalf("expected Negative, got %s", post.Sentiment)
	}
	if post.Author != AnonymousAuthor || post.Avatar != ComposerAvatar || post.Timestamp != JustNow {
		t.Fatalf("unexpected display fields: %+v", post)
	}
	if post.Likes != 0 || len(post.LikedBy) != 0 || len(post.Comments) != 0 {
		t.Fatalf("expected empty reactions: %+v", post)
	}
	if post.CreatedAt != fixedNow.UnixMilli() {
		t.Fatalf("unexpected createdAt %d", post.CreatedAt)
	}
	if first := s.List()[0]; first.ID != 7 {
		t.Fatalf("expected newest first, got %d", first.ID)
	}

	empty := NewFeedStore()
	if p := empty.Compose("hi", domain.CategoryOther); p.ID != 1 {
		t.Fatalf("first post id should be 1, got %d", p.ID)
	}
}

func TestCommentsAppendAndDelete(t *testing.T) {
	s := NewFeedStore(WithClock(fixedClock))
	s.Seed(SeedFeed(fixedNow))

	c, ok := s.AddComment(1, domain.Author{ID: "user-1", Name: "You", Avatar: "YU"}, "Agreed")
	if !ok {
		t.Fatalf("add comment failed")
	}
	p, _ := s.Get(1)
	if len(p.Comments) != 3 || p.Comments[2].ID != c.ID {
		t.Fatalf("expected comment appended last: %+v", p.Comments)
	}

	if c.AuthorID != "user-1" {
		t.Fatalf("comment should record its author id, got %q", c.AuthorID)
	}

	if err := s.DeleteComment(1, c.ID, "user-1"); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if err := s.DeleteComment(1, c.ID, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if _, ok := s.AddComment(404, domain.Author{}, "x"); ok {
		t.Fatalf("comment on unknown post must report false")
	}
}

func TestDeleteCommentRequiresAuthor(t *testing.T) {
	s := NewFeedStore(WithClock(fixedClock))
	s.Seed(SeedFeed(fixedNow))
	c, _ := s.AddComment(1, domain.Author{ID: "user-a", Name: "Ana Reyes", Avatar: "AR"}, "Same")
	seeded, _ := s.Get(1)

	if err := s.DeleteComment(1, c.ID, "user-b"); !errors.Is(err, ErrNotCommentAuthor) {
		t.Fatalf("other student must not delete, got %v", err)
	}
	if err := s.DeleteComment(1, seeded.Comments[0].ID, "user-b"); !errors.Is(err, ErrNotCommentAuthor) {
		t.Fatalf("seeded comments have no student author, got %v", err)
	}
	if err := s.DeleteComment(404, c.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown post should be not found, got %v", err)
	}
	if err := s.DeleteComment(1, seeded.Comments[0].ID, ""); err != nil {
		t.Fatalf("administrator delete: %v", err)
	}
	if p, _ := s.Get(1); len(p.Comments) != 2 {
		t.Fatalf("expected 2 comments left, got %d", len(p.Comments))
	}
}

func TestListDoesNotAliasState(t *testing.T) {
	s := NewFeedStore()
	s.Seed(SeedFeed(fixedNow))
	list := s.List()
	list[0].LikedBy[0] = "tampered"
	list[0].Comments = nil
	p, _ := s.Get(list[0].ID)
	if p.LikedBy[0] == "tampered" || len(p.Comments) == 0 {
		t.Fatalf("caller mutation leaked into store")
	}
}

func TestFeedStoreRoundTrip(t *testing.T) {
	backend := storage.NewMemoryStore()
	s := NewFeedStore(WithBackend(backend), WithClock(fixedClock))
	s.Seed(SeedFeed(fixedNow))
	s.Compose("Thank you for the new benches", domain.CategoryFacilities)
	s.ToggleLike(2, "u1")
	s.AddComment(3, domain.Author{Name: "You", Avatar: "YU"}, "Same here")

	restored := NewFeedStore(WithBackend(backend))
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !reflect.DeepEqual(s.List(), restored.List()) {
		t.Fatalf("feed mismatch after restore")
	}
	checkLikeCounts(t, restored)
}

func TestFeedRestoreNormalisesLikes(t *testing.T) {
	backend := storage.NewMemoryStore()
	raw := `{"sentiments":[{"id":1,"likes":99,"likedBy":["a","b"]}]}`
	if err := backend.Save(context.Background(), FeedSnapshot, []byte(raw)); err != nil {
		t.Fatalf("save: %v", err)
	}
	s := NewFeedStore(WithBackend(backend))
	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	p, _ := s.Get(1)
	if p.Likes != 2 || p.Comments == nil {
		t.Fatalf("expected normalised post, got %+v", p)
	}
}

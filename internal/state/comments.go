package state

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
)

// CommentStore holds the comment thread of one event at a time.
type CommentStore struct {
	list   *List[domain.EventComment]
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	eventID string
}

func NewCommentStore(opts Options) *CommentStore {
	opts = opts.withDefaults()
	return &CommentStore{
		list:   NewList(func(c domain.EventComment) string { return c.ID }, domain.EventComment.Clone, Append),
		logger: opts.Logger.With("store", "comments"),
		now:    opts.Now,
	}
}

// CommentSnapshot captures a thread for exact rollback.
type CommentSnapshot struct {
	eventID string
	list    Snapshot[domain.EventComment]
}

func (s *CommentStore) SetComments(eventID string, comments []domain.EventComment) {
	s.mu.Lock()
	s.eventID = eventID
	s.list.SetAll(comments)
	s.mu.Unlock()
	s.logger.Debug("comments set", "event_id", eventID, "count", len(comments))
}

func (s *CommentStore) CurrentEventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventID
}

// Add appends c, or replaces it in place when already present.
func (s *CommentStore) Add(c domain.EventComment) { s.list.Upsert(c) }

func (s *CommentStore) Upsert(c domain.EventComment) { s.list.Upsert(c) }

func (s *CommentStore) Remove(id string) { s.list.RemoveByID(id) }

func (s *CommentStore) MarkDeleted(id string) bool {
	now := s.now()
	return s.list.Patch(id, func(c *domain.EventComment) {
		c.IsDeleted = true
		c.DeletedAt = &now
	})
}

// ToggleLikeOptimistic flips the current user's like on id and adjusts the
// count, never below zero. It returns the pre-toggle snapshot.
func (s *CommentStore) ToggleLikeOptimistic(id string) (CommentSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := CommentSnapshot{eventID: s.eventID, list: s.list.Snapshot()}
	ok := s.list.Patch(id, func(c *domain.EventComment) {
		if c.LikedByCurrentUser {
			c.LikedByCurrentUser = false
			c.LikesCount = max(0, c.LikesCount-1)
		} else {
			c.LikedByCurrentUser = true
			c.LikesCount++
		}
	})
	return snap, ok
}

func (s *CommentStore) Snapshot() CommentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CommentSnapshot{eventID: s.eventID, list: s.list.Snapshot()}
}

func (s *CommentStore) Rollback(snap CommentSnapshot) {
	s.mu.Lock()
	s.eventID = snap.eventID
	s.list.Restore(snap.list)
	s.mu.Unlock()
	s.logger.Debug("comments rolled back", "event_id", snap.eventID)
}

func (s *CommentStore) Clear() {
	s.mu.Lock()
	s.eventID = ""
	s.list.Clear()
	s.mu.Unlock()
}

func (s *CommentStore) Revision() uint64 { return s.list.Revision() }

// --- derived views ---

func activeComment(c domain.EventComment) bool { return !c.IsDeleted }

func (s *CommentStore) Comments() []domain.EventComment { return s.list.Items() }

func (s *CommentStore) ByID(id string) (domain.EventComment, bool) { return s.list.Get(id) }

func (s *CommentStore) Total() int        { return s.list.Len() }
func (s *CommentStore) ActiveCount() int  { return s.list.Count(activeComment) }
func (s *CommentStore) DeletedCount() int { return s.list.Len() - s.list.Count(activeComment) }
func (s *CommentStore) IsEmpty() bool     { return s.list.Len() == 0 }
func (s *CommentStore) HasActive() bool   { return s.list.Any(activeComment) }

func (s *CommentStore) Active() []domain.EventComment { return s.list.Filter(activeComment) }

func (s *CommentStore) Deleted() []domain.EventComment {
	return s.list.Filter(func(c domain.EventComment) bool { return c.IsDeleted })
}

func (s *CommentStore) ByUser(userID string) []domain.EventComment {
	return s.list.Filter(func(c domain.EventComment) bool { return c.AuthorID() == userID })
}

// UserOwn returns the active comments authored by userID.
func (s *CommentStore) UserOwn(userID string) []domain.EventComment {
	if userID == "" {
		return []domain.EventComment{}
	}
	return s.list.Filter(func(c domain.EventComment) bool { return !c.IsDeleted && c.AuthorID() == userID })
}

func (s *CommentStore) LikedByCurrentUser() []domain.EventComment {
	return s.list.Filter(func(c domain.EventComment) bool { return !c.IsDeleted && c.LikedByCurrentUser })
}

func (s *CommentStore) HasUserCommented(userID string) bool {
	return userID != "" && s.list.Any(func(c domain.EventComment) bool { return !c.IsDeleted && c.AuthorID() == userID })
}

// TopLiked returns comments without a deletion time by like count. limit <= 0 returns all.
func (s *CommentStore) TopLiked(limit int) []domain.EventComment {
	out := s.list.Filter(func(c domain.EventComment) bool { return c.DeletedAt == nil })
	slices.SortStableFunc(out, func(a, b domain.EventComment) int { return cmp.Compare(b.LikesCount, a.LikesCount) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *CommentStore) Newest() []domain.EventComment {
	out := s.Active()
	slices.SortStableFunc(out, func(a, b domain.EventComment) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (s *CommentStore) Oldest() []domain.EventComment {
	out := s.Active()
	slices.SortStableFunc(out, func(a, b domain.EventComment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

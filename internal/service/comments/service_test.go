package comments

import (
	"context"
	"testing"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/repository"
	"github.com/kirinyoku/tix-client/internal/repository/api"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	thread    []domain.EventComment
	likeReply domain.EventComment
	likeErr   error
	addErr    error
	calls     int
}

func (f *fakeGateway) ListForEvent(context.Context, string) ([]domain.EventComment, error) {
	f.calls++
	return f.thread, nil
}

func (f *fakeGateway) Add(_ context.Context, eventID, text string) (domain.EventComment, error) {
	f.calls++
	return domain.EventComment{ID: "c" + text, EventID: eventID, Text: text}, f.addErr
}

func (f *fakeGateway) Update(_ context.Context, id, text string) (domain.EventComment, error) {
	f.calls++
	return domain.EventComment{ID: id, Text: text}, nil
}

func (f *fakeGateway) Delete(context.Context, string) error {
	f.calls++
	return nil
}

func (f *fakeGateway) ToggleLike(context.Context, string) (domain.EventComment, error) {
	f.calls++
	return f.likeReply, f.likeErr
}

func (f *fakeGateway) Restore(_ context.Context, id string) (domain.EventComment, error) {
	f.calls++
	return domain.EventComment{ID: id}, nil
}

func (f *fakeGateway) History(context.Context, string) ([]domain.CommentHistoryEntry, error) {
	f.calls++
	return nil, nil
}

func thread() []domain.EventComment {
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.EventComment{
		{ID: "c1", EventID: "e1", Text: "one", LikesCount: 2, CreatedAt: at, User: &domain.UserRef{ID: "u1"}},
		{ID: "c2", EventID: "e1", Text: "two", LikesCount: 0, LikedByCurrentUser: false, CreatedAt: at},
	}
}

func loaded(t *testing.T, gw *fakeGateway) *Service {
	t.Helper()
	s := New(gw, state.NewCommentStore(state.Options{}), nil)
	_, err := s.LoadForEvent(context.Background(), "e1")
	require.NoError(t, err)
	return s
}

func TestService_ToggleLikeRollsBackExactly(t *testing.T) {
	gw := &fakeGateway{thread: thread(), likeErr: &api.Error{Status: 500, Kind: repository.ErrServer}}
	s := loaded(t, gw)
	before := s.Store().Comments()

	_, err := s.ToggleLike(context.Background(), "c1")
	require.Error(t, err)

	assert.Equal(t, before, s.Store().Comments())
	assert.Equal(t, "Server error. Please try again later.", s.Status().Error)
}

func TestService_ToggleLikeKeepsServerState(t *testing.T) {
	gw := &fakeGateway{thread: thread()}
	gw.likeReply = domain.EventComment{ID: "c2", EventID: "e1", Text: "two", LikesCount: 7, LikedByCurrentUser: true}
	s := loaded(t, gw)

	c, err := s.ToggleLike(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, 7, c.LikesCount)
	assert.True(t, c.LikedByCurrentUser)
}

func TestService_ToggleLikeUnknownComment(t *testing.T) {
	gw := &fakeGateway{thread: thread()}
	s := loaded(t, gw)
	calls := gw.calls

	_, err := s.ToggleLike(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, calls, gw.calls)
}

func TestService_AddAppendsInOrder(t *testing.T) {
	gw := &fakeGateway{}
	s := loaded(t, gw)

	_, err := s.Add(context.Background(), "1")
	require.NoError(t, err)
	_, err = s.Add(context.Background(), "2")
	require.NoError(t, err)
	_, err = s.Add(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	got := s.Store().Comments()
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c2", got[1].ID)
	assert.Equal(t, 2, s.Store().Total())
}

func TestService_AddNeedsThread(t *testing.T) {
	s := New(&fakeGateway{}, state.NewCommentStore(state.Options{}), nil)
	_, err := s.Add(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoEventLoaded)
}

func TestService_DeleteRemoves(t *testing.T) {
	s := loaded(t, &fakeGateway{thread: thread()})
	require.NoError(t, s.Delete(context.Background(), "c1"))
	assert.Equal(t, 1, s.Store().Total())

	s.ClearComments()
	assert.True(t, s.Store().IsEmpty())
}

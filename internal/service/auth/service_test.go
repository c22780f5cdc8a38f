package auth

import (
	"context"
	"testing"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/kirinyoku/tix-client/internal/repository"
	"github.com/kirinyoku/tix-client/internal/repository/api"
	"github.com/kirinyoku/tix-client/internal/state"
	"github.com/kirinyoku/tix-client/internal/storage"
	"github.com/kirinyoku/tix-client/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	user      domain.AuthUser
	err       error
	logoutErr error
	role      domain.UserRole
	calls     int
}

func (f *fakeGateway) Register(_ context.Context, _, _ string, role domain.UserRole) (domain.AuthUser, error) {
	f.calls++
	f.role = role
	return f.user, f.err
}

func (f *fakeGateway) Login(context.Context, string, string) (domain.AuthUser, error) {
	f.calls++
	return f.user, f.err
}

func (f *fakeGateway) Logout(context.Context) error {
	f.calls++
	return f.logoutErr
}

var alice = domain.AuthUser{ID: "u1", Email: "alice@example.com", AccessToken: "tok", Role: domain.RoleUser}

func newService(gw *fakeGateway, start string) (*Service, *ui.Navigator, *storage.Memory) {
	mem := storage.NewMemory()
	nav := ui.NewNavigator(start)
	return New(gw, state.NewAuthStore(mem, state.Options{}), nav, nil), nav, mem
}

func TestService_LoginStoresSession(t *testing.T) {
	s, _, mem := newService(&fakeGateway{user: alice}, "/")

	u, err := s.Login(context.Background(), " alice@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "tok", s.Token())
	assert.True(t, s.Status().LastOperationSuccess)

	_, ok, _ := mem.Get(context.Background(), storage.KeyUser)
	assert.True(t, ok)
}

func TestService_LoginFailureMessage(t *testing.T) {
	gw := &fakeGateway{err: &api.Error{Status: 401, Kind: repository.ErrUnauthorized}}
	s, _, _ := newService(gw, "/login")

	_, err := s.Login(context.Background(), "alice@example.com", "bad")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password.", err.Error())
	assert.False(t, s.IsLoggedIn())
}

func TestService_LoginValidatesLocally(t *testing.T) {
	gw := &fakeGateway{user: alice}
	s, _, _ := newService(gw, "/")

	_, err := s.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, gw.calls)
}

func TestService_LoginRejectsIncompleteSession(t *testing.T) {
	s, _, _ := newService(&fakeGateway{user: domain.AuthUser{ID: "u1", Email: "alice@example.com"}}, "/")

	_, err := s.Login(context.Background(), "alice@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.False(t, s.IsLoggedIn())
}

func TestService_RegisterDefaultsRole(t *testing.T) {
	gw := &fakeGateway{user: alice}
	s, _, _ := newService(gw, "/")

	_, err := s.Register(context.Background(), "alice@example.com", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, gw.role)
}

func TestService_LogoutClearsEvenWhenServerFails(t *testing.T) {
	gw := &fakeGateway{user: alice, logoutErr: &api.Error{Kind: repository.ErrNetwork}}
	s, nav, mem := newService(gw, "/cart")
	_, err := s.Login(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	var signedOut string
	s.OnSignOut(func(id string) { signedOut = id })

	s.Logout(context.Background(), true)

	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, "u1", signedOut)
	assert.Equal(t, "/login", nav.CurrentURL())
	assert.Empty(t, s.Status().Error)
	assert.False(t, s.Status().Loading)
	_, ok, _ := mem.Get(context.Background(), storage.KeyUser)
	assert.False(t, ok)
}

func TestService_HandleUnauthorized(t *testing.T) {
	s, nav, _ := newService(&fakeGateway{user: alice}, "/orders")
	_, err := s.Login(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	s.HandleUnauthorized(context.Background())

	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, "/login?returnUrl=%2Forders", nav.CurrentURL())
}

func TestService_HandleUnauthorizedOnLoginPage(t *testing.T) {
	s, nav, _ := newService(&fakeGateway{user: alice}, "/login")
	_, err := s.Login(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	s.HandleUnauthorized(context.Background())

	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "/login", nav.CurrentURL())
}

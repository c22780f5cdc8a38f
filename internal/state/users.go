package state

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
)

type UserStore struct {
	list   *List[domain.AdminUser]
	logger *slog.Logger
	now    func() time.Time
}

func cloneUser(u domain.AdminUser) domain.AdminUser {
	cp := u
	for _, p := range []**time.Time{&cp.DeletedAt, &cp.CreatedAt, &cp.UpdatedAt} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return cp
}

func NewUserStore(opts Options) *UserStore {
	opts = opts.withDefaults()
	return &UserStore{
		list:   NewList(func(u domain.AdminUser) string { return u.ID }, cloneUser, Prepend),
		logger: opts.Logger.With("store", "users"),
		now:    opts.Now,
	}
}

func activeUser(u domain.AdminUser) bool { return !u.IsDeleted }

func (s *UserStore) SetUsers(users []domain.AdminUser) {
	s.list.SetAll(users)
	s.logger.Debug("users set", "count", len(users))
}

func (s *UserStore) Upsert(u domain.AdminUser) { s.list.Upsert(u) }

// UpdateRole changes the role of a stored user, keeping every other field.
func (s *UserStore) UpdateRole(id string, role domain.UserRole) bool {
	return s.list.Patch(id, func(u *domain.AdminUser) { u.Role = role })
}

// MergeRoleUpdate applies the identity fields returned by a role change,
// inserting the user if unknown.
func (s *UserStore) MergeRoleUpdate(u domain.AdminUser) {
	if s.list.Patch(u.ID, func(cur *domain.AdminUser) {
		cur.Role = u.Role
		if u.Email != "" {
			cur.Email = u.Email
		}
	}) {
		return
	}
	s.list.Upsert(u)
}

func (s *UserStore) MarkDeleted(id string) bool {
	now := s.now()
	return s.list.Patch(id, func(u *domain.AdminUser) {
		u.IsDeleted = true
		u.DeletedAt = &now
	})
}

func (s *UserStore) MarkRestored(id string) bool {
	return s.list.Patch(id, func(u *domain.AdminUser) {
		u.IsDeleted = false
		u.DeletedAt = nil
	})
}

func (s *UserStore) Remove(id string) { s.list.RemoveByID(id) }

func (s *UserStore) Clear() {
	s.list.Clear()
	s.logger.Debug("users cleared")
}

func (s *UserStore) Revision() uint64 { return s.list.Revision() }

// --- derived views ---

func (s *UserStore) Users() []domain.AdminUser { return s.list.Items() }

func (s *UserStore) ByID(id string) (domain.AdminUser, bool) { return s.list.Get(id) }

func (s *UserStore) Total() int        { return s.list.Len() }
func (s *UserStore) ActiveCount() int  { return s.list.Count(activeUser) }
func (s *UserStore) DeletedCount() int { return s.list.Len() - s.list.Count(activeUser) }

// RoleCount counts active users holding role.
func (s *UserStore) RoleCount(role domain.UserRole) int {
	return s.list.Count(func(u domain.AdminUser) bool { return !u.IsDeleted && u.Role == role })
}

func (s *UserStore) Active() []domain.AdminUser { return s.list.Filter(activeUser) }

func (s *UserStore) Deleted() []domain.AdminUser {
	return s.list.Filter(func(u domain.AdminUser) bool { return u.IsDeleted })
}

func (s *UserStore) ByRole(role domain.UserRole) []domain.AdminUser {
	return s.list.Filter(func(u domain.AdminUser) bool { return !u.IsDeleted && u.Role == role })
}

func (s *UserStore) SearchByEmail(q string) []domain.AdminUser {
	q = strings.ToLower(q)
	return s.list.Filter(func(u domain.AdminUser) bool {
		return strings.Contains(strings.ToLower(u.Email), q)
	})
}

func (s *UserStore) ByEmail(email string) (domain.AdminUser, bool) {
	found := s.list.Filter(func(u domain.AdminUser) bool { return strings.EqualFold(u.Email, email) })
	if len(found) == 0 {
		return domain.AdminUser{}, false
	}
	return found[0], true
}

func (s *UserStore) EmailExists(email string) bool {
	_, ok := s.ByEmail(email)
	return ok
}

func createdAt(u domain.AdminUser) time.Time {
	if u.CreatedAt == nil {
		return time.Time{}
	}
	return *u.CreatedAt
}

// Recent returns users newest first. limit <= 0 means 10.
func (s *UserStore) Recent(limit int) []domain.AdminUser {
	if limit <= 0 {
		limit = 10
	}
	out := s.list.Items()
	slices.SortStableFunc(out, func(a, b domain.AdminUser) int { return createdAt(b).Compare(createdAt(a)) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *UserStore) SortedByEmail(asc bool) []domain.AdminUser {
	out := s.list.Items()
	slices.SortStableFunc(out, func(a, b domain.AdminUser) int {
		c := strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
		if !asc {
			c = -c
		}
		return c
	})
	return out
}

// InDateRange returns users created within [start, end]. Users without a
// creation time are excluded.
func (s *UserStore) InDateRange(start, end time.Time) []domain.AdminUser {
	return s.list.Filter(func(u domain.AdminUser) bool {
		return u.CreatedAt != nil && !u.CreatedAt.Before(start) && !u.CreatedAt.After(end)
	})
}

func (s *UserStore) Today() []domain.AdminUser {
	start := domain.StartOfDay(s.now())
	return s.InDateRange(start, start.AddDate(0, 0, 1))
}

type UserStatistics struct {
	Total           int `json:"total"`
	Active          int `json:"active"`
	Deleted         int `json:"deleted"`
	Admins          int `json:"admins"`
	PowerUsers      int `json:"powerUsers"`
	RegularUsers    int `json:"regularUsers"`
	CreatedToday    int `json:"createdToday"`
	CreatedThisWeek int `json:"createdThisWeek"`
}

func (s *UserStore) Statistics() UserStatistics {
	now := s.now()
	today := domain.StartOfDay(now)
	weekAgo := now.AddDate(0, 0, -7)

	var st UserStatistics
	for _, u := range s.list.Items() {
		st.Total++
		if u.IsDeleted {
			st.Deleted++
		} else {
			st.Active++
			switch u.Role {
			case domain.RoleAdmin:
				st.Admins++
			case domain.RolePowerUser:
				st.PowerUsers++
			case domain.RoleUser:
				st.RegularUsers++
			}
		}
		if u.CreatedAt != nil {
			if !u.CreatedAt.Before(today) {
				st.CreatedToday++
			}
			if !u.CreatedAt.Before(weekAgo) {
				st.CreatedThisWeek++
			}
		}
	}
	return st
}

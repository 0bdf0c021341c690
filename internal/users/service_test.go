package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismhq/prism/internal/shared"
)

type mockRepository struct {
	users  map[int64]User
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: map[int64]User{}, nextID: 1}
}

func (m *mockRepository) List(_ context.Context, _ shared.ListFilters) ([]User, int, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *mockRepository) Get(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) Create(_ context.Context, user User) (User, error) {
	for _, u := range m.users {
		if u.Email == user.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return user, nil
}

func (m *mockRepository) Update(_ context.Context, id int64, user User) error {
	existing, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	existing.Email = user.Email
	existing.Name = user.Name
	existing.IsActive = user.IsActive
	m.users[id] = existing
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockRepository) LinkExternalID(_ context.Context, id int64, externalID string) error {
	u, ok := m.users[id]
	if !ok || u.ExternalID != nil {
		return shared.ErrConflict
	}
	for _, other := range m.users {
		if other.ExternalID != nil && *other.ExternalID == externalID {
			return shared.ErrDuplicate
		}
	}
	u.ExternalID = &externalID
	m.users[id] = u
	return nil
}

func TestCreateNormalizesEmail(t *testing.T) {
	svc := NewService(newMockRepository())

	created, err := svc.Create(context.Background(), User{Email: "  Dana@Example.COM ", Name: " Dana ", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", created.Email)
	assert.Equal(t, "Dana", created.Name)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), User{Email: "dana@example.com", Name: "Dana"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), User{Email: "DANA@example.com", Name: "Other"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateRequiresEmailAndName(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), User{Name: "Dana"})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), User{Email: "dana@example.com", Name: "   "})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLinkExternalIDIsWriteOnce(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), User{Email: "dana@example.com", Name: "Dana"})
	require.NoError(t, err)

	require.NoError(t, svc.LinkExternalID(context.Background(), created.ID, "user_abc123"))
	err = svc.LinkExternalID(context.Background(), created.ID, "user_other")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestLinkExternalIDRequiresPrefix(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), User{Email: "dana@example.com", Name: "Dana"})
	require.NoError(t, err)

	err = svc.LinkExternalID(context.Background(), created.ID, "acct_abc123")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLinkExternalIDUnknownUser(t *testing.T) {
	svc := NewService(newMockRepository())
	err := svc.LinkExternalID(context.Background(), 42, "user_abc123")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

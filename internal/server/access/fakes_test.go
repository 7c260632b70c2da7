package access

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[int64]*models.User
	err  error
}

func newFakeUsers(us ...models.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[int64]*models.User)}
	for i := range us {
		u := us[i]
		f.byID[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	return nil, common.ErrInternal
}

func (f *fakeUsers) GetByUserName(ctx context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.UserName == name {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByToken(ctx context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if token != "" && u.Token == token {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsers) SetToken(ctx context.Context, id int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Token = token
	return nil
}

func (f *fakeUsers) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID), nil
}

type fakeLockers map[int]models.LockerView

func (f fakeLockers) Get(id int) (models.LockerView, error) {
	v, ok := f[id]
	if !ok {
		return models.LockerView{}, common.ErrNotFound
	}
	return v, nil
}

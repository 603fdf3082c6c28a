package v1

import (
	"context"
	"sync"
	"time"

	"github.com/twinning-project/twinning-api/internal/core/domain"
)

// --- in-memory fakes for the repository contracts ---

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]domain.User
	nextID int64

	setActiveErr   error
	setActiveCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]domain.User), nextID: 1}
}

func (f *fakeUserRepo) add(u domain.User) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = u
	return u.ID
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := f.GetByEmail(ctx, email)
	return u != nil, err
}

func (f *fakeUserRepo) Create(_ context.Context, email, passwordHash, firstName, lastName string) (int64, error) {
	return f.add(domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		IsActive:     false,
		CreatedAt:    time.Now(),
	}), nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setActiveCalls++
	if f.setActiveErr != nil {
		return f.setActiveErr
	}
	u, ok := f.users[id]
	if ok {
		u.IsActive = active
		f.users[id] = u
	}
	return nil
}

func (f *fakeUserRepo) SetPasswordHash(_ context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if ok {
		u.PasswordHash = passwordHash
		f.users[id] = u
	}
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if ok {
		now := time.Now()
		u.LastLogin = &now
		f.users[id] = u
	}
	return nil
}

type fakeSessionRepo struct {
	mu     sync.Mutex
	byKey  map[string]domain.SessionToken
	byUser map[int64]string

	updateErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		byKey:  make(map[string]domain.SessionToken),
		byUser: make(map[int64]string),
	}
}

func (f *fakeSessionRepo) Upsert(_ context.Context, userID int64, key string, expiresAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byUser[userID]; ok {
		t := f.byKey[existing]
		t.ExpiresAt = expiresAt
		f.byKey[existing] = t
		return existing, nil
	}
	if _, dup := f.byKey[key]; dup {
		return "", domain.ErrDuplicateKey
	}
	f.byKey[key] = domain.SessionToken{Key: key, UserID: userID, CreatedAt: time.Now(), ExpiresAt: expiresAt}
	f.byUser[userID] = key
	return key, nil
}

func (f *fakeSessionRepo) Get(_ context.Context, key string) (*domain.SessionToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byKey[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeSessionRepo) UpdateExpiry(_ context.Context, key string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	t, ok := f.byKey[key]
	if ok {
		t.ExpiresAt = expiresAt
		f.byKey[key] = t
	}
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.byKey[key]; ok {
		delete(f.byUser, t.UserID)
		delete(f.byKey, key)
	}
	return nil
}

// fakeActionRepo serializes Consume calls on its mutex, mirroring the row
// lock the pgx implementation takes.
type fakeActionRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.ActionToken
	users  *fakeUserRepo
}

func newFakeActionRepo(users *fakeUserRepo) *fakeActionRepo {
	return &fakeActionRepo{tokens: make(map[string]domain.ActionToken), users: users}
}

func (f *fakeActionRepo) Create(_ context.Context, key string, userID int64, typ domain.ActionType, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.tokens[key]; dup {
		return domain.ErrDuplicateKey
	}
	f.tokens[key] = domain.ActionToken{Key: key, Type: typ, UserID: userID, CreatedAt: time.Now(), ExpiresAt: expiresAt}
	return nil
}

func (f *fakeActionRepo) Get(_ context.Context, key string) (*domain.ActionToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeActionRepo) Consume(ctx context.Context, key string, apply func(ctx context.Context, users domain.UserRepository, token *domain.ActionToken) error) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[key]
	if !ok {
		return false, nil
	}
	if err := apply(ctx, f.users, &t); err != nil {
		return true, err
	}
	delete(f.tokens, key)
	return true, nil
}

// fakeClock is a settable time source for expiry and renewal scenarios.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{cur: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(d)
}

// fakeNotifier records hand-offs.
type fakeNotifier struct {
	mu         sync.Mutex
	activation map[string]string // email -> key
	reset      map[string]string // email -> key
	err        error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{activation: make(map[string]string), reset: make(map[string]string)}
}

func (f *fakeNotifier) SendActivation(_ context.Context, email, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.activation[email] = key
	return nil
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, email, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reset[email] = key
	return nil
}

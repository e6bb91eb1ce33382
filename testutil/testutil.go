// Package testutil provides an in-memory repository and request helpers for
// handler and router tests.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/padraicbc/inscricoes/models"
	"github.com/padraicbc/inscricoes/store"
)

// Repo is an in-memory stand-in for store.Store. Setting Err makes every
// call fail with it. Calls records method names in order.
type Repo struct {
	mu sync.Mutex

	RegistrationRows []models.Registration
	KitRows          []models.Kit
	Tiers            []models.Tier
	Results          []models.Result
	Users            map[string]models.User

	Err   error
	Calls []string
}

// NewRepo returns an empty repository.
func NewRepo() *Repo {
	return &Repo{Users: map[string]models.User{}}
}

func (r *Repo) record(name string) error {
	r.Calls = append(r.Calls, name)
	return r.Err
}

// CallCount reports how many times method name was called.
func (r *Repo) CallCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (r *Repo) Registrations(ctx context.Context) ([]models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("Registrations"); err != nil {
		return nil, err
	}
	out := append([]models.Registration{}, r.RegistrationRows...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) Kits(ctx context.Context) ([]models.Kit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("Kits"); err != nil {
		return nil, err
	}
	return append([]models.Kit{}, r.KitRows...), nil
}

func (r *Repo) CurrentTiers(ctx context.Context, now time.Time) ([]models.Tier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("CurrentTiers"); err != nil {
		return nil, err
	}
	out := []models.Tier{}
	for _, t := range r.Tiers {
		if t.CurrentAt(now) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *Repo) ResultsByCategory(ctx context.Context, category string) ([]models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("ResultsByCategory"); err != nil {
		return nil, err
	}
	out := []models.Result{}
	for _, res := range r.Results {
		if res.Category == category {
			out = append(out, res)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Placement < out[j].Placement })
	return out, nil
}

func (r *Repo) SetKitPickup(ctx context.Context, id int, picked bool, at time.Time) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("SetKitPickup"); err != nil {
		return nil, err
	}
	for i := range r.RegistrationRows {
		if r.RegistrationRows[i].ID == id {
			r.RegistrationRows[i].KitPickedUp = picked
			r.RegistrationRows[i].UpdatedAt = at
			reg := r.RegistrationRows[i]
			return &reg, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *Repo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UserByUsername"); err != nil {
		return nil, err
	}
	u, ok := r.Users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *Repo) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record("Ping")
}

// Registration returns the stored registration with id, if any.
func (r *Repo) Registration(id int) (models.Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.RegistrationRows {
		if reg.ID == id {
			return reg, true
		}
	}
	return models.Registration{}, false
}

// AddUser stores a user with a bcrypt hash of password.
func (r *Repo) AddUser(t *testing.T, username, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Users[username] = models.User{Username: username, Password: string(hash), Role: role}
}

// Logger returns a logger that discards output.
func Logger() *zap.Logger {
	return zap.NewNop()
}

// Request builds a test request; a non-empty body is sent as JSON.
func Request(method, target, body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

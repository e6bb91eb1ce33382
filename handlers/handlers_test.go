package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/padraicbc/inscricoes/middleware"
	"github.com/padraicbc/inscricoes/models"
	"github.com/padraicbc/inscricoes/testutil"
)

var testSessions = mw.Sessions{Key: []byte("test-secret"), Cookie: "session"}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// newServer wires h onto a bare echo with the validator but no auth
// middleware; the router tests cover the guards.
func newServer(repo *testutil.Repo, now time.Time) *echo.Echo {
	h := New(repo, testutil.Logger(), Options{
		Sessions:   testSessions,
		SessionTTL: time.Hour,
		Now:        fixedClock(now),
	})

	e := echo.New()
	e.Validator = NewValidator()
	e.GET("/health", h.Health)
	e.GET("/registrations", h.Registrations)
	e.GET("/kits", h.Kits)
	e.GET("/tiers", h.Tiers)
	e.GET("/results", h.Results)
	e.PUT("/pickup/:id", h.SetKitPickup)
	e.POST("/auth/signin", h.Signin)
	e.POST("/auth/signout", h.Signout)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestRegistrations(t *testing.T) {
	t.Run("empty table gives empty array", func(t *testing.T) {
		rec := serve(newServer(testutil.NewRepo(), time.Now()), testutil.Request(http.MethodGet, "/registrations", "", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("ordered by id with public fields only", func(t *testing.T) {
		repo := testutil.NewRepo()
		repo.RegistrationRows = []models.Registration{
			{ID: 2, FullName: "Bruna Lima", CPF: "98765432100", Category: "5K", Kit: "Básico", ShirtSize: "P", Status: "pago", KitPickedUp: true},
			{ID: 1, FullName: "Ana Souza", CPF: "12345678900", Category: "10K", Kit: "Premium", ShirtSize: "M", Status: "pendente"},
		}

		rec := serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, "/registrations", "", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got []map[string]interface{}
		decode(t, rec, &got)
		require.Len(t, got, 2)
		assert.Equal(t, float64(1), got[0]["id"])
		assert.Equal(t, "Ana Souza", got[0]["fullName"])
		assert.Equal(t, "M", got[0]["shirtSize"])
		assert.Equal(t, float64(2), got[1]["id"])
		assert.NotContains(t, got[1], "kitPickedUp")
	})

	t.Run("storage failure is a generic 500", func(t *testing.T) {
		repo := testutil.NewRepo()
		repo.Err = errors.New(`pq: relation "inscricoes" does not exist`)

		rec := serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, "/registrations", "", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "inscricoes")
		assert.Contains(t, rec.Body.String(), "internal server error")
	})
}

func TestListingsStorageFailure(t *testing.T) {
	tests := []struct {
		target string
		method string
	}{
		{"/registrations", "Registrations"},
		{"/kits", "Kits"},
		{"/tiers", "CurrentTiers"},
		{"/results?category=10K", "ResultsByCategory"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			repo := testutil.NewRepo()
			repo.Err = errors.New(`pq: relation "lotes" does not exist`)

			rec := serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, tt.target, "", nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"message":"internal server error"}`, rec.Body.String())
			assert.Equal(t, 1, repo.CallCount(tt.method))
		})
	}
}

func TestKits(t *testing.T) {
	repo := testutil.NewRepo()
	repo.KitRows = []models.Kit{
		{ID: 1, Name: "Básico", Price: decimal.NewFromInt(80), Items: []string{"camisa"}, Available: true},
		{ID: 2, Name: "Premium", Price: decimal.NewFromInt(150), Items: []string{"camisa", "medalha"}, Available: false},
	}

	rec := serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, "/kits", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Kit
	decode(t, rec, &got)
	require.Len(t, got, 2)
	assert.Equal(t, "Premium", got[1].Name)
	assert.False(t, got[1].Available)
	assert.Equal(t, []string{"camisa", "medalha"}, got[1].Items)
	assert.True(t, decimal.NewFromInt(150).Equal(got[1].Price))
}

func TestTiers(t *testing.T) {
	utc := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }
	repo := testutil.NewRepo()
	repo.Tiers = []models.Tier{
		{ID: 1, Name: "promo", StartsAt: utc(1, 10), EndsAt: utc(1, 20), Active: true},
		{ID: 2, Name: "janeiro", StartsAt: utc(1, 1), EndsAt: utc(1, 31), Active: true},
		{ID: 3, Name: "fevereiro", StartsAt: utc(2, 1), EndsAt: utc(2, 28), Active: true},
		{ID: 4, Name: "cortesia", StartsAt: utc(1, 1), EndsAt: utc(12, 31), Active: false},
	}

	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{"mid january", utc(1, 15), []string{"janeiro", "promo"}},
		{"first of february", utc(2, 1), []string{"fevereiro"}},
		{"before any window", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newServer(repo, tt.now), testutil.Request(http.MethodGet, "/tiers", "", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var got []models.Tier
			decode(t, rec, &got)
			names := make([]string, 0, len(got))
			for _, tier := range got {
				names = append(names, tier.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestResults(t *testing.T) {
	team := "Corredores SP"
	seed := func() *testutil.Repo {
		repo := testutil.NewRepo()
		repo.Results = []models.Result{
			{ID: 1, Category: "10K", Placement: 2, Bib: 101, Name: "Carlos", Sex: "M", Time: "00:41:10"},
			{ID: 2, Category: "10K", Placement: 1, Bib: 150, Name: "Daniela", Sex: "F", Team: &team, Time: "00:39:58"},
			{ID: 3, Category: "5K", Placement: 1, Bib: 12, Name: "Eduardo", Sex: "M", Time: "00:19:30"},
		}
		return repo
	}

	t.Run("missing category", func(t *testing.T) {
		for _, target := range []string{"/results", "/results?category=", "/results?category=%20%20"} {
			repo := seed()
			rec := serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, target, "", nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
			assert.Contains(t, rec.Body.String(), "category is required", target)
			assert.Zero(t, repo.CallCount("ResultsByCategory"), target)
		}
	})

	t.Run("sorted by placement", func(t *testing.T) {
		rec := serve(newServer(seed(), time.Now()), testutil.Request(http.MethodGet, "/results?category=10K", "", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got []models.Result
		decode(t, rec, &got)
		require.Len(t, got, 2)
		assert.Equal(t, "Daniela", got[0].Name)
		require.NotNil(t, got[0].Team)
		assert.Equal(t, team, *got[0].Team)
		assert.Equal(t, 2, got[1].Placement)
		assert.Nil(t, got[1].Team)
	})

	t.Run("unknown category is empty", func(t *testing.T) {
		rec := serve(newServer(seed(), time.Now()), testutil.Request(http.MethodGet, "/results?category=42K", "", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("injection attempt is just a category", func(t *testing.T) {
		repo := seed()
		rec := serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, "/results?category=10K'%20OR%20'1'='1", "", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
		assert.Equal(t, 1, repo.CallCount("ResultsByCategory"))
	})
}

func TestSetKitPickup(t *testing.T) {
	now := time.Date(2025, 3, 2, 7, 30, 0, 0, time.UTC)
	seed := func() *testutil.Repo {
		repo := testutil.NewRepo()
		repo.RegistrationRows = []models.Registration{{ID: 7, FullName: "Ana Souza", Status: "pago"}}
		return repo
	}

	t.Run("sets the flag", func(t *testing.T) {
		repo := seed()
		rec := serve(newServer(repo, now), testutil.Request(http.MethodPut, "/pickup/7", `{"pickup":true}`, nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got pickupResponse
		decode(t, rec, &got)
		assert.Equal(t, 7, got.ID)
		assert.True(t, got.Pickup)
		assert.True(t, got.KitRetirado)
		assert.True(t, now.Equal(got.UpdatedAt))

		reg, ok := repo.Registration(7)
		require.True(t, ok)
		assert.True(t, reg.KitPickedUp)
	})

	t.Run("legacy field clears the flag", func(t *testing.T) {
		repo := seed()
		repo.RegistrationRows[0].KitPickedUp = true
		rec := serve(newServer(repo, now), testutil.Request(http.MethodPut, "/pickup/7", `{"kitretirado":false}`, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		reg, _ := repo.Registration(7)
		assert.False(t, reg.KitPickedUp)
	})

	t.Run("non boolean echoes the body", func(t *testing.T) {
		repo := seed()
		rec := serve(newServer(repo, now), testutil.Request(http.MethodPut, "/pickup/7", `{"pickup":"yes"}`, nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var got map[string]interface{}
		decode(t, rec, &got)
		assert.Equal(t, map[string]interface{}{"pickup": "yes"}, got["received"])
		assert.NotEmpty(t, got["message"])
		assert.Zero(t, repo.CallCount("SetKitPickup"))
	})

	t.Run("malformed body echoed as text", func(t *testing.T) {
		repo := seed()
		rec := serve(newServer(repo, now), testutil.Request(http.MethodPut, "/pickup/7", `pickup=true`, nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var got map[string]interface{}
		decode(t, rec, &got)
		assert.Equal(t, "pickup=true", got["received"])
		assert.Zero(t, repo.CallCount("SetKitPickup"))
	})

	t.Run("bad id", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-3"} {
			repo := seed()
			rec := serve(newServer(repo, now), testutil.Request(http.MethodPut, "/pickup/"+id, `{"pickup":true}`, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code, id)
			assert.Zero(t, repo.CallCount("SetKitPickup"), id)
		}
	})

	t.Run("unknown registration", func(t *testing.T) {
		rec := serve(newServer(seed(), now), testutil.Request(http.MethodPut, "/pickup/99", `{"pickup":true}`, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := seed()
		repo.Err = errors.New("connection reset by peer")
		rec := serve(newServer(repo, now), testutil.Request(http.MethodPut, "/pickup/7", `{"pickup":true}`, nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}

func TestParsePickup(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    bool
		wantErr error
	}{
		{"pickup true", `{"pickup":true}`, true, nil},
		{"pickup false", `{"pickup":false}`, false, nil},
		{"legacy true", `{"kitretirado":true}`, true, nil},
		{"pickup wins over legacy", `{"pickup":false,"kitretirado":true}`, false, nil},
		{"null pickup falls back", `{"pickup":null,"kitretirado":true}`, true, nil},
		{"string pickup falls back", `{"pickup":"yes","kitretirado":false}`, false, nil},
		{"string only", `{"pickup":"true"}`, false, errPickupMissing},
		{"number", `{"pickup":1}`, false, errPickupMissing},
		{"empty object", `{}`, false, errPickupMissing},
		{"array", `[true]`, false, errPickupNotObject},
		{"bare boolean", `true`, false, errPickupNotObject},
		{"empty body", ``, false, errPickupNotObject},
		{"not json", `pickup=true`, false, errPickupNotObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePickup([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignin(t *testing.T) {
	now := time.Now()
	repo := testutil.NewRepo()
	repo.AddUser(t, "admin", "s3cret", "admin")
	e := newServer(repo, now)

	t.Run("valid credentials", func(t *testing.T) {
		rec := serve(e, testutil.Request(http.MethodPost, "/auth/signin", `{"username":"admin","password":"s3cret"}`, nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got struct {
			Token string `json:"token"`
			Role  string `json:"role"`
		}
		decode(t, rec, &got)
		assert.Equal(t, "admin", got.Role)

		claims, err := testSessions.Parse(got.Token)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, "admin", claims.Role)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "session", cookies[0].Name)
		assert.Equal(t, got.Token, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := serve(e, testutil.Request(http.MethodPost, "/auth/signin", `{"username":"admin","password":"nope"}`, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := serve(e, testutil.Request(http.MethodPost, "/auth/signin", `{"username":"ghost","password":"s3cret"}`, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		rec := serve(e, testutil.Request(http.MethodPost, "/auth/signin", `{"username":"admin"}`, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "password is required")
	})
}

func TestSignout(t *testing.T) {
	rec := serve(newServer(testutil.NewRepo(), time.Now()), testutil.Request(http.MethodPost, "/auth/signout", "", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestHealth(t *testing.T) {
	repo := testutil.NewRepo()
	rec := serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, "/health", "", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	repo.Err = errors.New("dial tcp: connection refused")
	rec = serve(newServer(repo, time.Now()), testutil.Request(http.MethodGet, "/health", "", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword(" ", "pw")
	assert.Error(t, err)
	_, err = HashPassword("admin", "")
	assert.Error(t, err)

	hash, err := HashPassword("admin", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)
}

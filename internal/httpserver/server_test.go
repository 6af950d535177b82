package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/gpio_shop/internal/db"
	"github.com/Skotchmaster/gpio_shop/internal/hardware"
	"github.com/Skotchmaster/gpio_shop/internal/models"
	"github.com/Skotchmaster/gpio_shop/internal/repo"
	"github.com/Skotchmaster/gpio_shop/internal/service"
	"github.com/Skotchmaster/gpio_shop/internal/tokens"
	"github.com/Skotchmaster/gpio_shop/internal/upload"
)

var jwtSecret = []byte("http-test-secret")

// device stands in for the GPIO endpoint and records what it receives.
type device struct {
	mu       sync.Mutex
	commands []hardware.Command
	failAll  bool
	srv      *httptest.Server
}

func newDevice(t *testing.T) *device {
	t.Helper()

	d := &device{}
	d.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cmd hardware.Command
		_ = json.NewDecoder(r.Body).Decode(&cmd)

		d.mu.Lock()
		d.commands = append(d.commands, cmd)
		fail := d.failAll
		d.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(d.srv.Close)
	return d
}

func (d *device) failEverything() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAll = true
}

func (d *device) received() []hardware.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]hardware.Command(nil), d.commands...)
}

type testEnv struct {
	e      *echo.Echo
	store  repo.Store
	device *device
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	store := repo.NewGormRepo(gdb)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	uploads, err := upload.New(upload.Config{Dir: filepath.Join(t.TempDir(), "uploads"), URLPrefix: "/uploads"})
	require.NoError(t, err)

	dev := newDevice(t)

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: &service.AuthService{
			Repo:   store,
			Tokens: tokens.NewIssuer(jwtSecret, time.Hour),
		}},
		CatalogHandler: &CatalogHTTP{
			Svc:     &service.CatalogService{Repo: store},
			Uploads: uploads,
		},
		CheckoutHandler: &CheckoutHTTP{Svc: &service.CheckoutService{
			Repo:     store,
			Hardware: hardware.NewHTTPController(dev.srv.URL+"/control_gpio", 0),
		}},
		Uploads:   uploads,
		JWTSecret: jwtSecret,
		Ready:     store.Ping,
	})

	return &testEnv{e: e, store: store, device: dev}
}

func (env *testEnv) do(t *testing.T, method, path, token string, body io.Reader, ctype string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if ctype != "" {
		req.Header.Set(echo.HeaderContentType, ctype)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return env.do(t, method, path, token, body, echo.MIMEApplicationJSON)
}

func (env *testEnv) login(t *testing.T, prefix, email string) string {
	t.Helper()

	creds := map[string]string{"email": email, "password": "pw"}
	rec := env.doJSON(t, http.MethodPost, prefix+"/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.doJSON(t, http.MethodPost, prefix+"/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (io.Reader, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile(upload.FieldName, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func decodeProduct(t *testing.T, rec *httptest.ResponseRecorder) models.Product {
	t.Helper()

	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func (env *testEnv) createProduct(t *testing.T, token string, fields map[string]string) models.Product {
	t.Helper()

	body, ctype := multipartBody(t, fields, "", nil)
	rec := env.do(t, http.MethodPost, "/admin/products", token, body, ctype)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeProduct(t, rec)
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"email": "a@b.c", "password": "pw"}

	rec := env.doJSON(t, http.MethodPost, "/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"User registered"}`, rec.Body.String())

	rec = env.doJSON(t, http.MethodPost, "/register", "", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/admin/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"Admin registered"}`, rec.Body.String())

	rec = env.doJSON(t, http.MethodPost, "/register", "", map[string]string{"email": "", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	t.Run("login failures are indistinguishable", func(t *testing.T) {
		unknown := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{"email": "x@y.z", "password": "pw"})
		wrong := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{"email": "a@b.c", "password": "bad"})

		assert.Equal(t, http.StatusBadRequest, unknown.Code)
		assert.Equal(t, http.StatusBadRequest, wrong.Code)
		assert.JSONEq(t, `{"message":"Invalid credentials"}`, unknown.Body.String())
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	})

	t.Run("login issues a token of the right kind", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPost, "/admin/login", "", creds)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		claims, err := tokens.Parse(resp["token"], jwtSecret)
		require.NoError(t, err)
		assert.NotEmpty(t, claims.AdminID)
		assert.Empty(t, claims.UserID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
	})
}

func TestProtectedRoutes(t *testing.T) {
	env := newTestEnv(t)
	userTok := env.login(t, "", "u@shop")
	adminTok := env.login(t, "/admin", "a@shop")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "list without token", method: http.MethodGet, path: "/admin/products", wantStatus: http.StatusUnauthorized},
		{name: "list with user token", method: http.MethodGet, path: "/admin/products", token: userTok, wantStatus: http.StatusForbidden},
		{name: "list with admin token", method: http.MethodGet, path: "/admin/products", token: adminTok, wantStatus: http.StatusOK},
		{name: "delete with user token", method: http.MethodDelete, path: "/admin/products/x", token: userTok, wantStatus: http.StatusForbidden},
		{name: "checkout without token", method: http.MethodPost, path: "/checkout-success", wantStatus: http.StatusUnauthorized},
		{name: "checkout with admin token", method: http.MethodPost, path: "/checkout-success", token: adminTok, wantStatus: http.StatusForbidden},
		{name: "checkout with bad token", method: http.MethodPost, path: "/checkout-success", token: "garbage", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, tt.method, tt.path, tt.token, map[string]any{"items": []string{}})
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	assert.Empty(t, env.device.received())
}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.login(t, "/admin", "a@shop")

	t.Run("create without image stores empty reference", func(t *testing.T) {
		p := env.createProduct(t, adminTok, map[string]string{"name": "Lamp", "price": "9.5", "gpioPin": "17", "gpioAction": "on"})
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "", p.Image)
		assert.Equal(t, 9.5, p.Price)
		assert.Equal(t, 17, p.GPIOPin)
	})

	var withImage models.Product
	content := []byte("png bytes")

	t.Run("create with image serves the file at its reference path", func(t *testing.T) {
		body, ctype := multipartBody(t, map[string]string{"name": "Fan", "gpioPin": "27", "gpioAction": "off"}, "fan.png", content)
		rec := env.do(t, http.MethodPost, "/admin/products", adminTok, body, ctype)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		withImage = decodeProduct(t, rec)
		require.True(t, strings.HasPrefix(withImage.Image, "/uploads/"), withImage.Image)
		assert.True(t, strings.HasSuffix(withImage.Image, "-fan.png"), withImage.Image)

		file := env.do(t, http.MethodGet, withImage.Image, "", nil, "")
		require.Equal(t, http.StatusOK, file.Code)
		assert.Equal(t, content, file.Body.Bytes())
	})

	t.Run("update without image keeps the stored one", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPut, "/admin/products/"+withImage.ID, adminTok, map[string]any{"price": 3})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		p := decodeProduct(t, rec)
		assert.Equal(t, withImage.Image, p.Image)
		assert.Equal(t, 3.0, p.Price)
		assert.Equal(t, "Fan", p.Name)
	})

	t.Run("update with new file replaces the reference", func(t *testing.T) {
		body, ctype := multipartBody(t, map[string]string{"name": "Big fan"}, "big.png", []byte("other"))
		rec := env.do(t, http.MethodPut, "/admin/products/"+withImage.ID, adminTok, body, ctype)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		p := decodeProduct(t, rec)
		assert.NotEqual(t, withImage.Image, p.Image)
		assert.True(t, strings.HasSuffix(p.Image, "-big.png"), p.Image)
		assert.Equal(t, "Big fan", p.Name)
	})

	t.Run("update of unknown id answers null", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodPut, "/admin/products/does-not-exist", adminTok, map[string]any{"name": "x"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("non numeric price is rejected", func(t *testing.T) {
		body, ctype := multipartBody(t, map[string]string{"name": "Bad", "price": "cheap"}, "", nil)
		rec := env.do(t, http.MethodPost, "/admin/products", adminTok, body, ctype)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"invalid body"}`, rec.Body.String())
	})

	t.Run("list returns every product", func(t *testing.T) {
		rec := env.doJSON(t, http.MethodGet, "/admin/products", adminTok, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var list []models.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list, 2)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		for _, id := range []string{withImage.ID, withImage.ID, "never-existed"} {
			rec := env.doJSON(t, http.MethodDelete, "/admin/products/"+id, adminTok, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"message":"Product deleted"}`, rec.Body.String())
		}

		rec := env.doJSON(t, http.MethodGet, "/admin/products", adminTok, nil)
		var list []models.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list, 1)
	})
}

func TestCheckout(t *testing.T) {
	t.Run("triggers resolved products in order", func(t *testing.T) {
		env := newTestEnv(t)
		adminTok := env.login(t, "/admin", "a@shop")
		userTok := env.login(t, "", "u@shop")

		p1 := env.createProduct(t, adminTok, map[string]string{"name": "Lamp", "gpioPin": "17", "gpioAction": "on"})
		p2 := env.createProduct(t, adminTok, map[string]string{"name": "Fan", "gpioPin": "27", "gpioAction": "off"})

		rec := env.doJSON(t, http.MethodPost, "/checkout-success", userTok, map[string]any{
			"items": []string{p1.ID, "unknown-id", p2.ID},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"message":"GPIO controlled successfully"}`, rec.Body.String())

		assert.Equal(t, []hardware.Command{
			{Pin: 17, Action: "on"},
			{Pin: 27, Action: "off"},
		}, env.device.received())
	})

	t.Run("first failure stops the sequence", func(t *testing.T) {
		env := newTestEnv(t)
		adminTok := env.login(t, "/admin", "a@shop")
		userTok := env.login(t, "", "u@shop")

		p1 := env.createProduct(t, adminTok, map[string]string{"name": "Lamp", "gpioPin": "17", "gpioAction": "on"})
		p2 := env.createProduct(t, adminTok, map[string]string{"name": "Fan", "gpioPin": "27", "gpioAction": "off"})
		env.device.failEverything()

		rec := env.doJSON(t, http.MethodPost, "/checkout-success", userTok, map[string]any{
			"items": []string{p1.ID, p2.ID},
		})
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Error controlling GPIO", resp["message"])
		assert.NotEmpty(t, resp["error"])

		assert.Equal(t, []hardware.Command{{Pin: 17, Action: "on"}}, env.device.received())
	})

	t.Run("missing items is a bad request", func(t *testing.T) {
		env := newTestEnv(t)
		userTok := env.login(t, "", "u@shop")

		rec := env.doJSON(t, http.MethodPost, "/checkout-success", userTok, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, env.device.received())
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/health/ready", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	e := echo.New()
	e.GET("/ready", readiness(func(context.Context) error { return errors.New("down") }))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateProduct_NonFinitePriceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.login(t, "/admin", "a@shop")

	for _, price := range []string{"NaN", "Inf", "-Inf"} {
		body, ctype := multipartBody(t, map[string]string{"name": "Bad", "price": price}, "", nil)
		rec := env.do(t, http.MethodPost, "/admin/products", adminTok, body, ctype)
		assert.Equal(t, http.StatusBadRequest, rec.Code, price)
		assert.JSONEq(t, `{"message":"invalid body"}`, rec.Body.String())
	}

	rec := env.doJSON(t, http.MethodGet, "/admin/products", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"farmmarket/internal/config"
	"farmmarket/internal/domain/model"
	"farmmarket/internal/infra/cache"
	"farmmarket/internal/infra/db"
	"farmmarket/internal/server"
	"farmmarket/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testApp struct {
	URL string
	DB  *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.Config{
		GoEnv:           "test",
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		BcryptCost:      4,
		AdminUsername:   "admin",
		AdminPassword:   "adminpass1",
	}
	gdb := testutil.NewDB(t)
	require.NoError(t, db.Seed(context.Background(), gdb, cfg))

	srv := httptest.NewServer(server.NewApp(cfg, gdb, cache.Noop{}, zap.NewNop()))
	t.Cleanup(srv.Close)
	return &testApp{URL: srv.URL, DB: gdb}
}

// 1ユーザー分のクライアント（cookie付き）
type client struct {
	t     *testing.T
	base  string
	http  *http.Client
	token string
}

func (a *testApp) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: a.URL, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (c *client) doJSON(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func requireStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, want, string(body))
	}
}

func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("json.Unmarshal failed: %v body=%s", err, string(body))
	}
	return v
}

type errorBody struct {
	Error string `json:"error"`
}

type loginBody struct {
	User struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Token struct {
		AccessToken string `json:"access_token"`
	} `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *client) register(username, role string) {
	c.t.Helper()
	resp, body := c.doJSON(http.MethodPost, "/auth/register", map[string]string{
		"username":   username,
		"first_name": username,
		"last_name":  "Test",
		"password":   "password123",
		"email":      username + "@example.com",
		"role":       role,
	})
	requireStatus(c.t, resp, http.StatusCreated, body)
}

func (c *client) login(username, password string) loginBody {
	c.t.Helper()
	resp, body := c.doJSON(http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password})
	requireStatus(c.t, resp, http.StatusOK, body)
	out := mustDecode[loginBody](c.t, body)
	c.token = out.Token.AccessToken
	return out
}

func TestApp_Healthz(t *testing.T) {
	app := newTestApp(t)
	resp, body := app.client(t).doJSON(http.MethodGet, "/healthz", nil)
	requireStatus(t, resp, http.StatusOK, body)
}

func TestApp_AuthFlow(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	c.register("buyer1", "")
	resp, body := c.doJSON(http.MethodPost, "/auth/register", map[string]string{
		"username": "buyer1", "first_name": "a", "last_name": "b", "password": "password123",
	})
	requireStatus(t, resp, http.StatusConflict, body)

	resp, body = c.doJSON(http.MethodPost, "/auth/login", map[string]string{"username": "buyer1", "password": "wrong-password"})
	requireStatus(t, resp, http.StatusUnauthorized, body)

	first := c.login("buyer1", "password123")
	assert.Equal(t, "USER", first.User.Role)

	resp, body = c.doJSON(http.MethodGet, "/auth/me", nil)
	requireStatus(t, resp, http.StatusOK, body)

	//cookieのrefreshで更新
	resp, body = c.doJSON(http.MethodPost, "/auth/refresh", nil)
	requireStatus(t, resp, http.StatusOK, body)

	//古いrefreshの再利用は検知される
	other := app.client(t)
	resp, body = other.doJSON(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": first.RefreshToken})
	requireStatus(t, resp, http.StatusUnauthorized, body)
	assert.Equal(t, "refresh token reuse detected", mustDecode[errorBody](t, body).Error)

	//全て失効しているので今のcookieも使えない
	resp, body = c.doJSON(http.MethodPost, "/auth/refresh", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)
}

func TestApp_ForceLogoutInvalidatesAccessToken(t *testing.T) {
	app := newTestApp(t)
	buyer := app.client(t)
	buyer.register("buyer1", "USER")
	me := buyer.login("buyer1", "password123")

	admin := app.client(t)
	admin.login("admin", "adminpass1")

	resp, body := buyer.doJSON(http.MethodPost, fmt.Sprintf("/admin/users/%d/force-logout", me.User.ID), nil)
	requireStatus(t, resp, http.StatusForbidden, body)

	resp, body = admin.doJSON(http.MethodPost, fmt.Sprintf("/admin/users/%d/force-logout", me.User.ID), nil)
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = buyer.doJSON(http.MethodGet, "/auth/me", nil)
	requireStatus(t, resp, http.StatusUnauthorized, body)
}

func TestApp_CategoryModeration(t *testing.T) {
	app := newTestApp(t)
	farmer := app.client(t)
	farmer.register("farmer1", "FARMER")
	farmer.login("farmer1", "password123")

	resp, body := farmer.doJSON(http.MethodPost, "/categories", map[string]any{"name": "Pumpkins", "is_final": true})
	requireStatus(t, resp, http.StatusCreated, body)
	created := mustDecode[struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}](t, body)
	assert.Equal(t, "PROCESS", created.Status)

	//未承認は公開一覧に出ない
	resp, body = farmer.doJSON(http.MethodGet, fmt.Sprintf("/categories/%d", created.ID), nil)
	requireStatus(t, resp, http.StatusNotFound, body)

	resp, body = farmer.doJSON(http.MethodGet, "/categories/pending", nil)
	requireStatus(t, resp, http.StatusForbidden, body)

	admin := app.client(t)
	admin.login("admin", "adminpass1")
	resp, body = admin.doJSON(http.MethodGet, "/categories/pending", nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Len(t, mustDecode[[]map[string]any](t, body), 1)

	resp, body = admin.doJSON(http.MethodPut, fmt.Sprintf("/categories/%d/approve", created.ID), nil)
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = farmer.doJSON(http.MethodGet, fmt.Sprintf("/categories/%d", created.ID), nil)
	requireStatus(t, resp, http.StatusOK, body)

	resp, body = admin.doJSON(http.MethodGet, "/admin/audit-logs?action=APPROVE_CATEGORY", nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.EqualValues(t, 1, mustDecode[struct {
		Total int64 `json:"total"`
	}](t, body).Total)
}

func TestApp_OrderFlow(t *testing.T) {
	app := newTestApp(t)

	var tomatoes model.Category
	require.NoError(t, app.DB.Where("name = ?", "Tomatoes").First(&tomatoes).Error)
	attr := map[string]int64{}
	var attrs []model.Attribute
	require.NoError(t, app.DB.Find(&attrs).Error)
	for _, a := range attrs {
		attr[a.Name] = a.ID
	}

	farmer := app.client(t)
	farmer.register("farmer1", "FARMER")
	farmer.login("farmer1", "password123")

	//Tomatoesの実効スキーマ: Price/kg, Harvest date + 親のQuantity, Place
	resp, body := farmer.doJSON(http.MethodPost, "/products", map[string]any{
		"name":        "Cherry tomato",
		"description": "sweet",
		"category_id": tomatoes.ID,
		"attribute_values": []map[string]any{
			{"attribute_id": attr["Price/kg"], "value": "3.20"},
			{"attribute_id": attr["Quantity"], "value": "5"},
			{"attribute_id": attr["Place"], "value": "Nagano"},
			{"attribute_id": attr["Harvest date"], "value": ""},
		},
	})
	requireStatus(t, resp, http.StatusCreated, body)
	productID := mustDecode[struct {
		ID int64 `json:"id"`
	}](t, body).ID

	buyer := app.client(t)
	buyer.register("buyer1", "USER")
	buyer.login("buyer1", "password123")

	resp, body = buyer.doJSON(http.MethodPost, "/cart/items", map[string]any{"product_id": productID, "quantity": 6})
	requireStatus(t, resp, http.StatusBadRequest, body)
	assert.Equal(t, "stock exceeded", mustDecode[errorBody](t, body).Error)

	resp, body = buyer.doJSON(http.MethodPost, "/cart/items", map[string]any{"product_id": productID, "quantity": 2})
	requireStatus(t, resp, http.StatusOK, body)

	//農家はカートを使えない
	resp, body = farmer.doJSON(http.MethodGet, "/cart", nil)
	requireStatus(t, resp, http.StatusForbidden, body)

	resp, body = buyer.doJSON(http.MethodPost, "/cart/checkout", map[string]any{"address": "1 Farm Road"})
	requireStatus(t, resp, http.StatusOK, body)
	type orderBody struct {
		ID         int64  `json:"id"`
		Status     string `json:"status"`
		TotalPrice string `json:"total_price"`
		Items      []struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"items"`
	}
	order := mustDecode[orderBody](t, body)
	assert.Equal(t, "ORDERED", order.Status)
	assert.Equal(t, "6.40", order.TotalPrice)
	require.Len(t, order.Items, 1)

	resp, body = buyer.doJSON(http.MethodGet, "/orders", nil)
	requireStatus(t, resp, http.StatusOK, body)

	//在庫履歴: 初期在庫と、カート投入分
	resp, body = farmer.doJSON(http.MethodGet, fmt.Sprintf("/products/%d/stock-movements", productID), nil)
	requireStatus(t, resp, http.StatusOK, body)
	type movementBody struct {
		Items []struct {
			Delta  int64  `json:"delta"`
			Reason string `json:"reason"`
		} `json:"items"`
	}
	movements := mustDecode[movementBody](t, body).Items
	require.Len(t, movements, 2)
	assert.Equal(t, int64(-2), movements[0].Delta)
	assert.Equal(t, "CART_ADD", movements[0].Reason)
	assert.Equal(t, int64(5), movements[1].Delta)

	resp, body = buyer.doJSON(http.MethodGet, fmt.Sprintf("/products/%d/stock-movements", productID), nil)
	requireStatus(t, resp, http.StatusForbidden, body)

	resp, body = farmer.doJSON(http.MethodGet, "/farmer/order-items?status=UNCONFIRMED", nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Len(t, mustDecode[[]map[string]any](t, body), 1)

	resp, body = farmer.doJSON(http.MethodPut, fmt.Sprintf("/farmer/order-items/%d/advance", order.Items[0].ID), nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Equal(t, "CONFIRMED", mustDecode[struct {
		Status string `json:"status"`
	}](t, body).Status)

	resp, body = buyer.doJSON(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.Equal(t, "CONFIRMED", mustDecode[orderBody](t, body).Items[0].Status)

	admin := app.client(t)
	admin.login("admin", "adminpass1")
	resp, body = admin.doJSON(http.MethodGet, "/admin/orders?status=ORDERED", nil)
	requireStatus(t, resp, http.StatusOK, body)
	assert.EqualValues(t, 1, mustDecode[struct {
		Total int64 `json:"total"`
	}](t, body).Total)
}

func TestApp_RequiresAuth(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	for _, path := range []string{"/cart", "/orders", "/auth/me", "/admin/orders", "/admin/audit-logs"} {
		resp, body := c.doJSON(http.MethodGet, path, nil)
		requireStatus(t, resp, http.StatusUnauthorized, body)
	}
}

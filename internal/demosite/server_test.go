package demosite

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(DefaultCatalog(), arbor.NewLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func login(t *testing.T, client *http.Client, baseURL, username, password string) *http.Response {
	t.Helper()
	resp, err := client.PostForm(baseURL+"/login", url.Values{
		"user-name": {username},
		"password":  {password},
	})
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func addToCart(t *testing.T, client *http.Client, baseURL, slug string) (int, CartResponse) {
	t.Helper()
	resp, err := client.Post(baseURL+"/api/cart/add", "application/json", strings.NewReader(`{"slug":"`+slug+`"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var cart CartResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cart))
	}
	return resp.StatusCode, cart
}

func TestLoginPageHasFormFields(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := document(t, resp)
	assert.Equal(t, 1, doc.Find(`[data-test="username"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-test="password"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-test="login-button"]`).Length())
	assert.Equal(t, 0, doc.Find(`[data-test="error"]`).Length())
}

func TestLoginLandsOnInventory(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)

	resp := login(t, client, ts.URL, "standard_user", "secret_sauce")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasSuffix(resp.Request.URL.Path, "/inventory.html"))

	doc := document(t, resp)
	assert.Equal(t, "Products", doc.Find(".title").Text())
	assert.Equal(t, 6, doc.Find(".inventory_list .inventory_item").Length())
	assert.Equal(t, 6, doc.Find(".inventory_item_name").Length())
	assert.Equal(t, "Sauce Labs Backpack", doc.Find(".inventory_item_name").First().Text())
	assert.Equal(t, 0, doc.Find(".shopping_cart_badge").Length(), "badge is hidden with an empty cart")

	button := doc.Find(`[data-test="add-to-cart-sauce-labs-backpack"]`)
	require.Equal(t, 1, button.Length())
	assert.Equal(t, "Add to cart", strings.TrimSpace(button.Text()))
	assert.Equal(t, 1, doc.Find(`[data-test="add-to-cart-sauce-labs-bike-light"]`).Length())
}

func TestLoginRejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		username string
		password string
		want     string
	}{
		{"wrong password", "standard_user", "nope", ErrMismatch},
		{"unknown user", "nobody", "secret_sauce", ErrMismatch},
		{"locked user", "locked_out_user", "secret_sauce", ErrLocked},
		{"missing username", "", "secret_sauce", ErrUsername},
		{"missing password", "standard_user", "", ErrPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := login(t, newClient(t), ts.URL, tt.username, tt.password)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			doc := document(t, resp)
			assert.Equal(t, tt.want, doc.Find(`[data-test="error"]`).Text())
		})
	}
}

func TestInventoryRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := newClient(t).Get(ts.URL + "/inventory.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "/", resp.Request.URL.Path)
	doc := document(t, resp)
	assert.Equal(t, ErrNoSession, doc.Find(`[data-test="error"]`).Text())
}

func TestCartAddCountsDistinctProducts(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL, "standard_user", "secret_sauce")

	status, cart := addToCart(t, client, ts.URL, "sauce-labs-backpack")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, cart.Count)

	status, cart = addToCart(t, client, ts.URL, "sauce-labs-bike-light")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, cart.Count)
	assert.Equal(t, []string{"sauce-labs-backpack", "sauce-labs-bike-light"}, cart.Items)

	// Adding the same product again does not change the count
	_, cart = addToCart(t, client, ts.URL, "sauce-labs-backpack")
	assert.Equal(t, 2, cart.Count)

	resp, err := client.Get(ts.URL + "/inventory.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	doc := document(t, resp)
	assert.Equal(t, "2", doc.Find(".shopping_cart_badge").Text())
	assert.Equal(t, 1, doc.Find(`[data-test="remove-sauce-labs-backpack"]`).Length())
	assert.Equal(t, 0, doc.Find(`[data-test="add-to-cart-sauce-labs-backpack"]`).Length())
}

func TestCartIsPerSession(t *testing.T) {
	ts := newTestServer(t)

	first := newClient(t)
	login(t, first, ts.URL, "standard_user", "secret_sauce")
	_, cart := addToCart(t, first, ts.URL, "sauce-labs-backpack")
	require.Equal(t, 1, cart.Count)

	second := newClient(t)
	login(t, second, ts.URL, "standard_user", "secret_sauce")
	_, cart = addToCart(t, second, ts.URL, "sauce-labs-onesie")
	assert.Equal(t, 1, cart.Count)
	assert.Equal(t, []string{"sauce-labs-onesie"}, cart.Items)
}

func TestCartRemove(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL, "standard_user", "secret_sauce")
	addToCart(t, client, ts.URL, "sauce-labs-backpack")

	resp, err := client.Post(ts.URL+"/api/cart/remove", "application/json", strings.NewReader(`{"slug":"sauce-labs-backpack"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cart CartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cart))
	assert.Equal(t, 0, cart.Count)
	assert.Empty(t, cart.Items)
}

func TestCartErrors(t *testing.T) {
	ts := newTestServer(t)

	t.Run("no session", func(t *testing.T) {
		status, _ := addToCart(t, newClient(t), ts.URL, "sauce-labs-backpack")
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("unknown product", func(t *testing.T) {
		client := newClient(t)
		login(t, client, ts.URL, "standard_user", "secret_sauce")
		status, _ := addToCart(t, client, ts.URL, "no-such-product")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/cart/add")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL, "standard_user", "secret_sauce")

	resp, err := client.Post(ts.URL+"/logout", "", nil)
	require.NoError(t, err)
	resp.Body.Close()

	status, _ := addToCart(t, client, ts.URL, "sauce-labs-backpack")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(6), body["products"])
}

func TestUnknownPathIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/cart.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeAndShutdown(t *testing.T) {
	srv, err := New(DefaultCatalog(), arbor.NewLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-errCh)
}

package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerRoute binds a route without a browser; the network domain is
// treated as already enabled
func registerRoute(t *testing.T, p *Page, method, pattern, name string) {
	t.Helper()
	p.mu.Lock()
	p.network = true
	p.mu.Unlock()
	require.NoError(t, p.Intercept(method, pattern).As(name).Do(context.Background()))
}

func sendRequest(p *Page, id, method, url string) {
	p.onEvent(&network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		Request:   &network.Request{Method: method, URL: url},
	})
}

func receiveResponse(p *Page, id string, status int64) {
	p.onEvent(&network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Response:  &network.Response{Status: status, StatusText: "OK", MimeType: "application/json"},
	})
}

func TestWaitReturnsMatchingResponse(t *testing.T) {
	p := newOfflinePage()
	registerRoute(t, p, "POST", "**/cart/**", "addToCart")

	sendRequest(p, "1", "GET", "http://localhost/inventory.html")
	sendRequest(p, "2", "POST", "http://localhost/api/cart/add")
	receiveResponse(p, "1", 200)
	receiveResponse(p, "2", 200)

	ex, err := p.wait(context.Background(), "@addToCart")
	require.NoError(t, err)
	assert.Equal(t, "POST", ex.Method)
	assert.Equal(t, "http://localhost/api/cart/add", ex.URL)
	assert.Equal(t, 200, ex.StatusCode)
}

func TestWaitBlocksUntilResponse(t *testing.T) {
	p := newOfflinePage()
	p.opts.ResponseTimeout = 5 * time.Second
	registerRoute(t, p, "POST", "**/cart/**", "addItem")

	go func() {
		time.Sleep(20 * time.Millisecond)
		sendRequest(p, "7", "POST", "http://localhost/api/cart/add")
		time.Sleep(20 * time.Millisecond)
		receiveResponse(p, "7", 200)
	}()

	err := p.Wait("addItem").ShouldHaveStatus(200).Do(context.Background())
	assert.NoError(t, err)
}

func TestWaitsConsumeExchangesInOrder(t *testing.T) {
	p := newOfflinePage()
	registerRoute(t, p, "POST", "**/cart/**", "cart")

	sendRequest(p, "1", "POST", "http://localhost/api/cart/add")
	sendRequest(p, "2", "POST", "http://localhost/api/cart/remove")
	receiveResponse(p, "2", 404)
	receiveResponse(p, "1", 200)

	first, err := p.wait(context.Background(), "cart")
	require.NoError(t, err)
	second, err := p.wait(context.Background(), "cart")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost/api/cart/add", first.URL)
	assert.Equal(t, 200, first.StatusCode)
	assert.Equal(t, "http://localhost/api/cart/remove", second.URL)
	assert.Equal(t, 404, second.StatusCode)
}

func TestWaitStatusMismatchIsAssertion(t *testing.T) {
	p := newOfflinePage()
	registerRoute(t, p, "POST", "**/cart/**", "addToCart")
	sendRequest(p, "1", "POST", "http://localhost/api/cart/add")
	receiveResponse(p, "1", 500)

	err := p.Wait("addToCart").ShouldHaveStatus(200).Do(context.Background())
	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, "@addToCart response.statusCode", assertErr.Subject)
}

func TestWaitWithoutRequestTimesOut(t *testing.T) {
	p := newOfflinePage()
	registerRoute(t, p, "POST", "**/cart/**", "addToCart")

	// Wrong method and wrong path are not captured
	sendRequest(p, "1", "GET", "http://localhost/api/cart/add")
	sendRequest(p, "2", "POST", "http://localhost/api/checkout")

	_, err := p.wait(context.Background(), "addToCart")
	var timeoutErr *InterceptTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "request", timeoutErr.Phase)
	assert.Equal(t, 1, timeoutErr.Ordinal)
	assert.Contains(t, err.Error(), "no intercepted request observed")
}

func TestWaitWithoutResponseTimesOut(t *testing.T) {
	p := newOfflinePage()
	registerRoute(t, p, "POST", "**/cart/**", "addToCart")
	sendRequest(p, "1", "POST", "http://localhost/api/cart/add")

	_, err := p.wait(context.Background(), "addToCart")
	var timeoutErr *InterceptTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "response", timeoutErr.Phase)
}

func TestRequestsBeforeRegistrationAreNotCaptured(t *testing.T) {
	p := newOfflinePage()
	sendRequest(p, "1", "POST", "http://localhost/api/cart/add")
	receiveResponse(p, "1", 200)

	registerRoute(t, p, "POST", "**/cart/**", "addToCart")

	_, err := p.wait(context.Background(), "addToCart")
	var timeoutErr *InterceptTimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestFailedRequestSurfacesError(t *testing.T) {
	p := newOfflinePage()
	registerRoute(t, p, "POST", "**/cart/**", "addToCart")
	sendRequest(p, "1", "POST", "http://localhost/api/cart/add")
	p.onEvent(&network.EventLoadingFailed{RequestID: "1", ErrorText: "net::ERR_CONNECTION_REFUSED"})

	_, err := p.wait(context.Background(), "addToCart")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_CONNECTION_REFUSED")
}

func TestWaitUnknownAlias(t *testing.T) {
	p := newOfflinePage()
	_, err := p.wait(context.Background(), "nothing")
	var aliasErr *AliasError
	assert.ErrorAs(t, err, &aliasErr)
}

func TestInterceptNormalisesMethod(t *testing.T) {
	p := newOfflinePage()
	route := p.Intercept("post", "**/cart/**")
	assert.Equal(t, "POST", route.method)
}

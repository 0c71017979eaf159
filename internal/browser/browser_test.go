package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newOfflinePage() *Page {
	opts := Options{BaseURL: "http://localhost/", RequestTimeout: 200 * time.Millisecond, ResponseTimeout: 200 * time.Millisecond}
	return newPage(context.Background(), "offline", opts.withDefaults(), arbor.NewLogger())
}

func TestCompileGlob(t *testing.T) {
	tests := []struct {
		pattern string
		url     string
		match   bool
	}{
		{"**/cart/**", "https://www.saucedemo.com/api/cart/add", true},
		{"**/cart/**", "http://127.0.0.1:4321/cart/", true},
		{"**/cart/**", "https://www.saucedemo.com/cart.html", false},
		{"**/cart/**", "https://www.saucedemo.com/api/carts/add", false},
		{"https://*.com/*", "https://www.saucedemo.com/inventory.html", true},
		{"https://*.com/*", "https://www.saucedemo.com/a/b", false},
		{"**/item?.js", "http://x/item1.js", true},
		{"**/item?.js", "http://x/item/.js", false},
		{"**/a+b", "http://x/a+b", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.url, func(t *testing.T) {
			re, err := compileGlob(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.match, re.MatchString(tt.url))
		})
	}
}

func TestMethodMatches(t *testing.T) {
	assert.True(t, methodMatches("POST", "post"))
	assert.True(t, methodMatches("", "GET"))
	assert.True(t, methodMatches("*", "DELETE"))
	assert.False(t, methodMatches("POST", "GET"))
}

func TestQueryString(t *testing.T) {
	p := newOfflinePage()

	assert.Equal(t, `get(".inventory_item").first()`, p.Get(".inventory_item").First().String())
	assert.Equal(t, `get(".inventory_list").find(".inventory_item").eq(-1)`, p.Get(".inventory_list").Find(".inventory_item").Eq(-1).String())
	assert.Equal(t, `contains("Sauce Labs Backpack")`, p.Contains("Sauce Labs Backpack").String())
	assert.Equal(t, `@products.last()`, p.Alias("@products").Last().String())
}

func TestQueryIsImmutable(t *testing.T) {
	p := newOfflinePage()
	base := p.Get(".inventory_item")
	first := base.First()
	last := base.Last()

	assert.Len(t, base.steps, 1)
	assert.Equal(t, opFirst, first.steps[1].Op)
	assert.Equal(t, opLast, last.steps[1].Op)
}

func TestAliasResolution(t *testing.T) {
	ctx := context.Background()
	p := newOfflinePage()

	// Binding does not touch the browser
	require.NoError(t, p.Get(".inventory_item").WithTimeout(10*time.Second).As("products").Do(ctx))
	require.NoError(t, p.Alias("products").First().As("first").Do(ctx))

	steps, timeout, err := p.Alias("first").Find("button").resolve()
	require.NoError(t, err)
	assert.Equal(t, []step{
		{Op: opGet, Sel: ".inventory_item"},
		{Op: opFirst},
		{Op: opFind, Sel: "button"},
	}, steps)
	assert.Equal(t, 10*time.Second, timeout, "the bound query's timeout carries through")

	_, timeout, err = p.Get(".title").resolve()
	require.NoError(t, err)
	assert.Equal(t, p.opts.DefaultTimeout, timeout)
}

func TestAliasErrors(t *testing.T) {
	ctx := context.Background()
	p := newOfflinePage()

	_, _, err := p.Alias("missing").resolve()
	var aliasErr *AliasError
	require.ErrorAs(t, err, &aliasErr)
	assert.Equal(t, "missing", aliasErr.Name)

	// Binding through an unknown alias fails at bind time
	err = p.Alias("missing").As("other").Do(ctx)
	require.ErrorAs(t, err, &aliasErr)

	// A cycle is reported instead of looping
	p.bindAlias("a", p.Alias("b"))
	p.bindAlias("b", p.Alias("a"))
	_, _, err = p.Alias("a").resolve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refers to itself")
}

func TestAliasesArePerPage(t *testing.T) {
	ctx := context.Background()
	first := newOfflinePage()
	second := newOfflinePage()

	require.NoError(t, first.Get(".inventory_item").As("products").Do(ctx))
	_, _, err := second.Alias("products").resolve()
	assert.Error(t, err)
}

func TestAssertionErrorMessage(t *testing.T) {
	err := &AssertionError{
		Subject:   `get(".shopping_cart_badge")`,
		Assertion: "have text",
		Expected:  `"2"`,
		Actual:    `"1"`,
		Timeout:   4 * time.Second,
	}
	assert.Equal(t, `timed out retrying after 4s: expected get(".shopping_cart_badge") to have text "2", but got "1"`, err.Error())
	assert.Equal(t, FailureAssertion, err.FailureKind())

	cause := errors.New("execution context was destroyed")
	err.Cause = cause
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "last error")
}

func TestExpectEqual(t *testing.T) {
	assert.NoError(t, ExpectEqual("@products length", 6, 6))

	err := ExpectEqual("@addToCart response.statusCode", 200, 404)
	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, "expected @addToCart response.statusCode to equal 200, but got 404", err.Error())
}

func TestInterceptTimeoutErrorMessage(t *testing.T) {
	err := &InterceptTimeoutError{Alias: "addToCart", Method: "POST", Pattern: "**/cart/**", Phase: "request", Ordinal: 1, Timeout: 5 * time.Second}
	assert.True(t, strings.HasSuffix(err.Error(), "no intercepted request observed"))
	assert.Equal(t, FailureInterceptTimeout, err.FailureKind())

	err.Phase = "response"
	assert.Contains(t, err.Error(), "waiting for the response")
}

func TestAssertionChecks(t *testing.T) {
	visible := Element{Tag: "div", Text: "Products", Classes: []string{"title"}, Attrs: map[string]string{"data-test": "title"}, Visible: true}
	hidden := Element{Tag: "div", Visible: false}

	tests := []struct {
		name   string
		a      assertion
		els    Elements
		ok     bool
		actual string
	}{
		{"exist empty", assertExist(), nil, false, "0 elements"},
		{"exist one", assertExist(), Elements{visible}, true, "1 element"},
		{"not exist", assertNotExist(), nil, true, "0 elements"},
		{"not exist fails", assertNotExist(), Elements{visible, visible}, false, "2 elements"},
		{"visible", assertVisible(), Elements{visible}, true, "1 element visible"},
		{"visible with hidden", assertVisible(), Elements{visible, hidden}, false, "1 of 2 elements hidden"},
		{"visible empty", assertVisible(), nil, false, "no elements"},
		{"length", assertLength(6), make(Elements, 6), true, "6"},
		{"length mismatch", assertLength(6), make(Elements, 5), false, "5"},
		{"text", assertText("Products"), Elements{visible}, true, `"Products"`},
		{"text concatenates", assertText("ab"), Elements{{Text: "a"}, {Text: "b"}}, true, `"ab"`},
		{"attr", assertAttr("data-test", "title"), Elements{visible}, true, `data-test="title"`},
		{"attr missing", assertAttr("name", "x"), Elements{visible}, false, "no name attribute"},
		{"class", assertClass("title"), Elements{visible}, true, `"title"`},
		{"class missing", assertClass("other"), Elements{visible}, false, `classes "title"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, actual := tt.a.check(tt.els)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.actual, actual)
		})
	}
}

func TestScriptsEmbedSteps(t *testing.T) {
	script, err := snapshotScript([]step{{Op: opGet, Sel: `[data-test="username"]`}})
	require.NoError(t, err)
	assert.Contains(t, script, `"sel":"[data-test=\"username\"]"`)

	script, err = markScript([]step{{Op: opGet, Sel: "button"}}, "ref-1")
	require.NoError(t, err)
	assert.Contains(t, script, refAttribute)
	assert.Contains(t, script, `"ref-1"`)

	assert.Equal(t, `[data-saucedemo-ref="ref-1"]`, refSelector("ref-1"))
	assert.Equal(t, `(() => "localStorage" in window)()`, propertyScript("localStorage"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "should_use_chaining_and_aliases", sanitizeName("should use chaining and aliases"))
	assert.Equal(t, "a_b-c", sanitizeName("A/b-C"))
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, 4*time.Second, opts.DefaultTimeout)
	assert.Equal(t, 5*time.Second, opts.RequestTimeout)
	assert.Equal(t, 30*time.Second, opts.ResponseTimeout)
	assert.Equal(t, DefaultPollInterval, opts.PollInterval)
	assert.Equal(t, 1280, opts.WindowWidth)
}

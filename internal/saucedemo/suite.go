// Package saucedemo declares the storefront suite: login before every case,
// then navigation, querying, cart actions, assertions, aliases and network
// waits against the inventory page.
package saucedemo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/saucedemo/internal/browser"
	"github.com/ternarybob/saucedemo/internal/common"
	"github.com/ternarybob/saucedemo/internal/suite"
)

// Name is the suite name used in reports and logs
const Name = "SauceDemo"

// ExplicitWait bounds the explicit wait case
const ExplicitWait = 10 * time.Second

// PageOpener creates the isolated page each case runs against
type PageOpener interface {
	NewPage(name string) (*browser.Page, func(), error)
}

// New declares the suite. Pages come from opener; credentials and screenshot
// behaviour come from config.
func New(config *common.Config, opener PageOpener, logger arbor.ILogger) *suite.Suite[*browser.Page] {
	creds := config.Credentials
	screenshots := config.Run.ScreenshotsOnFailure

	return &suite.Suite[*browser.Page]{
		Name: Name,

		Open: func(ctx context.Context, info suite.CaseInfo) (*browser.Page, func(), error) {
			return opener.NewPage(info.Name)
		},

		BeforeAll: func(ctx context.Context) error {
			logger.Info().Str("suite", Name).Msg("Runs once before all tests")
			return nil
		},

		BeforeEach: func(ctx context.Context, p *browser.Page) error {
			for _, step := range loginSteps(p, creds) {
				if err := p.Run(ctx, step.action); err != nil {
					return fmt.Errorf("login %s: %w", step.name, err)
				}
			}
			return nil
		},

		AfterEach: func(ctx context.Context, p *browser.Page) error {
			return p.Run(ctx, p.Log("Runs after each test"))
		},

		AfterAll: func(ctx context.Context) error {
			logger.Info().Str("suite", Name).Msg("Runs once after all tests")
			return nil
		},

		OnFailure: func(ctx context.Context, p *browser.Page, info suite.CaseInfo, err error) string {
			if !screenshots {
				return ""
			}
			path, shotErr := p.SaveScreenshot(ctx, info.Name)
			if shotErr != nil {
				logger.Warn().Err(shotErr).Str("case", info.Name).Msg("Failed to capture failure screenshot")
				return ""
			}
			logger.Info().Str("case", info.Name).Str("path", path).Msg("Failure screenshot saved")
			return path
		},

		Cases: Cases(),
	}
}

// loginStep is one named action of the login fixture
type loginStep struct {
	name   string
	action chromedp.Action
}

// loginSteps submits the credentials and waits for the inventory page. A click
// only dispatches input events, so the fixture is not complete until the
// landing page has rendered.
func loginSteps(p *browser.Page, creds common.CredentialsConfig) []loginStep {
	return []loginStep{
		{"visit", p.Visit("")},
		{"type username", p.Get(UsernameInput).Type(creds.Username)},
		{"type password", p.Get(PasswordInput).Type(creds.Password)},
		{"submit", p.Get(LoginButton).Click()},
		{"await landing url", p.URL().ShouldInclude(LandingPath)},
		{"await inventory", p.Get(InventoryList).ShouldExist()},
	}
}

// Cases lists the declared cases in order
func Cases() []suite.Case[*browser.Page] {
	return []suite.Case[*browser.Page]{
		{Name: "should navigate and control browser", Run: navigateAndControl},
		{Name: "should find elements using different queries", Run: findElements},
		{Name: "should perform user actions", Run: userActions},
		{Name: "should check assertions", Run: checkAssertions},
		{Name: "should wait for a network request", Run: networkWait("addToCart", Backpack)},
		{Name: "should use chaining and aliases", Run: chainingAndAliases},
		{Name: "implicit wait example", Run: implicitWait},
		{Name: "explicit wait example", Run: explicitWait},
		{Name: "network wait example", Run: networkWait("addItem", BikeLight)},
		{Name: "this test will run only", Mode: suite.ExclusiveOnly, Run: implicitWait},
		{Name: "this test will be skipped", Mode: suite.Skipped, Run: inventoryAbsent},
	}
}

func navigateAndControl(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx,
		p.Reload(),
		p.Back(),
		p.Forward(),
		p.Viewport(800, 600),
	)
}

func findElements(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx,
		p.Get(InventoryItem).First().ShouldBeVisible(),
		p.Get(InventoryItem).Last().ShouldBeVisible(),
		p.Contains("Sauce Labs Backpack").ShouldExist(),
		p.Get(InventoryList).Find(InventoryItem).ShouldHaveLength(ItemCount),
	)
}

func userActions(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx,
		p.Get(AddToCart(Backpack)).Click(),
		p.Get(AddToCart(BikeLight)).Click(),
		p.Get(CartBadge).ShouldHaveText("2"),
	)
}

func checkAssertions(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx,
		// Existence and visibility
		p.Get(Title).ShouldExist(),
		p.Get(Title).ShouldBeVisible(),

		p.Get(Title).ShouldHaveText("Products"),
		p.Get(AddToCart(Backpack)).ShouldHaveAttr("data-test", AddToCartID(Backpack)),
		p.Get(ItemName).First().ShouldHaveClass("inventory_item_name"),
		p.URL().ShouldInclude(LandingPath),
		p.Window().ShouldHaveProperty("localStorage"),
	)
}

// networkWait registers the cart route before clicking so the request is captured
func networkWait(alias, slug string) func(ctx context.Context, p *browser.Page) error {
	return func(ctx context.Context, p *browser.Page) error {
		return p.Run(ctx,
			p.Intercept("POST", CartRoute).As(alias),
			p.Get(AddToCart(slug)).Click(),
			p.Wait(alias).ShouldHaveStatus(200),
		)
	}
}

func chainingAndAliases(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx,
		p.Get(InventoryItem).As("products"),
		p.Alias("products").ShouldHaveLength(ItemCount),

		p.Alias("products").First().Within(func(in *browser.Scope) chromedp.Tasks {
			return chromedp.Tasks{in.Get("button").Click()}
		}),

		p.Get(CartBadge).ShouldHaveText("1"),

		p.Alias("products").Then(func(items browser.Elements) error {
			return browser.ExpectEqual("@products length", ItemCount, len(items))
		}),
	)
}

func implicitWait(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx, p.Get(InventoryItem).ShouldHaveLength(ItemCount))
}

func explicitWait(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx, p.Get(InventoryItem).WithTimeout(ExplicitWait).ShouldBeVisible())
}

// inventoryAbsent contradicts the login fixture; the case using it is marked skip
func inventoryAbsent(ctx context.Context, p *browser.Page) error {
	return p.Run(ctx, p.Get(InventoryItem).ShouldNotExist())
}

// RunOptions builds the engine options for a run from config
func RunOptions(config *common.Config, logger arbor.ILogger, runID string, observers ...suite.Observer) (suite.Options, error) {
	selectOpts, err := SelectOptions(config)
	if err != nil {
		return suite.Options{}, err
	}
	return suite.Options{
		Select:      selectOpts,
		CaseTimeout: config.Timeouts().Case,
		RunID:       runID,
		Logger:      logger,
		Observers:   observers,
	}, nil
}

// SelectOptions builds the case selection for config
func SelectOptions(config *common.Config) (suite.SelectOptions, error) {
	opts := suite.SelectOptions{HonorExclusive: config.Run.HonorExclusive}
	if config.Run.Grep != "" {
		re, err := regexp.Compile(config.Run.Grep)
		if err != nil {
			return suite.SelectOptions{}, fmt.Errorf("invalid grep pattern %q: %w", config.Run.Grep, err)
		}
		opts.Grep = re
	}
	return opts, nil
}

// Describe renders a case for listings, e.g. "4. should check assertions [normal]"
func Describe(info suite.CaseInfo) string {
	return fmt.Sprintf("%d. %s [%s]", info.Index+1, info.Name, info.Mode)
}

// Plan returns the selection config makes over the declared cases without
// opening a browser
func Plan(config *common.Config) ([]suite.Selection, error) {
	opts, err := SelectOptions(config)
	if err != nil {
		return nil, err
	}
	declared := suite.Suite[*browser.Page]{Cases: Cases()}
	return suite.Select(declared.Infos(), opts), nil
}

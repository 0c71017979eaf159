package saucedemo

import "fmt"

// Selectors shared by the storefront and the replica served by internal/demosite
const (
	UsernameInput = `[data-test="username"]`
	PasswordInput = `[data-test="password"]`
	LoginButton   = `[data-test="login-button"]`

	InventoryList = ".inventory_list"
	InventoryItem = ".inventory_item"
	ItemName      = ".inventory_item_name"
	Title         = ".title"
	CartBadge     = ".shopping_cart_badge"
)

// Product slugs used by the cart cases
const (
	Backpack  = "sauce-labs-backpack"
	BikeLight = "sauce-labs-bike-light"
)

// LandingPath is where a successful login lands
const LandingPath = "/inventory.html"

// CartRoute matches the request an add-to-cart click issues
const CartRoute = "**/cart/**"

// ItemCount is the number of products listed after login
const ItemCount = 6

// AddToCartID is the data-test value of a product's add-to-cart control
func AddToCartID(slug string) string {
	return "add-to-cart-" + slug
}

// AddToCart selects a product's add-to-cart control
func AddToCart(slug string) string {
	return fmt.Sprintf(`[data-test="%s"]`, AddToCartID(slug))
}

package demosite

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed catalog.toml
var embeddedCatalog []byte

// Product is one inventory entry
type Product struct {
	Slug        string `toml:"slug"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Price       string `toml:"price"`
}

// User is an account the login form accepts
type User struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Locked   bool   `toml:"locked"`
}

// Catalog is the storefront's static data
type Catalog struct {
	Products []Product `toml:"products"`
	Users    []User    `toml:"users"`
}

// LoadCatalog loads the catalog with resolution order:
// 1. User override: path (when non-empty and present)
// 2. Embedded default: internal/demosite/catalog.toml
func LoadCatalog(path string) (*Catalog, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
		return parseCatalog(data)
	}
	return parseCatalog(embeddedCatalog)
}

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(embeddedCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}
	seen := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		if p.Slug == "" {
			return nil, fmt.Errorf("catalog product %q has no slug", p.Name)
		}
		if seen[p.Slug] {
			return nil, fmt.Errorf("catalog product slug %q is duplicated", p.Slug)
		}
		seen[p.Slug] = true
	}
	return &c, nil
}

func (c *Catalog) product(slug string) (Product, bool) {
	for _, p := range c.Products {
		if p.Slug == slug {
			return p, true
		}
	}
	return Product{}, false
}

func (c *Catalog) user(username string) (User, bool) {
	for _, u := range c.Users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Package menu is the read-only catalog collaborator. The core looks up
// products for cart additions and free-item promotions; it never mutates
// menu data.
package menu

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"pizzeria-system/internal/domain"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Ingredients []string        `json:"ingredients,omitempty"`
	Allergens   []string        `json:"allergens,omitempty"`
	Popular     bool            `json:"popular,omitempty"`
	New         bool            `json:"new,omitempty"`
	Vegan       bool            `json:"vegan,omitempty"`
}

type Category struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}

type Menu struct {
	Restaurant struct {
		Name  string `json:"name"`
		Phone string `json:"phone,omitempty"`
	} `json:"restaurant"`
	Categories []Category `json:"categories"`

	byKey map[string]Product // category|id
}

func Load(path string) (*Menu, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu %s: %w", path, err)
	}
	var m Menu
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode menu %s: %w", path, err)
	}
	m.index()
	return &m, nil
}

// Empty returns a menu with no categories, the fallback when the catalog
// file is missing. The flow degrades rather than failing startup.
func Empty() *Menu {
	m := &Menu{}
	m.index()
	return m
}

func (m *Menu) index() {
	m.byKey = make(map[string]Product)
	for _, c := range m.Categories {
		cat := c.ID
		if cat == "" {
			cat = domain.DefaultCategory
		}
		for _, p := range c.Products {
			m.byKey[key(cat, p.ID)] = p
		}
	}
}

// Product finds a product by category and id; category falls back to the
// default when empty.
func (m *Menu) Product(category, id string) (Product, bool) {
	if category == "" {
		category = domain.DefaultCategory
	}
	p, ok := m.byKey[key(category, id)]
	return p, ok
}

// FindByID scans all categories for the first product with the given id.
// Used by promotions, which reference products without a category.
func (m *Menu) FindByID(id string) (Product, bool) {
	for _, c := range m.Categories {
		for _, p := range c.Products {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Product{}, false
}

func key(category, id string) string {
	return strings.ToLower(category) + "|" + strings.ToLower(id)
}

package menu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuJSON = `{
  "restaurant": {"name": "Ciao Pizza"},
  "categories": [
    {"id": "pizze", "name": "Pizze", "products": [
      {"id": "pizza_margherita", "name": "Pizza Margherita", "price": 8.5},
      {"id": "pizza_speciale", "name": "Pizza Speciale", "price": 11.0}
    ]},
    {"id": "bevande", "name": "Bevande", "products": [
      {"id": "cola", "name": "Cola", "price": 3.0}
    ]}
  ]
}`

func loadTestMenu(t *testing.T) *Menu {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, os.WriteFile(path, []byte(menuJSON), 0o644))
	m, err := Load(path)
	require.NoError(t, err)
	return m
}

func TestLoad(t *testing.T) {
	m := loadTestMenu(t)
	assert.Equal(t, "Ciao Pizza", m.Restaurant.Name)
	assert.Len(t, m.Categories, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestProductLookup(t *testing.T) {
	m := loadTestMenu(t)

	p, ok := m.Product("pizze", "pizza_margherita")
	require.True(t, ok)
	assert.Equal(t, "8.5", p.Price.String())

	// category and id match case-insensitively
	_, ok = m.Product("PIZZE", "Pizza_Margherita")
	assert.True(t, ok)

	_, ok = m.Product("pizze", "cola")
	assert.False(t, ok)
}

func TestFindByID(t *testing.T) {
	m := loadTestMenu(t)

	p, ok := m.FindByID("cola")
	require.True(t, ok)
	assert.Equal(t, "Cola", p.Name)

	_, ok = m.FindByID("sushi")
	assert.False(t, ok)
}

func TestEmpty(t *testing.T) {
	m := Empty()
	_, ok := m.Product("pizze", "pizza_margherita")
	assert.False(t, ok)
	_, ok = m.FindByID("anything")
	assert.False(t, ok)
}

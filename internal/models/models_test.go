package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleStaff.Valid())
	assert.False(t, Role("owner").Valid())
	assert.False(t, Role("").Valid())
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "s3cret-pasS"))
}

func TestUserJSONOmitsHash(t *testing.T) {
	body, err := json.Marshal(User{Username: "u", PasswordHash: "hash", Role: RoleStaff})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "hash")
}

func TestProductPricesAreNumbers(t *testing.T) {
	body, err := json.Marshal(Product{Price: decimal.RequireFromString("12.50")})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"price":12.5`)
}

package coffee

import (
	"encoding/json"
	"testing"

	"coffee-backend/data-models/common"
	"coffee-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpdateInput(t *testing.T, raw string) *UpdateCoffeeInput {
	t.Helper()
	in := &UpdateCoffeeInput{CoffeeID: 1, RawBody: []byte(raw)}
	require.NoError(t, json.Unmarshal([]byte(raw), &in.Body))
	return in
}

func TestUpdateCoffeeInput_Changes(t *testing.T) {
	t.Run("只包含出現的欄位", func(t *testing.T) {
		in := newUpdateInput(t, `{"coffee_name": "Finca", "size_g": 500, "open_date": "2024-03-10"}`)

		changes, err := in.Changes()

		require.NoError(t, err)
		assert.Len(t, changes, 3)
		assert.Equal(t, "Finca", changes["coffee_name"])
		assert.Equal(t, 500, changes["size_g"])
		assert.Equal(t, model.NewDate(2024, 3, 10), changes["open_date"])
	})

	t.Run("可為空欄位設為 null", func(t *testing.T) {
		in := newUpdateInput(t, `{"price": null, "roast_date": null}`)

		changes, err := in.Changes()

		require.NoError(t, err)
		assert.Contains(t, changes, "price")
		assert.Nil(t, changes["price"])
		assert.Nil(t, changes["roast_date"])
	})

	t.Run("必填欄位不可為 null", func(t *testing.T) {
		in := newUpdateInput(t, `{"coffee_name": null}`)

		_, err := in.Changes()

		assert.ErrorIs(t, err, common.ErrNullField)
	})

	t.Run("空物件沒有變更", func(t *testing.T) {
		in := newUpdateInput(t, `{}`)

		changes, err := in.Changes()

		require.NoError(t, err)
		assert.Empty(t, changes)
	})
}

func TestCreateCoffeeInput_ToModel(t *testing.T) {
	roast := "2024-03-01"
	price := 14.5
	in := &CreateCoffeeInput{Body: CoffeeBody{
		RoastingFacility: "Bonanza",
		CoffeeName:       "Gotiti",
		SizeG:            250,
		RoastDate:        &roast,
		Price:            &price,
	}}

	coffee, err := in.ToModel()

	require.NoError(t, err)
	require.NotNil(t, coffee.RoastDate)
	assert.Equal(t, "2024-03-01", coffee.RoastDate.String())
	assert.Nil(t, coffee.OpenDate)
	assert.Nil(t, coffee.CountryOfOrigin)
	assert.Equal(t, 14.5, *coffee.Price)
}

func TestCreateCoffeeInput_ToModel_InvalidDate(t *testing.T) {
	bad := "03/01/2024"
	in := &CreateCoffeeInput{Body: CoffeeBody{CoffeeName: "Gotiti", RoastDate: &bad}}

	_, err := in.ToModel()

	assert.ErrorContains(t, err, "roast_date")
}

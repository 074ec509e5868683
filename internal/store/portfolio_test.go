package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
)

func contracts() []models.OptionContract {
	return []models.OptionContract{
		{Type: models.OptionTypeCall, Spot: 100, Strike: 100, Maturity: 1, Rate: 0.05, Volatility: 0.2},
		{Type: models.OptionTypePut, Spot: 100, Strike: 95, Maturity: 0.5, Rate: 0.05, Volatility: 0.25},
	}
}

func TestCreateAndGetPortfolio(t *testing.T) {
	s := NewInMemoryPortfolioStore()

	created, err := s.CreatePortfolio("hedge", contracts())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Created.IsZero())

	got, err := s.GetPortfolio(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// callers cannot mutate stored state
	got.Contracts[0].Spot = 1
	again, err := s.GetPortfolio(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.Contracts[0].Spot)
}

func TestCreatePortfolioRequiresName(t *testing.T) {
	_, err := NewInMemoryPortfolioStore().CreatePortfolio("", nil)
	assert.Equal(t, errors.ErrorTypeInvalidArgument, errors.TypeOf(err))
}

func TestGetAllPortfoliosIsOrdered(t *testing.T) {
	s := NewInMemoryPortfolioStore()
	first, _ := s.CreatePortfolio("first", nil)
	second, _ := s.CreatePortfolio("second", contracts())

	all, err := s.GetAllPortfolios()
	require.NoError(t, err)
	require.Len(t, all, 2)

	ids := map[string]bool{all[0].ID: true, all[1].ID: true}
	assert.True(t, ids[first.ID])
	assert.True(t, ids[second.ID])
	assert.False(t, all[1].Created.Before(all[0].Created))
}

func TestSaveAndDeletePortfolio(t *testing.T) {
	s := NewInMemoryPortfolioStore()
	created, _ := s.CreatePortfolio("book", contracts())

	created.Contracts = created.Contracts[:1]
	require.NoError(t, s.SavePortfolio(created))

	got, err := s.GetPortfolio(created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Contracts, 1)
	assert.False(t, got.Updated.Before(got.Created))

	require.NoError(t, s.DeletePortfolio(created.ID))
	_, err = s.GetPortfolio(created.ID)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(s.DeletePortfolio(created.ID)))
}

func TestSavePortfolioValidates(t *testing.T) {
	s := NewInMemoryPortfolioStore()
	assert.Error(t, s.SavePortfolio(nil))
	assert.Error(t, s.SavePortfolio(&models.Portfolio{Name: "no id"}))
}

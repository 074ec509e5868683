package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// PortfolioStore defines an interface for storing and retrieving portfolios
type PortfolioStore interface {
	CreatePortfolio(name string, contracts []models.OptionContract) (*models.Portfolio, error)
	GetPortfolio(id string) (*models.Portfolio, error)
	GetAllPortfolios() ([]*models.Portfolio, error)
	SavePortfolio(portfolio *models.Portfolio) error
	DeletePortfolio(id string) error
}

// InMemoryPortfolioStore implements an in-memory portfolio storage.
// Portfolios are copied on the way in and out.
type InMemoryPortfolioStore struct {
	portfolios map[string]*models.Portfolio
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewInMemoryPortfolioStore creates a new in-memory portfolio store
func NewInMemoryPortfolioStore() *InMemoryPortfolioStore {
	return &InMemoryPortfolioStore{
		portfolios: make(map[string]*models.Portfolio),
		log:        logger.GetLogger("store.portfolio"),
	}
}

// CreatePortfolio stores a new portfolio under a generated ID
func (s *InMemoryPortfolioStore) CreatePortfolio(name string, contracts []models.OptionContract) (*models.Portfolio, error) {
	if name == "" {
		return nil, errors.InvalidArgument("portfolio name cannot be empty")
	}

	now := time.Now()
	portfolio := &models.Portfolio{
		ID:        uuid.NewString(),
		Name:      name,
		Contracts: contracts,
		Created:   now,
		Updated:   now,
	}

	s.mu.Lock()
	s.portfolios[portfolio.ID] = clone(portfolio)
	s.mu.Unlock()

	s.log.Infof("Created portfolio %s (%s) with %d contracts", portfolio.ID, name, len(contracts))
	return clone(portfolio), nil
}

// GetPortfolio retrieves a portfolio by ID
func (s *InMemoryPortfolioStore) GetPortfolio(id string) (*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	portfolio, exists := s.portfolios[id]
	if !exists {
		return nil, errors.NotFound("portfolio not found: " + id)
	}

	return clone(portfolio), nil
}

// GetAllPortfolios returns all stored portfolios, oldest first
func (s *InMemoryPortfolioStore) GetAllPortfolios() ([]*models.Portfolio, error) {
	s.mu.RLock()
	portfolios := make([]*models.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		portfolios = append(portfolios, clone(p))
	}
	s.mu.RUnlock()

	sort.Slice(portfolios, func(i, j int) bool {
		if portfolios[i].Created.Equal(portfolios[j].Created) {
			return portfolios[i].ID < portfolios[j].ID
		}
		return portfolios[i].Created.Before(portfolios[j].Created)
	})

	return portfolios, nil
}

// SavePortfolio saves or updates a portfolio
func (s *InMemoryPortfolioStore) SavePortfolio(portfolio *models.Portfolio) error {
	if portfolio == nil {
		return errors.InvalidArgument("cannot save nil portfolio")
	}

	if portfolio.ID == "" {
		return errors.InvalidArgument("portfolio ID cannot be empty")
	}

	stored := clone(portfolio)
	stored.Updated = time.Now()
	if stored.Created.IsZero() {
		stored.Created = stored.Updated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[portfolio.ID] = stored
	return nil
}

// DeletePortfolio removes a portfolio by ID
func (s *InMemoryPortfolioStore) DeletePortfolio(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.portfolios[id]; !exists {
		return errors.NotFound("portfolio not found: " + id)
	}

	delete(s.portfolios, id)
	return nil
}

func clone(p *models.Portfolio) *models.Portfolio {
	c := *p
	c.Contracts = append([]models.OptionContract(nil), p.Contracts...)
	return &c
}

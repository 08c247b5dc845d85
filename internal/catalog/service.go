package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nileways/storefront/internal/domain"
	apperrors "github.com/nileways/storefront/pkg/errors"
	"github.com/nileways/storefront/pkg/pagination"
)

// Lister is the subset of the CMS client the catalog needs.
type Lister interface {
	ListTours(ctx context.Context) ([]domain.Tour, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListVideos(ctx context.Context) ([]domain.Video, error)
}

// Filter narrows and orders a catalog listing. Prices are in minor currency
// units, matching the cart. Zero values mean "no constraint".
type Filter struct {
	Category string
	Query    string
	MinPrice int64
	MaxPrice int64
	Sort     string
}

const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
	SortNewest    = "newest"
)

// Service serves catalog listings for the storefront. The CMS list endpoints
// return full collections; filtering, sorting, and pagination happen here so
// the API surface stays stable regardless of CMS query capabilities.
type Service struct {
	lister Lister
}

func NewService(lister Lister) *Service {
	return &Service{lister: lister}
}

// Tours returns a filtered, sorted, paginated page of tours.
func (s *Service) Tours(ctx context.Context, filter Filter, params pagination.Params) (pagination.Result[domain.Tour], error) {
	tours, err := s.lister.ListTours(ctx)
	if err != nil {
		return pagination.Result[domain.Tour]{}, fmt.Errorf("list tours: %w", err)
	}

	filtered := make([]domain.Tour, 0, len(tours))
	for _, tour := range tours {
		if filter.Category != "" && tour.Category != filter.Category {
			continue
		}
		if !matchesQuery(filter.Query, tour.Name) {
			continue
		}
		if !inPriceRange(tour.Price, filter) {
			continue
		}
		filtered = append(filtered, tour)
	}

	sortTours(filtered, filter.Sort)
	page := pagination.Slice(filtered, params)
	return pagination.NewResult(page, len(filtered), params), nil
}

// Products returns a filtered, sorted, paginated page of shop products.
func (s *Service) Products(ctx context.Context, filter Filter, params pagination.Params) (pagination.Result[domain.Product], error) {
	products, err := s.lister.ListProducts(ctx)
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}

	filtered := make([]domain.Product, 0, len(products))
	for _, product := range products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if !matchesQuery(filter.Query, product.Name) {
			continue
		}
		if !inPriceRange(product.Price, filter) {
			continue
		}
		filtered = append(filtered, product)
	}

	sortProducts(filtered, filter.Sort)
	page := pagination.Slice(filtered, params)
	return pagination.NewResult(page, len(filtered), params), nil
}

// Videos returns a paginated page of history videos, optionally filtered by
// era or title query. Videos have no price, so price filters are ignored.
func (s *Service) Videos(ctx context.Context, filter Filter, params pagination.Params) (pagination.Result[domain.Video], error) {
	videos, err := s.lister.ListVideos(ctx)
	if err != nil {
		return pagination.Result[domain.Video]{}, fmt.Errorf("list videos: %w", err)
	}

	filtered := make([]domain.Video, 0, len(videos))
	for _, video := range videos {
		if filter.Category != "" && video.Era != filter.Category {
			continue
		}
		if !matchesQuery(filter.Query, video.Title) {
			continue
		}
		filtered = append(filtered, video)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PublishedAt.After(filtered[j].PublishedAt)
	})
	page := pagination.Slice(filtered, params)
	return pagination.NewResult(page, len(filtered), params), nil
}

func matchesQuery(query, name string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func inPriceRange(price int64, filter Filter) bool {
	if filter.MinPrice > 0 && price < filter.MinPrice {
		return false
	}
	if filter.MaxPrice > 0 && price > filter.MaxPrice {
		return false
	}
	return true
}

func sortTours(tours []domain.Tour, sortKey string) {
	switch sortKey {
	case SortPriceAsc:
		sort.SliceStable(tours, func(i, j int) bool { return tours[i].Price < tours[j].Price })
	case SortPriceDesc:
		sort.SliceStable(tours, func(i, j int) bool { return tours[i].Price > tours[j].Price })
	case SortName:
		sort.SliceStable(tours, func(i, j int) bool { return tours[i].Name < tours[j].Name })
	case SortNewest:
		sort.SliceStable(tours, func(i, j int) bool { return tours[i].CreatedAt.After(tours[j].CreatedAt) })
	}
}

func sortProducts(products []domain.Product, sortKey string) {
	switch sortKey {
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price < products[j].Price })
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price > products[j].Price })
	case SortName:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	}
}

// ProductByID finds a product in the shop catalog. The cart's add-item
// endpoint uses this to denormalize name and price at add time.
func (s *Service) ProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	products, err := s.lister.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}

	tours, err := s.lister.ListTours(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	for _, tour := range tours {
		if tour.ID == id {
			return &domain.Product{
				ID:        tour.ID,
				Name:      tour.Name,
				Slug:      tour.Slug,
				Price:     tour.Price,
				Currency:  tour.Currency,
				Category:  tour.Category,
				Image:     tour.Image,
				CreatedAt: tour.CreatedAt,
			}, nil
		}
	}

	return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
}

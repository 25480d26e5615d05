package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/catalog-service/internal/app/catalog/entity"
	"storefront/catalog-service/internal/app/catalog/reaction"
	"storefront/catalog-service/internal/app/catalog/repository"

	"github.com/google/uuid"
)

// CatalogService - CRUD категорий и товаров.
// Каждая успешная запись сбрасывает соответствующий списочный кеш.
type CatalogService struct {
	categoryRepo repository.CategoryRepository // Категории в PostgreSQL (pgx)
	productRepo  repository.ProductRepository  // Товары в PostgreSQL (gorm)
	cache        *CacheCoordinator             // Списочный кеш products:all / categories:all
}

// NewCatalogService создает сервис каталога с внедрением зависимостей
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	cache *CacheCoordinator,
) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
		cache:        cache,
	}
}

// === CATEGORIES ===

// CreateCategory создает категорию и сбрасывает кеш категорий
func (s *CatalogService) CreateCategory(ctx context.Context, req *entity.CreateCategoryRequest) (*entity.Category, error) {
	// Создаем новую категорию с уникальным ID
	category := &entity.Category{
		ID:        uuid.New(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	// Сохраняем в PostgreSQL; имя уникально
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.cache.InvalidateListCache(ctx, entity.KindCategory)
	return category, nil
}

// GetCategory читает конкретную категорию мимо кеша
func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// GetAllCategories отдаёт список из кеша, при промахе загружает из БД и кеширует на TTL категорий
func (s *CatalogService) GetAllCategories(ctx context.Context) ([]entity.Category, error) {
	categories, err := cachedList(ctx, s.cache, entity.KindCategory, s.categoryRepo.GetAll)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory переименовывает категорию
func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, req *entity.UpdateCategoryRequest) (*entity.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	category.Name = req.Name

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryAlreadyExists):
			return nil, ErrCategoryAlreadyExists
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	// товары в products:all хранят вложенную категорию со старым именем
	s.cache.InvalidateListCache(ctx, entity.KindCategory)
	s.cache.InvalidateListCache(ctx, entity.KindProduct)
	return category, nil
}

// DeleteCategory удаляет категорию, если в ней нет товаров
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrCategoryNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repository.ErrCategoryHasProducts):
			return ErrCategoryHasProducts
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	// удаляется только пустая категория, в списке товаров её нет
	s.cache.InvalidateListCache(ctx, entity.KindCategory)
	return nil
}

// === PRODUCTS ===

// CreateProduct проверяет категорию и создаёт товар с нулевыми счётчиками
func (s *CatalogService) CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error) {
	// Товар без существующей категории не создаём
	if _, err := s.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	// Счётчики реакций стартуют с нуля: 0 >= 0, поэтому товар сразу "лучший"
	now := time.Now()
	product := &entity.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Reactions:   reaction.Derive(0, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	// Ключ сбрасывается до возврата: следующий список уже увидит товар
	s.cache.InvalidateListCache(ctx, entity.KindProduct)
	return product, nil
}

// GetProduct читает товар напрямую из БД, кеш не используется
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// GetAllProducts может вернуть устаревшие счётчики реакций: переключение
// реакции кеш не сбрасывает, список живёт не дольше TTL
func (s *CatalogService) GetAllProducts(ctx context.Context) ([]entity.Product, error) {
	products, err := cachedList(ctx, s.cache, entity.KindProduct, s.productRepo.GetAll)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// UpdateProduct - частичное обновление, пустые поля запроса не трогаются
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req *entity.UpdateProductRequest) (*entity.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price > 0 {
		product.Price = req.Price
	}
	// Смена категории: новая должна существовать
	if req.CategoryID != uuid.Nil && req.CategoryID != product.CategoryID {
		category, err := s.GetCategory(ctx, req.CategoryID)
		if err != nil {
			return nil, err
		}
		product.CategoryID = category.ID
		product.Category = category
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.cache.InvalidateListCache(ctx, entity.KindProduct)
	return product, nil
}

// DeleteProduct удаляет товар; отзывы и рёбра реакций уходят каскадом
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.cache.InvalidateListCache(ctx, entity.KindProduct)
	return nil
}

package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/gpio_shop/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// Migrate creates the principal partitions, each with a unique email index,
// and the products table.
func (r *GormRepo) Migrate(ctx context.Context) error {
	for _, role := range []models.Role{models.RoleUser, models.RoleAdmin} {
		table := role.Partition()
		if err := r.DB.WithContext(ctx).Table(table).AutoMigrate(&models.Principal{}); err != nil {
			return err
		}
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_email ON %s (email)", table, table)
		if err := r.DB.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("email index on %s: %w", table, err)
		}
	}
	return r.DB.WithContext(ctx).AutoMigrate(&models.Product{})
}

func (r *GormRepo) CreatePrincipal(ctx context.Context, role models.Role, p *models.Principal) error {
	tx := r.DB.WithContext(ctx).Table(role.Partition()).Where("email = ?", p.Email).FirstOrCreate(p)
	if tx.Error != nil {
		// lost a race with a concurrent insert of the same email
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) {
			return ErrAlreadyExist
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAlreadyExist
	}
	p.Role = role
	return nil
}

func (r *GormRepo) FindPrincipalByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error) {
	var p models.Principal
	if err := r.DB.WithContext(ctx).Table(role.Partition()).Where("email = ?", email).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Role = role
	return &p, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *GormRepo) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	var prod models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&prod).Error; err != nil {
			return err
		}
		if patch.Empty() {
			return nil
		}
		if err := tx.Model(&prod).Updates(patch.Columns()).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&prod).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

func (r *GormRepo) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&prod).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) ListProducts(ctx context.Context) ([]models.Product, error) {
	items := []models.Product{}
	if err := r.DB.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepo) Close(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

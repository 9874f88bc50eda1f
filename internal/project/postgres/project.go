package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/opsledger/opsledger/internal"
	"github.com/opsledger/opsledger/internal/project"
)

// ProjectRepository implements the project.Repository interface using GORM
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) project.Repository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(p *project.Project) error {
	return r.db.Create(p).Error
}

func (r *ProjectRepository) GetByID(id int64) (*project.Project, error) {
	var p project.Project
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) List(limit, offset int) ([]*project.Project, int64, error) {
	var total int64
	if err := r.db.Model(&project.Project{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*project.Project
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&projects).Error
	return projects, total, err
}

func (r *ProjectRepository) ListByOwner(ownerID int64, limit, offset int) ([]*project.Project, int64, error) {
	var total int64
	if err := r.db.Model(&project.Project{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*project.Project
	err := r.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&projects).Error
	return projects, total, err
}

func (r *ProjectRepository) Update(p *project.Project) error {
	p.UpdatedAt = time.Now()
	return r.db.Save(p).Error
}

// Delete removes the project and nulls the project reference on any
// invoices pointing at it, in one transaction.
func (r *ProjectRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("invoices").
			Where("project_id = ?", id).
			Update("project_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&project.Project{}, id).Error
	})
}

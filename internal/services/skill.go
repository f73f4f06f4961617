package services

import (
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

type SkillService struct {
	db *gorm.DB
}

func NewSkillService(db *gorm.DB) *SkillService {
	return &SkillService{db: db}
}

type SkillListRequest struct {
	Search   string `form:"search"`
	Category string `form:"category"`
}

type SkillRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Category string `json:"category" binding:"max=100"`
}

func (s *SkillService) List(req *SkillListRequest) ([]models.Skill, error) {
	query := s.db.Model(&models.Skill{})
	if req.Search != "" {
		query = query.Where("name LIKE ?", likePattern(req.Search))
	}
	if req.Category != "" {
		query = query.Where(&models.Skill{Category: req.Category})
	}

	var skills []models.Skill
	if err := query.Order("name").Find(&skills).Error; err != nil {
		return nil, err
	}
	return skills, nil
}

func (s *SkillService) Categories() ([]string, error) {
	var categories []string
	err := s.db.Model(&models.Skill{}).
		Where("category <> ''").
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

func (s *SkillService) GetByID(id uint) (*models.Skill, error) {
	var skill models.Skill
	if err := s.db.First(&skill, id).Error; err != nil {
		return nil, notFoundOr(err, "skill not found")
	}
	return &skill, nil
}

func (s *SkillService) Create(req *SkillRequest) (*models.Skill, error) {
	name := strings.TrimSpace(req.Name)
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, response.NewBadRequest("skill name is required")
	}

	var count int64
	s.db.Model(&models.Skill{}).Where("name = ? OR slug = ?", name, slug).Count(&count)
	if count > 0 {
		return nil, response.NewConflict("skill already exists")
	}

	skill := &models.Skill{Name: name, Slug: slug, Category: strings.TrimSpace(req.Category)}
	if err := s.db.Create(skill).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, response.NewConflict("skill already exists")
		}
		return nil, err
	}
	return skill, nil
}

func (s *SkillService) Update(id uint, req *SkillRequest) (*models.Skill, error) {
	skill, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, response.NewBadRequest("skill name is required")
	}

	var count int64
	s.db.Model(&models.Skill{}).Where("(name = ? OR slug = ?) AND id <> ?", name, slug, id).Count(&count)
	if count > 0 {
		return nil, response.NewConflict("skill already exists")
	}

	if err := s.db.Model(skill).Updates(map[string]interface{}{
		"name":     name,
		"slug":     slug,
		"category": strings.TrimSpace(req.Category),
	}).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete removes the skill and detaches it from projects and profiles
func (s *SkillService) Delete(id uint) error {
	skill, err := s.GetByID(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM project_skills WHERE skill_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM freelancer_skills WHERE skill_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(skill).Error
	})
}

// loadSkills resolves ids to skills, rejecting unknown ids
func loadSkills(db *gorm.DB, ids []uint) ([]models.Skill, error) {
	if len(ids) == 0 {
		return []models.Skill{}, nil
	}
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	var skills []models.Skill
	if err := db.Where("id IN ?", unique).Find(&skills).Error; err != nil {
		return nil, err
	}
	if len(skills) != len(unique) {
		return nil, response.NewBadRequest("unknown skill id")
	}
	return skills, nil
}

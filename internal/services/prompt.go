package services

import (
	"regexp"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

const (
	PromptPurposeProposalDraft      = "proposal_draft"
	PromptPurposeProjectDescription = "project_description"
	PromptPurposeDailyReport        = "daily_report"
)

var promptPurposes = map[string]bool{
	PromptPurposeProposalDraft:      true,
	PromptPurposeProjectDescription: true,
	PromptPurposeDailyReport:        true,
}

var placeholderRegex = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// RenderPrompt fills {{name}} placeholders; unknown ones become empty
func RenderPrompt(tmpl string, vars map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRegex.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

type PromptService struct {
	db *gorm.DB
}

func NewPromptService(db *gorm.DB) *PromptService {
	return &PromptService{db: db}
}

type PromptListRequest struct {
	PageRequest
	Name     string `form:"name"`
	Purpose  string `form:"purpose"`
	IsSystem *bool  `form:"is_system"`
}

func (s *PromptService) List(req *PromptListRequest) (*PageResponse[models.PromptTemplate], error) {
	req.normalize(20)

	query := s.db.Model(&models.PromptTemplate{})
	if req.Name != "" {
		query = query.Where("name LIKE ?", likePattern(req.Name))
	}
	if req.Purpose != "" {
		query = query.Where("purpose = ?", req.Purpose)
	}
	if req.IsSystem != nil {
		query = query.Where("is_system = ?", *req.IsSystem)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var prompts []models.PromptTemplate
	if err := query.Order("is_system DESC, is_default DESC, id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&prompts).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, prompts), nil
}

func (s *PromptService) GetByID(id uint) (*models.PromptTemplate, error) {
	var prompt models.PromptTemplate
	if err := s.db.First(&prompt, id).Error; err != nil {
		return nil, notFoundOr(err, "prompt not found")
	}
	return &prompt, nil
}

// ForPurpose returns the default template of purpose, then any template of it, then the built-in text
func (s *PromptService) ForPurpose(purpose string) string {
	var prompt models.PromptTemplate
	err := s.db.Where("purpose = ?", purpose).Order("is_default DESC, is_system ASC, id DESC").First(&prompt).Error
	if err == nil {
		return prompt.Content
	}
	for _, p := range models.SystemPrompts {
		if p.Purpose == purpose {
			return p.Content
		}
	}
	return ""
}

type PromptRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	Purpose     string `json:"purpose" binding:"required"`
	Content     string `json:"content" binding:"required"`
	Variables   string `json:"variables" binding:"max=500"`
	IsDefault   bool   `json:"is_default"`
}

func (s *PromptService) Create(actor Actor, req *PromptRequest) (*models.PromptTemplate, error) {
	if !promptPurposes[req.Purpose] {
		return nil, response.NewBadRequest("unknown purpose " + req.Purpose)
	}
	prompt := models.PromptTemplate{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Purpose:     req.Purpose,
		Content:     req.Content,
		Variables:   req.Variables,
		CreatedBy:   actor.UserID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&prompt).Error; err != nil {
			return err
		}
		if req.IsDefault {
			return setDefaultPrompt(tx, &prompt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(prompt.ID)
}

func (s *PromptService) Update(id uint, req *PromptRequest) (*models.PromptTemplate, error) {
	prompt, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req.Purpose != prompt.Purpose && prompt.IsSystem {
		return nil, response.NewBadRequest("the purpose of a built-in prompt cannot change")
	}
	if !promptPurposes[req.Purpose] {
		return nil, response.NewBadRequest("unknown purpose " + req.Purpose)
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(prompt).Updates(map[string]interface{}{
			"name":        strings.TrimSpace(req.Name),
			"description": req.Description,
			"purpose":     req.Purpose,
			"content":     req.Content,
			"variables":   req.Variables,
		}).Error; err != nil {
			return err
		}
		if req.IsDefault {
			return setDefaultPrompt(tx, prompt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *PromptService) Delete(id uint) error {
	prompt, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if prompt.IsSystem {
		return response.NewBadRequest("built-in prompts cannot be deleted")
	}
	return s.db.Delete(prompt).Error
}

// SetDefault makes id the default of its purpose
func (s *PromptService) SetDefault(id uint) error {
	prompt, err := s.GetByID(id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return setDefaultPrompt(tx, prompt)
	})
}

func setDefaultPrompt(tx *gorm.DB, prompt *models.PromptTemplate) error {
	if err := tx.Model(&models.PromptTemplate{}).
		Where("purpose = ? AND id <> ?", prompt.Purpose, prompt.ID).
		Update("is_default", false).Error; err != nil {
		return err
	}
	return tx.Model(&models.PromptTemplate{}).Where("id = ?", prompt.ID).Update("is_default", true).Error
}

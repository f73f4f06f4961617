package services

import (
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

// LLMProviders are the provider values callLLM understands
var LLMProviders = []string{"openai", "azure", "anthropic", "ollama", "gemini"}

func validProvider(p string) bool {
	for _, v := range LLMProviders {
		if v == p {
			return true
		}
	}
	return false
}

type LLMConfigService struct {
	db *gorm.DB
}

func NewLLMConfigService(db *gorm.DB) *LLMConfigService {
	return &LLMConfigService{db: db}
}

type LLMConfigListRequest struct {
	PageRequest
	Name     string `form:"name"`
	Provider string `form:"provider"`
	IsActive *bool  `form:"is_active"`
}

type CreateLLMConfigRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Provider    string  `json:"provider"`
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model" binding:"required"`
	MaxTokens   int     `json:"max_tokens" binding:"min=0"`
	Temperature float64 `json:"temperature" binding:"min=0,max=2"`
	IsDefault   bool    `json:"is_default"`
	IsActive    *bool   `json:"is_active"`

	TimeoutSeconds int      `json:"timeout_seconds" binding:"min=0,max=600"`
	Features       []string `json:"features"`
}

type UpdateLLMConfigRequest struct {
	Name        *string  `json:"name" binding:"omitempty,max=100"`
	Provider    *string  `json:"provider"`
	BaseURL     *string  `json:"base_url"`
	APIKey      *string  `json:"api_key"`
	Model       *string  `json:"model"`
	MaxTokens   *int     `json:"max_tokens" binding:"omitempty,min=0"`
	Temperature *float64 `json:"temperature" binding:"omitempty,min=0,max=2"`
	IsDefault   *bool    `json:"is_default"`
	IsActive    *bool    `json:"is_active"`

	TimeoutSeconds *int     `json:"timeout_seconds" binding:"omitempty,min=0,max=600"`
	Features       []string `json:"features"`
}

// joinFeatures validates assistant names and stores them comma separated
func joinFeatures(features []string) (string, error) {
	out := make([]string, 0, len(features))
	for _, f := range features {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !promptPurposes[f] {
			return "", response.NewBadRequest("unknown feature " + f)
		}
		out = append(out, f)
	}
	return strings.Join(out, ","), nil
}

func maskKeys(configs []models.LLMConfig) {
	for i := range configs {
		configs[i].APIKeyMask = configs[i].MaskAPIKey()
	}
}

func (s *LLMConfigService) List(req *LLMConfigListRequest) (*PageResponse[models.LLMConfig], error) {
	req.normalize(10)

	query := s.db.Model(&models.LLMConfig{})
	if req.Name != "" {
		pattern := likePattern(req.Name)
		query = query.Where("name LIKE ? OR model LIKE ?", pattern, pattern)
	}
	if req.Provider != "" {
		query = query.Where("provider = ?", req.Provider)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var configs []models.LLMConfig
	if err := query.Order("is_default DESC").Order("created_at DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&configs).Error; err != nil {
		return nil, err
	}
	maskKeys(configs)
	return newPage(req.PageRequest, total, configs), nil
}

func (s *LLMConfigService) GetByID(id uint) (*models.LLMConfig, error) {
	var config models.LLMConfig
	if err := s.db.First(&config, id).Error; err != nil {
		return nil, notFoundOr(err, "llm config not found")
	}
	config.APIKeyMask = config.MaskAPIKey()
	return &config, nil
}

func (s *LLMConfigService) Create(req *CreateLLMConfigRequest) (*models.LLMConfig, error) {
	if req.Provider == "" {
		req.Provider = "openai"
	}
	if !validProvider(req.Provider) {
		return nil, response.NewBadRequest("unsupported provider " + req.Provider)
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 4096
	}
	if req.Temperature == 0 {
		req.Temperature = 0.3
	}
	if req.TimeoutSeconds == 0 {
		req.TimeoutSeconds = 60
	}
	features, err := joinFeatures(req.Features)
	if err != nil {
		return nil, err
	}

	config := models.LLMConfig{
		Name:        req.Name,
		Provider:    req.Provider,
		BaseURL:     req.BaseURL,
		APIKey:      req.APIKey,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		IsDefault:   req.IsDefault,
		IsActive:    req.IsActive == nil || *req.IsActive,

		TimeoutSeconds: req.TimeoutSeconds,
		Features:       features,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if config.IsDefault {
			if err := tx.Model(&models.LLMConfig{}).Where("is_default = ?", true).Update("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&config).Error; err != nil {
			return err
		}
		// is_active defaults to true in the schema, so a false value needs its own update
		if !config.IsActive {
			return tx.Model(&config).Update("is_active", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	config.APIKeyMask = config.MaskAPIKey()
	return &config, nil
}

func (s *LLMConfigService) Update(id uint, req *UpdateLLMConfigRequest) (*models.LLMConfig, error) {
	config, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Provider != nil {
		if !validProvider(*req.Provider) {
			return nil, response.NewBadRequest("unsupported provider " + *req.Provider)
		}
		updates["provider"] = *req.Provider
	}
	if req.BaseURL != nil {
		updates["base_url"] = *req.BaseURL
	}
	// an empty key keeps the stored one
	if req.APIKey != nil && *req.APIKey != "" {
		updates["api_key"] = *req.APIKey
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.MaxTokens != nil {
		updates["max_tokens"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		updates["temperature"] = *req.Temperature
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.TimeoutSeconds != nil {
		updates["timeout_seconds"] = *req.TimeoutSeconds
	}
	// nil leaves the list alone, an empty list opens the config to every assistant
	if req.Features != nil {
		features, err := joinFeatures(req.Features)
		if err != nil {
			return nil, err
		}
		updates["features"] = features
	}
	if len(updates) == 0 {
		return config, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil && *req.IsDefault {
			if err := tx.Model(&models.LLMConfig{}).Where("is_default = ? AND id <> ?", true, id).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.LLMConfig{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *LLMConfigService) Delete(id uint) error {
	res := s.db.Delete(&models.LLMConfig{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.NewNotFound("llm config not found")
	}
	return nil
}

// GetActive lists selectable configs, default first
func (s *LLMConfigService) GetActive() ([]models.LLMConfig, error) {
	var configs []models.LLMConfig
	if err := s.db.Where("is_active = ?", true).Order("is_default DESC").Order("created_at DESC").
		Find(&configs).Error; err != nil {
		return nil, err
	}
	maskKeys(configs)
	return configs, nil
}

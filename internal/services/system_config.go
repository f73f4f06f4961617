package services

import (
	"errors"
	"strconv"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"gorm.io/gorm"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where(&models.SystemConfig{Group: group}).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// GetInt returns the integer value of key, or defaultValue when unset or malformed.
func (s *SystemConfigService) GetInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(s.GetWithDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) GetFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(s.GetWithDefault(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func (s *SystemConfigService) GetBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(s.GetWithDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// EscrowSettings are the runtime-tunable money knobs
type EscrowSettings struct {
	ReleaseDelayDays   int     `json:"release_delay_days"`
	HolidayCountry     string  `json:"holiday_country"`
	PlatformFeePercent float64 `json:"platform_fee_percent"`
}

// GetEscrowSettings reads the escrow settings, falling back to the file config values.
func (s *SystemConfigService) GetEscrowSettings(fallback EscrowSettings) *EscrowSettings {
	return &EscrowSettings{
		ReleaseDelayDays:   s.GetInt("escrow_release_delay_days", fallback.ReleaseDelayDays),
		HolidayCountry:     s.GetWithDefault("escrow_holiday_country", fallback.HolidayCountry),
		PlatformFeePercent: s.GetFloat("platform_fee_percent", fallback.PlatformFeePercent),
	}
}

type UpdateEscrowSettingsRequest struct {
	ReleaseDelayDays   *int     `json:"release_delay_days" binding:"omitempty,min=0,max=60"`
	HolidayCountry     *string  `json:"holiday_country"`
	PlatformFeePercent *float64 `json:"platform_fee_percent" binding:"omitempty,min=0,max=50"`
}

func (s *SystemConfigService) UpdateEscrowSettings(req *UpdateEscrowSettingsRequest) error {
	if req.ReleaseDelayDays != nil {
		if err := s.Set("escrow_release_delay_days", strconv.Itoa(*req.ReleaseDelayDays)); err != nil {
			return err
		}
	}
	if req.HolidayCountry != nil {
		if err := s.Set("escrow_holiday_country", *req.HolidayCountry); err != nil {
			return err
		}
	}
	if req.PlatformFeePercent != nil {
		if err := s.Set("platform_fee_percent", strconv.FormatFloat(*req.PlatformFeePercent, 'f', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateMany writes several raw key/value pairs, used by the generic admin endpoint.
func (s *SystemConfigService) UpdateMany(values map[string]string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txSvc := &SystemConfigService{db: tx}
		for k, v := range values {
			if err := txSvc.Set(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListAll returns every setting, hiding secret values.
func (s *SystemConfigService) ListAll() ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Order("id").Find(&configs).Error; err != nil {
		return nil, err
	}
	for i := range configs {
		if strings.Contains(configs[i].Key, "password") || strings.Contains(configs[i].Key, "secret") {
			if configs[i].Value != "" {
				configs[i].Value = "****"
			}
		}
	}
	return configs, nil
}

type LDAPConfigResponse struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	BaseDN      string `json:"base_dn"`
	BindDN      string `json:"bind_dn"`
	UserFilter  string `json:"user_filter"`
	UseSSL      bool   `json:"use_ssl"`
	PasswordSet bool   `json:"password_set"`
}

func (s *SystemConfigService) GetLDAPConfig() *LDAPConfigResponse {
	port, _ := strconv.Atoi(s.GetWithDefault("ldap_port", "389"))
	return &LDAPConfigResponse{
		Enabled:     s.GetWithDefault("ldap_enabled", "false") == "true",
		Host:        s.GetWithDefault("ldap_host", ""),
		Port:        port,
		BaseDN:      s.GetWithDefault("ldap_base_dn", ""),
		BindDN:      s.GetWithDefault("ldap_bind_dn", ""),
		UserFilter:  s.GetWithDefault("ldap_user_filter", "(uid=%s)"),
		UseSSL:      s.GetWithDefault("ldap_use_ssl", "false") == "true",
		PasswordSet: s.GetWithDefault("ldap_bind_password", "") != "",
	}
}

type UpdateLDAPConfigRequest struct {
	Enabled      *bool   `json:"enabled"`
	Host         *string `json:"host"`
	Port         *int    `json:"port"`
	BaseDN       *string `json:"base_dn"`
	BindDN       *string `json:"bind_dn"`
	BindPassword *string `json:"bind_password"`
	UserFilter   *string `json:"user_filter"`
	UseSSL       *bool   `json:"use_ssl"`
}

func (s *SystemConfigService) UpdateLDAPConfig(req *UpdateLDAPConfigRequest) error {
	if req.Enabled != nil {
		if err := s.Set("ldap_enabled", strconv.FormatBool(*req.Enabled)); err != nil {
			return err
		}
	}
	if req.Host != nil {
		if err := s.Set("ldap_host", *req.Host); err != nil {
			return err
		}
	}
	if req.Port != nil {
		if err := s.Set("ldap_port", strconv.Itoa(*req.Port)); err != nil {
			return err
		}
	}
	if req.BaseDN != nil {
		if err := s.Set("ldap_base_dn", *req.BaseDN); err != nil {
			return err
		}
	}
	if req.BindDN != nil {
		if err := s.Set("ldap_bind_dn", *req.BindDN); err != nil {
			return err
		}
	}
	if req.BindPassword != nil && *req.BindPassword != "" {
		if err := s.Set("ldap_bind_password", *req.BindPassword); err != nil {
			return err
		}
	}
	if req.UserFilter != nil {
		if err := s.Set("ldap_user_filter", *req.UserFilter); err != nil {
			return err
		}
	}
	if req.UseSSL != nil {
		if err := s.Set("ldap_use_ssl", strconv.FormatBool(*req.UseSSL)); err != nil {
			return err
		}
	}
	return nil
}

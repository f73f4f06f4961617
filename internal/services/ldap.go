package services

import (
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"gorm.io/gorm"
)

// LDAPService authenticates staff against the corporate directory.
// Settings in system_configs win over the file config once ldap_enabled is set there.
type LDAPService struct {
	configSvc *SystemConfigService
	fileCfg   *config.LDAPConfig
}

func NewLDAPService(db *gorm.DB, fileCfg *config.LDAPConfig) *LDAPService {
	if fileCfg == nil {
		fileCfg = &config.LDAPConfig{}
	}
	return &LDAPService{configSvc: NewSystemConfigService(db), fileCfg: fileCfg}
}

type LDAPUser struct {
	DN          string
	Username    string
	Email       string
	DisplayName string
}

func (s *LDAPService) settings() *config.LDAPConfig {
	if !s.configSvc.GetBool("ldap_enabled", false) {
		return s.fileCfg
	}
	return &config.LDAPConfig{
		Enabled:      true,
		Host:         s.configSvc.GetWithDefault("ldap_host", ""),
		Port:         s.configSvc.GetInt("ldap_port", 389),
		BaseDN:       s.configSvc.GetWithDefault("ldap_base_dn", ""),
		BindDN:       s.configSvc.GetWithDefault("ldap_bind_dn", ""),
		BindPassword: s.configSvc.GetWithDefault("ldap_bind_password", ""),
		UserFilter:   s.configSvc.GetWithDefault("ldap_user_filter", "(uid=%s)"),
		UseSSL:       s.configSvc.GetBool("ldap_use_ssl", false),
	}
}

func (s *LDAPService) IsEnabled() bool {
	cfg := s.settings()
	return cfg.Enabled && cfg.Host != ""
}

// Authenticate finds the user with the configured filter and binds as them to check the password
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	cfg := s.settings()
	if !cfg.Enabled || cfg.Host == "" {
		return nil, fmt.Errorf("LDAP is not enabled")
	}
	if password == "" {
		// an empty password would be an unauthenticated bind
		return nil, fmt.Errorf("invalid credentials")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var conn *ldap.Conn
	var err error

	if cfg.UseSSL {
		conn, err = ldap.DialURL("ldaps://"+addr, ldap.DialWithTLSConfig(&tls.Config{ServerName: cfg.Host}))
	} else {
		conn, err = ldap.DialURL("ldap://" + addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()

	// Bind with service account (if configured)
	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	searchRequest := ldap.NewSearchRequest(
		cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf(cfg.UserFilter, ldap.EscapeFilter(username)),
		[]string{"dn", "cn", "mail", "uid", "sAMAccountName"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("user not found in LDAP")
	}
	if len(result.Entries) > 1 {
		return nil, fmt.Errorf("multiple users found in LDAP")
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	user := &LDAPUser{
		DN:          entry.DN,
		Username:    entry.GetAttributeValue("uid"),
		Email:       entry.GetAttributeValue("mail"),
		DisplayName: entry.GetAttributeValue("cn"),
	}
	// Active Directory
	if user.Username == "" {
		user.Username = entry.GetAttributeValue("sAMAccountName")
	}
	return user, nil
}

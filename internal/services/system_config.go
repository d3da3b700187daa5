package services

import (
	"strconv"

	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/models"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where("`key` = ?", key).First(&cfg).Error; err != nil {
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
	return s.SetInGroup(key, value, "")
}

// SetInGroup upserts a config key. The group is only applied on create so an
// existing row keeps its grouping.
func (s *SystemConfigService) SetInGroup(key, value, group string) error {
	var cfg models.SystemConfig
	err := s.db.Where("`key` = ?", key).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
			Group: group,
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
	if err := s.db.Where("`group` = ?", group).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

type UpdateEmailConfigRequest struct {
	Enabled  *bool   `json:"enabled"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	From     *string `json:"from"`
	UseTLS   *bool   `json:"use_tls"`
}

type EmailConfigResponse struct {
	Enabled     bool   `json:"enabled"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	From        string `json:"from"`
	UseTLS      bool   `json:"use_tls"`
	PasswordSet bool   `json:"password_set"`
}

// GetEmailConfig returns the SMTP settings with the password masked.
func (s *SystemConfigService) GetEmailConfig() *EmailConfigResponse {
	emailSvc := NewEmailService(s.db)
	cfg := emailSvc.GetConfig()
	return &EmailConfigResponse{
		Enabled:     cfg.Enabled,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		From:        cfg.From,
		UseTLS:      cfg.UseTLS,
		PasswordSet: cfg.Password != "",
	}
}

func (s *SystemConfigService) UpdateEmailConfig(req *UpdateEmailConfigRequest) error {
	type setting struct {
		key   string
		value *string
	}

	boolStr := func(b *bool) *string {
		if b == nil {
			return nil
		}
		v := "false"
		if *b {
			v = "true"
		}
		return &v
	}
	intStr := func(i *int) *string {
		if i == nil {
			return nil
		}
		v := strconv.Itoa(*i)
		return &v
	}

	settings := []setting{
		{"email_enabled", boolStr(req.Enabled)},
		{"email_host", req.Host},
		{"email_port", intStr(req.Port)},
		{"email_username", req.Username},
		{"email_password", req.Password},
		{"email_from", req.From},
		{"email_use_tls", boolStr(req.UseTLS)},
	}

	for _, item := range settings {
		if item.value == nil {
			continue
		}
		if err := s.SetInGroup(item.key, *item.value, "email"); err != nil {
			return err
		}
	}
	return nil
}

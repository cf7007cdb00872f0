// internal/workers/admin/admin-panel/config.go
package adminpanel

import (
	"time"

	"applicant-gate/internal/common/config"
)

type Config struct {
	AdminChatID   int64
	PageSize      int
	StatsCacheTTL time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		AdminChatID:   cfg.Moderation.AdminChatID,
		PageSize:      cfg.Admin.PageSize,
		StatsCacheTTL: config.GetSeconds(cfg.Admin.StatsCacheTTL),
	}
}

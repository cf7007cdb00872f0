// internal/workers/moderation/moderation-workflow/config.go
package moderationworkflow

import (
	"time"

	"applicant-gate/internal/common/config"
)

type Config struct {
	AdminChatID int64
	GroupLink   string
	ClaimTTL    time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		AdminChatID: cfg.Moderation.AdminChatID,
		GroupLink:   cfg.Moderation.GroupLink,
		ClaimTTL:    config.GetSeconds(cfg.Moderation.ClaimTTL),
	}
}

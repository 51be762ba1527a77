package config

import (
	"slices"

	"github.com/knadh/koanf/providers/confmap"

	"github.com/mklimuk/skyadmin/pkg/db"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "skyadmin.yaml"

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"db": map[string]interface{}{
			"path": "./data/skyadmin.db",
		},
		"http": map[string]interface{}{
			"addr": ":8080",
		},
		"log": map[string]interface{}{
			"level": "info",
		},
		"reminder": map[string]interface{}{
			"interval":         "60s",
			"mark_undelivered": true,
			"enabled_kinds":    slices.Clone(db.Kinds),
		},
		"notify": map[string]interface{}{
			"desktop": map[string]interface{}{
				"enabled": true,
			},
			"log": map[string]interface{}{
				"enabled": true,
			},
			"telegram": map[string]interface{}{
				"token":   "",
				"chat_id": 0,
			},
			"discord": map[string]interface{}{
				"token":      "",
				"channel_id": "",
			},
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

package watcher

import (
	"github.com/looplj/caseflow/internal/pkg/xredis"
)

const (
	ModeMemory = "memory"
	ModeRedis  = "redis"
)

// Config selects how invalidation events reach other instances.
// Memory mode only reaches subscribers of the same process.
type Config struct {
	Mode  string        `conf:"mode" yaml:"mode" json:"mode"`
	Redis xredis.Config `conf:"redis" yaml:"redis" json:"redis"`
}

package audit

import (
	"fmt"

	"github.com/darmiel/fxrelay/internal/config"
	"github.com/darmiel/fxrelay/internal/core"
)

const (
	TypeMemory = "memory"
	TypeFile   = "file"
)

// Build creates the auditor described by cfg. A disabled audit config yields a NoopAuditor.
func Build(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case TypeMemory, "":
		return NewInMemoryAuditor(0), nil
	case TypeFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file auditor requires a path")
		}
		return NewFileAuditor(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}

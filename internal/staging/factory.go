package staging

import (
	"fmt"
	"os"

	"dirsnap/internal/config"
	"dirsnap/internal/dirsnap"
)

// NewStagingAreaFromConfig creates the restore staging area described by cfg.
// A configured dir must already exist.
func NewStagingAreaFromConfig(cfg config.StagingConfig, idgen dirsnap.IDGenerator) (*DirectoryStagingArea, error) {
	if cfg.Dir != "" {
		info, err := os.Stat(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("staging dir not accessible: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("staging dir is not a directory: %s", cfg.Dir)
		}
	}
	return NewDirectoryStagingArea(cfg.Dir, idgen), nil
}

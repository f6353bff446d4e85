//go:build !linux

package health

import (
	"context"
	"fmt"
	"os"
)

// DiskSpace degrades to an existence check where statfs is unavailable.
func DiskSpace(dataDir string, minFreeBytes uint64) Checker {
	return CheckerFunc{
		CheckName: "disk",
		Fn: func(ctx context.Context) error {
			if _, err := os.Stat(dataDir); err != nil {
				return fmt.Errorf("data dir %s: %w", dataDir, err)
			}
			return nil
		},
	}
}

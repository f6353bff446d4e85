//go:build linux

package health

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskSpace checks that the data directory's filesystem has at least
// minFreeBytes available; saves and archives fail confusingly when it runs
// out.
func DiskSpace(dataDir string, minFreeBytes uint64) Checker {
	return CheckerFunc{
		CheckName: "disk",
		Fn: func(ctx context.Context) error {
			var st unix.Statfs_t
			if err := unix.Statfs(dataDir, &st); err != nil {
				return fmt.Errorf("statfs %s: %w", dataDir, err)
			}
			free := st.Bavail * uint64(st.Bsize)
			if free < minFreeBytes {
				return fmt.Errorf("only %d bytes free under %s, need %d", free, dataDir, minFreeBytes)
			}
			return nil
		},
	}
}

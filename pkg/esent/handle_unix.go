// +build !windows

package esent

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// cloneFile duplicates the descriptor so a table can be read and closed
// independently of the file it was opened from.
func cloneFile(f *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("duplicating %s: %w", f.Name(), err)
	}
	return os.NewFile(uintptr(fd), f.Name()), nil
}

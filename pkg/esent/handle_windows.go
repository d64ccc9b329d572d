package esent

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// cloneFile duplicates the handle so a table can be read and closed
// independently of the file it was opened from.
func cloneFile(f *os.File) (*os.File, error) {
	process, err := windows.GetCurrentProcess()
	if err != nil {
		return nil, err
	}
	var h windows.Handle
	err = windows.DuplicateHandle(process, windows.Handle(f.Fd()), process, &h, 0, false, windows.DUPLICATE_SAME_ACCESS)
	if err != nil {
		return nil, fmt.Errorf("duplicating %s: %w", f.Name(), err)
	}
	return os.NewFile(uintptr(h), f.Name()), nil
}

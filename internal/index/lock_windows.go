//go:build windows

package index

import (
	"fmt"
	"os"
)

// tryLock creates path exclusively. Without flock a file left by a crashed
// build has to be removed by hand.
func tryLock(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, &LockedError{Path: path, Holder: readHolder(path)}
		}
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	return file, nil
}

// release closes before removing; Windows refuses to delete an open file.
func release(f *os.File, path string) {
	_ = f.Close()
	_ = os.Remove(path)
}

func probe(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

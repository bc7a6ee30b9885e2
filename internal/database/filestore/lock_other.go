//go:build !unix

package filestore

import "os"

// Advisory locking is only available on unix; elsewhere the journal relies
// on single-process use.
func lockFile(f *os.File, exclusive bool) error { return nil }

func unlockFile(f *os.File) {}

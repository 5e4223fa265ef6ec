//go:build unix

package fsstorage

import "golang.org/x/sys/unix"

func canRead(dir string) bool {
	return unix.Access(dir, unix.R_OK|unix.X_OK) == nil
}

func canWrite(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}

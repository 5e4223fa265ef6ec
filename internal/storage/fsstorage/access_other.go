//go:build !unix

package fsstorage

import "os"

func canRead(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// без access(2) проверяем созданием временного файла
func canWrite(dir string) bool {
	f, err := os.CreateTemp(dir, ".trash-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

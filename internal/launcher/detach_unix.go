//go:build !windows

package launcher

import "syscall"

// detachedAttr отвязывает процесс от сессии терминала.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

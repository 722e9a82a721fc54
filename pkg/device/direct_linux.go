//go:build linux

package device

import "syscall"

// directFlag is the O_DIRECT bit on platforms that define it, requesting
// the cache-bypass read path the source side uses.
const directFlag = syscall.O_DIRECT

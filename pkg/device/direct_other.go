//go:build !linux

package device

// directFlag is zero on platforms without O_DIRECT; cache-bypass is then
// silently ignored, matching the original engine's conditional compilation
// around O_DIRECT.
const directFlag = 0

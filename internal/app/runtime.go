package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// ATLAS_TEST_MODE=1 makes the binaries exit before touching Postgres,
// Redis, or the network, so smoke tests can exec them safely.
const testModeEnv = "ATLAS_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeInit sync.Once
)

// InTestMode reports whether runtime side effects should be skipped.
// The environment is read once; RefreshTestMode re-reads it.
func InTestMode() bool {
	testModeInit.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads the flag after the environment changed.
func RefreshTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}

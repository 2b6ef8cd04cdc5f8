package testing

import (
	"os"
	"sync"
	stdtesting "testing"

	"github.com/fleetops/fleetops/internal/app"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("FLEETOPS_TEST_MODE", "1")
		if os.Getenv("OPTIMIZER_USER") == "" {
			_ = os.Setenv("OPTIMIZER_USER", "test")
		}
		if os.Getenv("OPTIMIZER_PASSWORD") == "" {
			_ = os.Setenv("OPTIMIZER_PASSWORD", "test")
		}
		// InTestMode caches on first call; the env var was just set.
		app.RefreshTestMode()
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}

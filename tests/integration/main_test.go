package integration

import (
	"os"
	"testing"
)

// TestMain stops the shared postgres once every test in the package is done
func TestMain(m *testing.M) {
	code := m.Run()
	TerminateSharedContainer()
	os.Exit(code)
}

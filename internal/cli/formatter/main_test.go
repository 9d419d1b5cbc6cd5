package formatter

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	DisableColor()
	os.Exit(m.Run())
}

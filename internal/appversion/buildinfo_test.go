package appversion_test

import (
	"testing"

	"gnomes/internal/appversion"
)

func TestStringDefaultsToDev(t *testing.T) {
	t.Parallel()

	if got := appversion.String(); got != "dev" {
		t.Fatalf("appversion.String() = %q, want dev for an unstamped build", got)
	}
}

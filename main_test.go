package docxtemplar

import (
	"testing"

	"go.uber.org/goleak"
)

// Части пакета и пакетный рендер работают в горутинах, следим, чтобы ни одна не утекла.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := capture(t)
	Logf("wrote %d figures", 3)
	assert.Equal(t, []string{"wrote 3 figures"}, *lines)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted") })
	assert.Len(t, *lines, 1)
}

func TestTrack(t *testing.T) {
	lines := capture(t)
	done := Track("triptych")
	assert.Equal(t, []string{"triptych: started"}, *lines)
	done()
	if assert.Len(t, *lines, 2) {
		assert.Contains(t, (*lines)[1], "triptych: done in ")
	}
}

package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMap_Cancel(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		key  string
		want bool
	}{
		{"ctrl+c", true},
		{"q", true},
		{"esc", true},
		{"enter", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.key, km.Cancel))
		})
	}
}

func TestKeyMap_Help(t *testing.T) {
	km := DefaultKeyMap()
	assert.Len(t, km.ShortHelp(), 1)
	assert.Equal(t, "cancel", km.ShortHelp()[0].Help().Desc)
	assert.Len(t, km.FullHelp(), 1)
}

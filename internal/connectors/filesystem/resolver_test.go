package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{"file uri", "file:///home/ana/notes/a.md", "/home/ana/notes/a.md"},
		{"escaped space", "file:///home/ana/my%20notes/a.md", "/home/ana/my notes/a.md"},
		{"raw space", "file:///home/ana/my notes/a.md", "/home/ana/my notes/a.md"},
		{"bare absolute path", "/home/ana/a.md", "/home/ana/a.md"},
		{"relative path", "notes/a.md", "notes/a.md"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePath(tt.uri))
		})
	}
}

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugifyProducesContainerSafeIDs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-space:latest", "my-space-latest"},
		{"Demo:v1.2", "demo-v1-2"},
		{"::odd::", "odd"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), "input %q", tt.in)
	}
}

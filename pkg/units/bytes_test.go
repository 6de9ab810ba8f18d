package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{1, "1 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{100 * 1024 * 1024, "100.0 MB"},
		{150 * 1024 * 1024, "150.0 MB"},
		{1073741824, "1.0 GB"},
		{5 * 1024 * 1024 * 1024 * 1024, "5.0 TB"},
		{3 * 1024 * 1024 * 1024 * 1024 * 1024, "3072.0 TB"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, FormatBytes(test.size), "size %d", test.size)
	}
}

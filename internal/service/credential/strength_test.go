package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Score(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		want     int
	}{
		{name: "empty", password: "", want: 0},
		{name: "lowercase only", password: "abcd", want: 4*4 + 10},
		{name: "mixed case", password: "abCD", want: 4*4 + 20},
		{name: "with digits", password: "ab12CD", want: 6*4 + 30},
		{name: "all classes", password: "aB3!", want: 4*4 + 40},
		{name: "capped at 100", password: strings.Repeat("aB3!", 10), want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.password))
		})
	}
}

package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldTerm(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lower-cases", in: "WhatsApp", want: "whatsapp"},
		{name: "collapses inner whitespace", in: "  reach \t me   on ", want: "reach me on"},
		{name: "folds fullwidth letters", in: "ｔｅｌｅｇｒａｍ", want: "telegram"},
		{name: "blank stays blank", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldTerm(tt.in))
		})
	}
}

func TestNormalizeTerms(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "nil input",
			in:   nil,
			want: nil,
		},
		{
			name: "only blanks",
			in:   []string{"", "  ", "\t"},
			want: []string{},
		},
		{
			name: "case and spacing variants collapse to one term",
			in:   []string{" Call  Me ", "call me", "CALL ME"},
			want: []string{"call me"},
		},
		{
			name: "longest first so alternations prefer the longer domain",
			in:   []string{"t.me", "wa.me", "t.me.example"},
			want: []string{"t.me.example", "wa.me", "t.me"},
		},
		{
			name: "equal lengths keep input order",
			in:   []string{"dm me", "fb.me", "x.com"},
			want: []string{"dm me", "fb.me", "x.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTerms(tt.in))
		})
	}
}

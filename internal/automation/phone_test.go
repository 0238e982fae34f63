package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDutchPhone(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "06 1234 5678", want: "+31612345678", wantOK: true},
		{raw: "06-12345678", want: "+31612345678", wantOK: true},
		{raw: "06\u00a012345678", want: "+31612345678", wantOK: true},
		{raw: "06\u202f1234\u20095678\ufeff", want: "+31612345678", wantOK: true},
		{raw: "0031612345678", want: "+31612345678", wantOK: true},
		{raw: "31612345678", want: "+31612345678", wantOK: true},
		{raw: "+31612345678", want: "+31612345678", wantOK: true},
		{raw: "+44 20 7946 0958", want: "+442079460958", wantOK: true},
		{raw: "0044207946", want: "+44207946", wantOK: true},
		{raw: "612345678", wantOK: false},
		{raw: "   ", wantOK: false},
		{raw: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeDutchPhone(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDutchPhone_Idempotent(t *testing.T) {
	for _, raw := range []string{"06 1234 5678", "0031 6 1234", "31 6 1111 2222", "+1 555 0100"} {
		first, ok := NormalizeDutchPhone(raw)
		assert.True(t, ok, raw)
		second, ok := NormalizeDutchPhone(first)
		assert.True(t, ok, raw)
		assert.Equal(t, first, second, raw)
	}
}

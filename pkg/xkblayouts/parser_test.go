package xkblayouts_test

import (
	"testing"

	"codeberg.org/miketth/greeterkbd/pkg/xkblayouts"
	"github.com/stretchr/testify/assert"
)

func TestParseShortNames(t *testing.T) {
	tests := []struct {
		name    string
		symbols string
		want    []string
	}{
		{
			name:    "skips inet and group",
			symbols: "pc+us+inet(evdev)+group(basic)+ru:2",
			want:    []string{"us", "ru"},
		},
		{
			name:    "three groups",
			symbols: "pc+us+de:2+fr(azerty):3+inet(evdev)",
			want:    []string{"us", "de", "fr"},
		},
		{
			name:    "denylist ignores case",
			symbols: "pc+us+INET(evdev)+Group(switch)",
			want:    []string{"us"},
		},
		{
			name:    "keeps case of layout names",
			symbols: "pc+US",
			want:    []string{"US"},
		},
		{
			name:    "base without plus",
			symbols: "pc",
			want:    nil,
		},
		{
			name:    "empty",
			symbols: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, xkblayouts.ParseShortNames(tt.symbols))
		})
	}
}

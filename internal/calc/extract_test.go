package calc

import (
	"reflect"
	"testing"
)

func TestExtract_NoOperatorsMeansNoCandidates(t *testing.T) {
	for _, text := range []string{
		"",
		"hello world",
		"42",
		"version 2 is out",
		"meet at 10:30",
		"5",
	} {
		if got := Extract(text); len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want none", text, got)
		}
	}
}

func TestExtract_EmbeddedInProse(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"what is 4+4 and also 10×2?", []string{"4+4", "10×2"}},
		{"send me 5 + 5 now", []string{"5 + 5"}},
		{"price is 1.5+2.25 total", []string{"1.5+2.25"}},
		{"9÷3 please", []string{"9÷3"}},
		{"it was -5+3 degrees", []string{"-5+3"}},
		{"2+2 then 2+2 again", []string{"2+2", "2+2"}},
	}
	for _, tt := range tests {
		if got := Extract(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestExtract_DoesNotSplitAlphanumericTokens(t *testing.T) {
	for _, text := range []string{
		"order ORDER12+34 shipped",
		"code 12+34AB is invalid",
		"token x123+456y here",
	} {
		if got := Extract(text); len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want none", text, got)
		}
	}
}

package api

import "testing"

func TestPreferChinese(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"zh-CN,zh;q=0.9,en;q=0.8", true},
		{"zh-TW", true},
		{"en-US,en;q=0.9", false},
		{"fr-FR", false},
		{"", false},
		{"en;q=0.5,zh;q=0.9", true},
	}
	for _, tt := range tests {
		if got := preferChinese(tt.header); got != tt.want {
			t.Errorf("preferChinese(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

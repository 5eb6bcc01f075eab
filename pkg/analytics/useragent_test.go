package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDeviceClass тестирует определение класса устройства по user-agent
func TestDeviceClass(t *testing.T) {

	tests := []struct {
		name     string
		ua       string
		expected string
	}{
		{
			name:     "айфон",
			ua:       "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) Mobile/15E148 Safari/604.1",
			expected: "mobile",
		},
		{
			name:     "планшет",
			ua:       "Mozilla/5.0 (iPad; CPU OS 17_5 like Mac OS X) Tablet Safari/604.1",
			expected: "tablet",
		},
		{
			name:     "десктоп windows",
			ua:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/126.0.0.0",
			expected: "desktop",
		},
		{
			name:     "регистр не важен",
			ua:       "something MOBILE something",
			expected: "mobile",
		},
		{
			name:     "пустая строка",
			ua:       "",
			expected: "desktop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DeviceClass(tt.ua)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestBrowserName тестирует определение браузера по сигнатуре user-agent
func TestBrowserName(t *testing.T) {

	tests := []struct {
		name     string
		ua       string
		expected string
	}{
		{
			name:     "хром",
			ua:       "Mozilla/5.0 (Windows NT 10.0) Chrome/126.0.0.0 Safari/537.36",
			expected: "Chrome",
		},
		{
			name:     "файрфокс",
			ua:       "Mozilla/5.0 (X11; Linux x86_64) Firefox/127.0",
			expected: "Firefox",
		},
		{
			name:     "сафари без версии не считается",
			ua:       "Mozilla/5.0 Safari",
			expected: "Other",
		},
		{
			name:     "опера",
			ua:       "Mozilla/5.0 Opera/109.0.0.0",
			expected: "Opera",
		},
		{
			name:     "неизвестный агент",
			ua:       "curl/8.5.0",
			expected: "Other",
		},
		{
			name:     "пустая строка",
			ua:       "",
			expected: "Other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BrowserName(tt.ua)
			assert.Equal(t, tt.expected, result)
		})
	}
}

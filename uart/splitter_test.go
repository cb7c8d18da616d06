package uart_test

import (
	"bufio"
	"slices"
	"strings"
	"testing"

	"i4.energy/across/remoteio/uart"
)

func TestSplitter(t *testing.T) {
	long := strings.Repeat("x", uart.MaxLineLength)

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "CRLF terminated lines",
			input:    "temp=21.5\r\nhum=40\r\n",
			expected: []string{"temp=21.5", "", "hum=40", ""},
		},
		{
			name:     "Bare LF and CR",
			input:    "a\nb\rc",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "Line exactly at the limit",
			input:    long + "\n",
			expected: []string{long},
		},
		{
			name:     "Overlong run is split",
			input:    long + "tail\n",
			expected: []string{long, "tail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := bufio.NewScanner(strings.NewReader(tt.input))
			scanner.Split(uart.Splitter)

			var got []string
			for scanner.Scan() {
				got = append(got, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				t.Fatalf("unexpected scanner error: %v", err)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

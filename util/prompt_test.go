package util

import (
	"io"
	"strings"
	"testing"
)

func TestReadLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hunter2\n", "hunter2"},
		{"hunter2\r\nrest", "hunter2"},
		{"no newline", "no newline"},
	}
	for _, tt := range tests {
		got, err := readLine(strings.NewReader(tt.in))
		if err != nil {
			t.Fatalf("readLine(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("readLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := readLine(strings.NewReader("")); err != io.EOF {
		t.Errorf("empty input: err = %v, want io.EOF", err)
	}
}

func TestReadLine_LeavesRest(t *testing.T) {
	r := strings.NewReader("secret\nAthens\nexit\n")
	if _, err := readLine(r); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(r)
	if string(rest) != "Athens\nexit\n" {
		t.Errorf("rest = %q", rest)
	}
}

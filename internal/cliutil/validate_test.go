package cliutil

import "testing"

func TestParsePort(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"13100", false},
		{"13199", false},
		{"13150", false},
		{"13099", true},
		{"13200", true},
		{"abc", true},
		{"", true},
	}
	for _, c := range cases {
		_, err := ParsePort(c.in)
		if c.wantErr && err == nil {
			t.Errorf("ParsePort(%q): expected error, got nil", c.in)
		}
		if !c.wantErr && err != nil {
			t.Errorf("ParsePort(%q): unexpected error %v", c.in, err)
		}
	}
}

func TestParseIP(t *testing.T) {
	if _, err := ParseIP("127.0.0.1"); err != nil {
		t.Errorf("unexpected error for valid IPv4: %v", err)
	}
	if _, err := ParseIP("::1"); err != nil {
		t.Errorf("unexpected error for valid IPv6: %v", err)
	}
	if _, err := ParseIP("not-an-ip"); err == nil {
		t.Error("expected error for invalid IP")
	}
}

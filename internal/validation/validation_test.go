package validation

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateHostName(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		wantErr  bool
	}{
		{"simple", "router", false},
		{"with spaces", "DNS Server", false},
		{"unicode", "Servidor Sáo Paulo", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostName(tt.hostname)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHostName(%q) error = %v, wantErr %v", tt.hostname, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHostAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"valid IPv4", "1.1.1.1", false},
		{"private IPv4", "172.16.0.1", false},
		{"valid IPv6", "2001:db8::1", false},
		{"hostname", "example.com", false},
		{"single label", "localhost", false},
		{"trailing dot", "www.example.com.", false},
		{"hyphenated", "my-host.example.com.br", false},
		{"empty", "", true},
		{"blank", "  ", true},
		{"invalid IP", "999.999.999.999", true},
		{"partial IP", "1.1.1", true},
		{"CIDR", "10.0.0.0/8", true},
		{"underscore", "bad_host.example.com", true},
		{"leading hyphen", "-host.example.com", true},
		{"empty label", "host..example.com", true},
		{"scheme", "http://example.com", true},
		{"long label", strings.Repeat("a", 64) + ".com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostAddress(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateHostAddress(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeTagNames(t *testing.T) {
	got, err := NormalizeTagNames([]string{" DNS ", "Cloudflare", "DNS"})
	if err != nil {
		t.Fatalf("NormalizeTagNames() unexpected error: %v", err)
	}
	want := []string{"DNS", "Cloudflare"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTagNames() = %v, want %v", got, want)
	}

	if _, err := NormalizeTagNames([]string{"ok", " "}); err == nil {
		t.Error("NormalizeTagNames() expected error for blank tag")
	}

	got, err = NormalizeTagNames(nil)
	if err != nil || len(got) != 0 {
		t.Errorf("NormalizeTagNames(nil) = %v, %v; want empty, nil", got, err)
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "user@example.com", false},
		{"multiple dots", "user.name@example.co.uk", false},
		{"empty", "", true},
		{"no at", "userexample.com", true},
		{"at at start", "@example.com", true},
		{"at at end", "user@", true},
		{"whitespace", "user name@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("hunter2"); err != nil {
		t.Errorf("ValidatePassword() unexpected error: %v", err)
	}
	if err := ValidatePassword(""); err == nil {
		t.Error("ValidatePassword(\"\") expected error")
	}
	if err := ValidatePassword(strings.Repeat("x", 73)); err == nil {
		t.Error("ValidatePassword(73 bytes) expected error")
	}
}

func TestValidatePingCount(t *testing.T) {
	tests := []struct {
		count   int
		wantErr bool
	}{
		{1, false},
		{3, false},
		{100, false},
		{0, true},
		{-1, true},
		{101, true},
	}

	for _, tt := range tests {
		err := ValidatePingCount(tt.count)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePingCount(%d) error = %v, wantErr %v", tt.count, err, tt.wantErr)
		}
	}
}

package security

import (
	"strings"
	"testing"
)

func TestValidateAllowsPublicURLs(t *testing.T) {
	v := NewURL()

	valid := []string{
		"https://example.com/article",
		"http://example.org",
		"https://news.ycombinator.com/item?id=1",
	}
	for _, u := range valid {
		if err := v.Validate(u); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", u, err)
		}
	}
}

func TestValidateBlocksSchemes(t *testing.T) {
	v := NewURL()

	blocked := []string{
		"file:///etc/passwd",
		"ftp://example.com/file",
		"gopher://example.com",
		"javascript:alert(1)",
	}
	for _, u := range blocked {
		if err := v.Validate(u); err == nil {
			t.Errorf("Validate(%q) = nil, want scheme error", u)
		}
	}
}

func TestValidateBlocksPrivateTargets(t *testing.T) {
	v := NewURL()

	tests := []struct {
		url  string
		want string
	}{
		{"http://localhost/admin", "blocked host"},
		{"http://metadata.google.internal/computeMetadata", "blocked host"},
		{"http://127.0.0.1:8080/", "loopback"},
		{"http://10.0.0.5/", "private"},
		{"http://192.168.1.1/", "private"},
		{"http://172.16.0.1/", "private"},
		{"http://169.254.169.254/latest/meta-data", "link-local"},
		{"http://0.0.0.0/", "unspecified"},
		{"http://[::1]/", "loopback"},
		{"http://[::ffff:127.0.0.1]/", "loopback"},
	}
	for _, tt := range tests {
		err := v.Validate(tt.url)
		if err == nil {
			t.Errorf("Validate(%q) = nil, want error containing %q", tt.url, tt.want)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Validate(%q) = %v, want error containing %q", tt.url, err, tt.want)
		}
	}
}

func TestValidateMalformed(t *testing.T) {
	v := NewURL()

	if err := v.Validate("http://"); err == nil {
		t.Error("empty hostname accepted")
	}
	if err := v.Validate("://not-a-url"); err == nil {
		t.Error("malformed URL accepted")
	}
}

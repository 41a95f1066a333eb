package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/pharmausage/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_RemovesTags(t *testing.T) {
	got := htmlsanitize.PlainText(`<b>North</b> Pharmacy<script>alert('x')</script>`)
	if got != "North Pharmacy" {
		t.Errorf("expected tags removed, got %q", got)
	}
}

func TestPlainText_Document(t *testing.T) {
	doc := `<!DOCTYPE html>
<html><head><style>p { color: red; }</style><title>Reset</title></head>
<body>
  <p>Hello   Ana,</p>

  <p>Smith &amp; Sons</p>
</body></html>`
	want := "Hello Ana,\nSmith & Sons"
	if got := htmlsanitize.PlainText(doc); got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name, in, fallback, want string
	}{
		{"empty", "", "Pharmacy", "Pharmacy"},
		{"whitespace", " \t\n ", "Unknown Pharmacy", "Unknown Pharmacy"},
		{"real name", "East Side", "Pharmacy", "East Side"},
		{"trimmed", "  East Side ", "Pharmacy", "East Side"},
		{"angle bracket kept", "A<B Pharmacy", "Pharmacy", "A<B Pharmacy"},
		{"markup is data", "<i>Italic</i>", "Pharmacy", "<i>Italic</i>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := htmlsanitize.DisplayName(tc.in, tc.fallback); got != tc.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

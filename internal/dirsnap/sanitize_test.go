package dirsnap

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		want    string
	}{
		{name: "punctuation and emoji", comment: "Hello, World! 🎉", want: "hello-world"},
		{name: "surrounding spaces", comment: "  Weekly Backup  ", want: "weekly-backup"},
		{name: "keeps dots and underscores", comment: "v1.2.3_release", want: "v1.2.3_release"},
		{name: "collapses runs", comment: "a  --  b", want: "a-b"},
		{name: "separators", comment: `a/b\c:d`, want: "a-b-c-d"},
		{name: "trims dots and dashes", comment: "-.-x-.-", want: "x"},
		{name: "leading dots", comment: "...hidden...", want: "hidden"},
		{name: "unicode letters", comment: "Café Déjà Vu", want: "café-déjà-vu"},
		{name: "uppercase unicode", comment: "ÅNGSTRÖM", want: "ångström"},
		{name: "non-latin script", comment: "数据 备份", want: "数据-备份"},
		{name: "unicode digits", comment: "٣ items", want: "٣-items"},
		{name: "decomposed input is composed", comment: "Cafe\u0301", want: "caf\u00e9"},
		{name: "nothing usable", comment: "!!! ???", want: ""},
		{name: "empty", comment: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.comment)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.comment, got, tt.want)
			}
			if again := Sanitize(got); again != got {
				t.Errorf("Sanitize is not idempotent: Sanitize(%q) = %q", got, again)
			}
		})
	}
}

func TestSanitize_Charset(t *testing.T) {
	for _, comment := range []string{"a b", "x<>y", "tab\there", "new\nline", "émoji 🚀 ok", "%20"} {
		got := Sanitize(comment)
		for _, r := range got {
			if !keepRune(r) {
				t.Errorf("Sanitize(%q) = %q contains disallowed rune %q", comment, got, r)
			}
		}
	}
}

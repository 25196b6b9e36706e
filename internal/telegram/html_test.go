package telegram

import "testing"

func TestMention(t *testing.T) {
	tests := []struct {
		username, name, want string
	}{
		{"bob", "Bob B", "@bob"},
		{"@bob", "", "@bob"},
		{"", "Bob <B>", "Bob &lt;B&gt;"},
	}
	for _, tt := range tests {
		if got := Mention(tt.username, tt.name); got != tt.want {
			t.Errorf("Mention(%q, %q) = %q, want %q", tt.username, tt.name, got, tt.want)
		}
	}
}

func TestDeepLink(t *testing.T) {
	got := DeepLink("shadow_bot", "media_abc")
	if got != "https://t.me/shadow_bot?start=media_abc" {
		t.Errorf("DeepLink() = %q", got)
	}
}

func TestLinkEscapes(t *testing.T) {
	got := Link("https://t.me/x?start=a&b", "<go>")
	want := `<a href="https://t.me/x?start=a&amp;b">&lt;go&gt;</a>`
	if got != want {
		t.Errorf("Link() = %q, want %q", got, want)
	}
}

func TestUserHandle(t *testing.T) {
	u := &User{FirstName: "Ann", LastName: "Lee"}
	if got := u.Handle(); got != "Ann Lee" {
		t.Errorf("Handle() = %q, want %q", got, "Ann Lee")
	}
	u.Username = "ann"
	if got := u.Handle(); got != "ann" {
		t.Errorf("Handle() = %q, want %q", got, "ann")
	}
	var nilUser *User
	if got := nilUser.FullName(); got != "" {
		t.Errorf("nil FullName() = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"привет", 6, "привет"},
		{"привет", 4, "при…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestEscapeHTMLLimit(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"a<b", 6, "a&lt;b"},
		{"a<b", 5, "a…"},
		{"ab&cd", 7, "ab…"},
		{"ab&cd", 8, "ab&amp;…"},
	}
	for _, tt := range tests {
		if got := EscapeHTMLLimit(tt.in, tt.limit); got != tt.want {
			t.Errorf("EscapeHTMLLimit(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

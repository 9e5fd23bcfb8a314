package wren

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"About", "about"},
		{"About Us", "about-us"},
		{"  Hello,  World!  ", "hello-world"},
		{"Café del Mar", "cafe-del-mar"},
		{"already-a-slug", "already-a-slug"},
		{"MiXeD CaSe 123", "mixed-case-123"},
		{"tabs\tand\nnewlines", "tabs-and-newlines"},
		{"---", "-"},
		{"!!!", "-"},
		{"", "-"},
		{"/leading/and/trailing/", "leading-and-trailing"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{
		"About Us", "Café del Mar", "---", "", "Hello, World!",
		"ünïcödé names", "page/with/slashes", "42 is the answer",
	}
	for _, in := range inputs {
		once := Slugify(in)
		twice := Slugify(once)
		if once != twice {
			t.Errorf("Slugify not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSlugifyNeverEmpty(t *testing.T) {
	inputs := []string{"", " ", "!@#$%^&*()", "~~~~", "../../", "\x00"}
	for _, in := range inputs {
		if got := Slugify(in); got == "" {
			t.Errorf("Slugify(%q) returned an empty slug", in)
		}
	}
}

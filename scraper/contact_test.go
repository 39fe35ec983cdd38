package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosom/maps-contact-scraper/scraper"
)

func TestDeobfuscate(t *testing.T) {
	assert.Equal(t, "name@example.com", scraper.Deobfuscate("name [at] example [dot] com"))
	assert.Equal(t, "sales@acme.org", scraper.Deobfuscate("sales(at)acme(dot)org"))
	assert.Equal(t, "info@shop.de", scraper.Deobfuscate("INFO at shop dot DE"))
}

func TestFindEmails(t *testing.T) {
	// note: deobfuscation strips all whitespace, so test inputs separate
	// tokens with characters that cannot belong to an address
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "plain email",
			content:  `contact: info@acme-bakery.com,`,
			expected: []string{"info@acme-bakery.com"},
		},
		{
			name:     "deobfuscated at and dot",
			content:  `name [at] example-shop [dot] com`,
			expected: []string{"name@example-shop.com"},
		},
		{
			name:     "blacklisted domain excluded",
			content:  `someone@google.com, real@acme.io`,
			expected: []string{"real@acme.io"},
		},
		{
			name:     "blacklisted keyword in local part excluded",
			content:  `noreply@acme.io, support@acme.io, owner@acme.io`,
			expected: []string{"owner@acme.io"},
		},
		{
			name:     "duplicates collapse to first occurrence",
			content:  `ab@acme.io, cd@acme.io, ab@acme.io`,
			expected: []string{"ab@acme.io", "cd@acme.io"},
		},
		{
			name:     "upper case lowered",
			content:  `Sales@Acme.IO`,
			expected: []string{"sales@acme.io"},
		},
		{
			name:     "single char local part rejected",
			content:  `(a@acme.io)`,
			expected: nil,
		},
		{
			name:     "empty input",
			content:  "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scraper.FindEmails(tt.content))
		})
	}
}

func TestFindEmailsInMarkup(t *testing.T) {
	html := `<html><body>
		<a href="mailto:owner@acme-bakery.com">Email us</a>
		<img src="logo.png">
	</body></html>`

	got := scraper.FindEmails(html)

	assert.Contains(t, got, "owner@acme-bakery.com")
}

func TestExtractSocialLinks(t *testing.T) {
	html := `<html><body>
		<a href="https://www.facebook.com/acmebakery/?utm_source=web#about">fb</a>
		<a href="https://instagram.com/acmebakery/">ig</a>
		<a href="https://x.com/acmebakery?ref=home">x</a>
	</body></html>`

	got := scraper.ExtractSocialLinks(html)

	assert.Equal(t, "https://www.facebook.com/acmebakery", got.Facebook)
	assert.Equal(t, "https://instagram.com/acmebakery", got.Instagram)
	assert.Equal(t, "https://x.com/acmebakery", got.Twitter)
	assert.Empty(t, got.LinkedIn)
}

func TestSocialLinksMerge(t *testing.T) {
	s := scraper.SocialLinks{Facebook: "https://facebook.com/a"}
	s.Merge(scraper.SocialLinks{
		Facebook:  "https://facebook.com/other",
		Instagram: "https://instagram.com/a",
	})

	assert.Equal(t, "https://facebook.com/a", s.Facebook, "existing value kept")
	assert.Equal(t, "https://instagram.com/a", s.Instagram)
}

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "google redirect unwrapped",
			raw:      "https://www.google.com/url?sa=t&q=https%3A%2F%2Facme.io%2Fhome&usg=x",
			expected: "https://acme.io/home",
		},
		{
			name:     "scheme defaulted",
			raw:      "acme.io",
			expected: "https://acme.io",
		},
		{
			name:     "fragment stripped",
			raw:      "https://acme.io/page#section",
			expected: "https://acme.io/page",
		},
		{
			name:     "empty stays empty",
			raw:      "  ",
			expected: "",
		},
		{
			name:     "http kept",
			raw:      "http://acme.io",
			expected: "http://acme.io",
		},
		{
			name:     "trailing slash stripped",
			raw:      "https://acme.io/",
			expected: "https://acme.io",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scraper.NormalizeWebsite(tt.raw))
		})
	}
}

func TestContactPageLinks(t *testing.T) {
	html := `<html><body>
		<a href="/contact">Contact</a>
		<a href="/about-us">About</a>
		<a href="https://other-host.com/contact">External contact</a>
		<a href="/products">Products</a>
		<a href="/contact">Contact again</a>
	</body></html>`

	got := scraper.ContactPageLinks("https://acme.io/home", html, 3)

	assert.Equal(t, []string{
		"https://acme.io/contact",
		"https://acme.io/about-us",
	}, got)
}

func TestContactPageLinksLimit(t *testing.T) {
	html := `<html><body>
		<a href="/contact-1">c</a>
		<a href="/contact-2">c</a>
		<a href="/contact-3">c</a>
		<a href="/contact-4">c</a>
	</body></html>`

	got := scraper.ContactPageLinks("https://acme.io", html, 3)

	assert.Len(t, got, 3)
}

func TestFindPhone(t *testing.T) {
	assert.Equal(t, "+1 212-555-0188", scraper.FindPhone(`call +1 212-555-0188 now`))
	assert.Empty(t, scraper.FindPhone("no digits here"))
}

func TestParseRating(t *testing.T) {
	rating, reviews := scraper.ParseRating("4,5 (1.234)")
	assert.Equal(t, "4.5", rating)
	assert.Equal(t, "1234", reviews)

	rating, reviews = scraper.ParseRating("4.8 (52)")
	assert.Equal(t, "4.8", rating)
	assert.Equal(t, "52", reviews)

	rating, reviews = scraper.ParseRating("")
	assert.Empty(t, rating)
	assert.Empty(t, reviews)
}

func TestMergeEmails(t *testing.T) {
	got := scraper.MergeEmails(
		[]string{"a@x.io", "b@x.io"},
		[]string{"b@x.io", "c@x.io"},
		nil,
	)

	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, got)
}

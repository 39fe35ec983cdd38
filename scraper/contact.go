package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	emailaddress "github.com/mcnijman/go-emailaddress"
)

// Contact extraction is pure text/markup analysis. Nothing in this file
// touches the network or a browser.

var (
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe      = regexp.MustCompile(`(\+?\d[\d\s\-\(\)]{7,})`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	ratingRe     = regexp.MustCompile(`(\d[.,]\d+)`)
	reviewsRe    = regexp.MustCompile(`\((\d{1,3}(?:[.,]\d{3})*)\)`)
	sepRe        = regexp.MustCompile(`[.,]`)
)

var socialRes = map[string]*regexp.Regexp{
	"facebook":  regexp.MustCompile(`(?i)https?://(?:www\.)?facebook\.com/[^\s"'<>]+`),
	"instagram": regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[^\s"'<>]+`),
	"twitter":   regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter|x)\.com/[^\s"'<>]+`),
	"linkedin":  regexp.MustCompile(`(?i)https?://(?:[a-z]{2,3}\.)?linkedin\.com/[^\s"'<>]+`),
}

// blacklistDomains are platform and search-engine domains that never hold a
// business contact address.
var blacklistDomains = map[string]struct{}{
	"example.com":     {},
	"w3.org":          {},
	"schema.org":      {},
	"maps.google.com": {},
	"google.com":      {},
	"facebook.com":    {},
	"instagram.com":   {},
	"twitter.com":     {},
	"x.com":           {},
	"linkedin.com":    {},
}

var blacklistKeywords = []string{
	"noreply", "no-reply", "privacy", "support", "postmaster", "webmaster", "abuse",
}

// contactKeywords identify links likely to lead to a contact/about page.
var contactKeywords = []string{"contact", "about", "team", "info", "legal", "privacy"}

// Deobfuscate normalizes common email obfuscation patterns and strips all
// whitespace.
func Deobfuscate(text string) string {
	text = strings.ToLower(text)

	replacements := [][2]string{
		{"[at]", "@"}, {"(at)", "@"}, {" at ", "@"},
		{"[dot]", "."}, {"(dot)", "."}, {" dot ", "."},
	}
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r[0], r[1])
	}

	return whitespaceRe.ReplaceAllString(text, "")
}

// FindEmails returns the cleaned, deduplicated emails found in a blob of
// text or markup, first occurrence order preserved, all lower-cased.
func FindEmails(content string) []string {
	if content == "" {
		return nil
	}

	candidates := emailRe.FindAllString(Deobfuscate(content), -1)

	seen := make(map[string]struct{})

	var out []string

	for _, candidate := range candidates {
		email := strings.ToLower(strings.TrimSpace(candidate))

		if strings.Count(email, "@") != 1 {
			continue
		}

		local, domain, _ := strings.Cut(email, "@")
		if len(local) < 2 || len(domain) < 3 {
			continue
		}

		if _, ok := blacklistDomains[domain]; ok {
			continue
		}

		if hasBlacklistedKeyword(local) {
			continue
		}

		if _, err := emailaddress.Parse(email); err != nil {
			continue
		}

		if _, ok := seen[email]; ok {
			continue
		}

		seen[email] = struct{}{}
		out = append(out, email)
	}

	return out
}

func hasBlacklistedKeyword(local string) bool {
	for _, kw := range blacklistKeywords {
		if strings.Contains(local, kw) {
			return true
		}
	}

	return false
}

// SocialLinks holds the first discovered profile URL per platform; absent
// platforms are empty strings.
type SocialLinks struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
}

// Merge fills empty fields from other without overwriting existing ones.
func (s *SocialLinks) Merge(other SocialLinks) {
	if s.Facebook == "" {
		s.Facebook = other.Facebook
	}
	if s.Instagram == "" {
		s.Instagram = other.Instagram
	}
	if s.Twitter == "" {
		s.Twitter = other.Twitter
	}
	if s.LinkedIn == "" {
		s.LinkedIn = other.LinkedIn
	}
}

// ExtractSocialLinks finds the first profile link per platform in the
// markup, with tracking query strings and fragments stripped.
func ExtractSocialLinks(content string) SocialLinks {
	clean := func(re *regexp.Regexp) string {
		match := re.FindString(content)
		if match == "" {
			return ""
		}

		match, _, _ = strings.Cut(match, "?")
		match, _, _ = strings.Cut(match, "#")

		return strings.TrimRight(match, "/")
	}

	return SocialLinks{
		Facebook:  clean(socialRes["facebook"]),
		Instagram: clean(socialRes["instagram"]),
		Twitter:   clean(socialRes["twitter"]),
		LinkedIn:  clean(socialRes["linkedin"]),
	}
}

// NormalizeWebsite unwraps search-engine redirect URLs, defaults the scheme
// to https and strips the fragment and any trailing slash.
func NormalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if strings.Contains(raw, "google.com/url?") {
		if u, err := url.Parse(raw); err == nil {
			if target := u.Query().Get("q"); target != "" {
				raw = target
			}
		}
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	raw, _, _ = strings.Cut(raw, "#")

	return strings.TrimRight(raw, "/")
}

// ContactPageLinks returns up to limit same-host links from the markup whose
// href or text suggests a contact/about page.
func ContactPageLinks(pageURL, content string, limit int) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})

	var out []string

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		text := strings.ToLower(s.Text())

		if !containsAny(strings.ToLower(href), contactKeywords) && !containsAny(text, contactKeywords) {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}

		full := base.ResolveReference(ref)
		if full.Host != base.Host {
			return true
		}

		full.Fragment = ""

		link := full.String()
		if _, ok := seen[link]; ok {
			return true
		}

		seen[link] = struct{}{}
		out = append(out, link)

		return len(out) < limit
	})

	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}

	return false
}

// FindPhone is the regex fallback used when no phone selector matched.
func FindPhone(content string) string {
	match := phoneRe.FindString(content)

	return strings.TrimSpace(match)
}

// ParseRating splits a rating widget text like "4,5 (1.234)" into the
// rating value and the review count.
func ParseRating(text string) (rating, reviewCount string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))

	if m := ratingRe.FindStringSubmatch(text); m != nil {
		rating = m[1]
	}

	if m := reviewsRe.FindStringSubmatch(text); m != nil {
		reviewCount = sepRe.ReplaceAllString(m[1], "")
	}

	return rating, reviewCount
}

// MergeEmails unions email sets into one deduplicated list.
func MergeEmails(sets ...[]string) []string {
	seen := make(map[string]struct{})

	var out []string

	for _, set := range sets {
		for _, email := range set {
			if _, ok := seen[email]; ok {
				continue
			}

			seen[email] = struct{}{}
			out = append(out, email)
		}
	}

	return out
}

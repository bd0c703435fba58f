package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/seedscout/seedscout-cli/internal/model"
)

// Ordered company-name templates. Earlier patterns are higher precision;
// the first hit that survives the generic-token filter wins.
var companyPatterns = []*regexp.Regexp{
	// "Acme raises $5M", "Acme Robotics secures $12 million".
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.']*(?:[ -][A-Z][A-Za-z0-9&.']*){0,3})\s+(?:raises|raised|secures|secured|closes|closed|lands|landed|nabs|nabbed)\s+\$`),
	// "Acme, a fintech startup".
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.']*(?:[ -][A-Z][A-Za-z0-9&.']*){0,3}),\s+an?\s+[a-z][a-z -]*\s+(?:startup|company|platform)`),
	// Quoted name near funding language.
	regexp.MustCompile(`[“"]([A-Z][A-Za-z0-9&.' -]{1,40})[”"]`),
}

// genericTokens are capitalized words that match the name templates but
// never denote a real company.
var genericTokens = map[string]bool{
	"The": true, "This": true, "That": true, "It": true, "Startup": true,
	"Startups": true, "Today": true, "Meanwhile": true, "However": true,
	"TechCrunch": true, "Exclusive": true, "Breaking": true, "Series": true,
	"Seed": true, "Venture": true, "Founders": true, "Investors": true,
}

var (
	amountPattern = regexp.MustCompile(`\$\s?(\d+(?:\.\d+)?)\s?(billion|million|[BMK])\b`)
	datePattern   = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}\b`)
	cityStPattern = regexp.MustCompile(`\b([A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)?),\s([A-Z]{2})\b`)
	domainPattern = regexp.MustCompile(`\b([a-z0-9][a-z0-9-]*\.(?:com|io|ai|co|dev|app|org|net))\b`)
)

// Stage keywords checked in fixed priority order. The first stage whose
// keyword appears in the text wins; text mentioning no stage defaults
// to Seed.
var stageKeywords = []struct {
	stage    string
	keywords []string
}{
	{"Pre-Seed", []string{"pre-seed", "preseed"}},
	{"Seed", []string{"seed round", "seed funding", "seed"}},
	{"Series A", []string{"series a"}},
	{"Series B", []string{"series b"}},
	{"Series C", []string{"series c"}},
	{"Series D", []string{"series d"}},
	{"Bridge", []string{"bridge round", "bridge financing"}},
	{"IPO", []string{"ipo", "initial public offering"}},
}

// Known startup hubs, checked before the generic "City, ST" regex.
var locationHubs = []string{
	"San Francisco", "New York", "Boston", "Austin", "Seattle",
	"Los Angeles", "Chicago", "Miami", "Denver", "Atlanta",
	"London", "Berlin", "Paris", "Tel Aviv", "Toronto",
	"Singapore", "Bangalore", "Sydney",
}

// Industry keyword map. Keys are lowercase substrings matched against
// the article text; iteration order is fixed by the slice.
var industryKeywords = []struct {
	keyword  string
	industry string
}{
	{"fintech", "Fintech"},
	{"financial services", "Fintech"},
	{"healthtech", "Healthcare"},
	{"healthcare", "Healthcare"},
	{"biotech", "Biotech"},
	{"edtech", "Education"},
	{"climate", "Climate Tech"},
	{"cybersecurity", "Cybersecurity"},
	{"security", "Cybersecurity"},
	{"artificial intelligence", "AI/ML"},
	{" ai ", "AI/ML"},
	{"machine learning", "AI/ML"},
	{"robotics", "Robotics"},
	{"logistics", "Logistics"},
	{"e-commerce", "E-commerce"},
	{"ecommerce", "E-commerce"},
	{"proptech", "Real Estate"},
	{"real estate", "Real Estate"},
	{"gaming", "Gaming"},
	{"crypto", "Crypto"},
	{"blockchain", "Crypto"},
	{"developer tools", "Developer Tools"},
	{"saas", "SaaS"},
}

// socialDomains are never a company website.
var socialDomains = map[string]bool{
	"twitter.com": true, "x.com": true, "facebook.com": true,
	"linkedin.com": true, "instagram.com": true, "youtube.com": true,
	"techcrunch.com": true, "crunchbase.com": true, "medium.com": true,
	"tiktok.com": true, "github.com": true,
}

// Patterns applies the deterministic extractors to an article. It always
// returns a record; CompanyName is empty when no template matched.
func Patterns(article model.ArticleCandidate) model.ExtractedRecord {
	text := article.Title + "\n" + article.RawContent
	lower := strings.ToLower(text)

	rec := model.ExtractedRecord{
		CompanyName:      companyName(text),
		AmountRaised:     amount(text),
		FundingStage:     stage(lower),
		DateRaised:       DateMention(text),
		Location:         location(text),
		Industry:         industry(lower),
		BusinessType:     businessType(lower),
		SourceArticleURL: article.URL,
	}
	rec.Website = website(lower, rec.CompanyName, article.URL)
	return rec
}

// titleCaser canonicalizes city casing, so an all-caps dateline like
// "BOISE, ID" still yields "Boise, ID".
var titleCaser = cases.Title(language.AmericanEnglish)

func companyName(text string) string {
	for _, p := range companyPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if name == "" || genericTokens[name] {
			continue
		}
		// Multi-word candidates whose first word is generic are noise
		// from sentence starts ("The Startup raises ...").
		if first, _, ok := strings.Cut(name, " "); ok && genericTokens[first] {
			continue
		}
		return name
	}
	return ""
}

func amount(text string) string {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	unit := m[2]
	switch strings.ToLower(unit) {
	case "billion", "b":
		return "$" + m[1] + "B"
	case "million", "m":
		return "$" + m[1] + "M"
	default:
		return "$" + m[1] + "K"
	}
}

func stage(lower string) string {
	for _, s := range stageKeywords {
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) {
				return s.stage
			}
		}
	}
	return "Seed"
}

func location(text string) string {
	lower := strings.ToLower(text)
	for _, hub := range locationHubs {
		if strings.Contains(lower, strings.ToLower(hub)) {
			return hub
		}
	}
	if m := cityStPattern.FindStringSubmatch(text); m != nil {
		return titleCaser.String(m[1]) + ", " + m[2]
	}
	return ""
}

func industry(lower string) string {
	for _, ik := range industryKeywords {
		if strings.Contains(lower, ik.keyword) {
			return ik.industry
		}
	}
	return ""
}

func businessType(lower string) string {
	switch {
	case strings.Contains(lower, "b2b") || strings.Contains(lower, "enterprise customers") || strings.Contains(lower, "for businesses"):
		return "B2B"
	case strings.Contains(lower, "b2c") || strings.Contains(lower, "consumer app") || strings.Contains(lower, "for consumers"):
		return "B2C"
	default:
		return ""
	}
}

// website returns the first non-social domain mentioned in the text that
// is not the article's own host, else a slug derived from the company
// name.
func website(lower, name, sourceURL string) string {
	sourceHost := hostOf(sourceURL)
	for _, m := range domainPattern.FindAllStringSubmatch(lower, -1) {
		d := m[1]
		if socialDomains[d] || d == sourceHost {
			continue
		}
		return d
	}
	if name == "" {
		return ""
	}
	return slugDomain(name)
}

func hostOf(rawURL string) string {
	u := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	u = strings.TrimPrefix(u, "www.")
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	return u
}

// slugDomain builds "acmerobotics.com" from "Acme Robotics, Inc.".
func slugDomain(name string) string {
	s := strings.ToLower(name)
	for _, suffix := range []string{", inc.", ", inc", " inc.", " inc", ", llc", " llc"} {
		s = strings.TrimSuffix(s, suffix)
	}
	s = strings.TrimPrefix(s, "the ")
	s = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return ""
	}
	return s + ".com"
}

// DateMention returns the first "Month DD, YYYY" mention in the text,
// or "" when none is present.
func DateMention(text string) string {
	return datePattern.FindString(text)
}

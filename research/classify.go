package research

import (
	"net/url"
	"strings"
)

// domainTypes maps registered domains to source categories. Lookup is by
// longest matching domain suffix, so "blog.nature.com" resolves through
// "nature.com".
var domainTypes = map[string]SourceType{
	// Academic
	"arxiv.org":         SourceAcademic,
	"nature.com":        SourceAcademic,
	"science.org":       SourceAcademic,
	"sciencedirect.com": SourceAcademic,
	"springer.com":      SourceAcademic,
	"ieee.org":          SourceAcademic,
	"acm.org":           SourceAcademic,
	"ncbi.nlm.nih.gov":  SourceAcademic,
	"pubmed.gov":        SourceAcademic,
	"researchgate.net":  SourceAcademic,

	// News
	"techcrunch.com":       SourceNews,
	"wired.com":            SourceNews,
	"theverge.com":         SourceNews,
	"reuters.com":          SourceNews,
	"bbc.com":              SourceNews,
	"cnn.com":              SourceNews,
	"nytimes.com":          SourceNews,
	"wsj.com":              SourceNews,
	"arstechnica.com":      SourceNews,
	"technologyreview.com": SourceNews,

	// Industry
	"ibm.com":       SourceIndustry,
	"google.com":    SourceIndustry,
	"microsoft.com": SourceIndustry,
	"amazon.com":    SourceIndustry,
	"nvidia.com":    SourceIndustry,
	"intel.com":     SourceIndustry,

	// Wiki
	"wikipedia.org": SourceWiki,

	// Blogs
	"medium.com":   SourceBlog,
	"substack.com": SourceBlog,
	"dev.to":       SourceBlog,
}

// publications maps registered domains to display names for citations.
var publications = map[string]string{
	"nature.com":     "Nature",
	"science.org":    "Science",
	"arxiv.org":      "arXiv",
	"techcrunch.com": "TechCrunch",
	"wired.com":      "Wired",
	"theverge.com":   "The Verge",
	"reuters.com":    "Reuters",
	"bbc.com":        "BBC",
	"nytimes.com":    "New York Times",
	"wikipedia.org":  "Wikipedia",
	"medium.com":     "Medium",
}

// ClassifySource maps a URL to a coarse source category.
func ClassifySource(rawURL string) SourceType {
	if t, ok := lookupDomain(rawURL, func(d string) (SourceType, bool) {
		t, ok := domainTypes[d]
		return t, ok
	}); ok {
		return t
	}
	return SourceOther
}

// ExtractPublication returns the publication display name for a URL, or ""
// when the domain is unknown.
func ExtractPublication(rawURL string) string {
	if p, ok := lookupDomain(rawURL, func(d string) (string, bool) {
		p, ok := publications[d]
		return p, ok
	}); ok {
		return p
	}
	return ""
}

// lookupDomain resolves the host of rawURL and walks its suffixes from the
// longest down, returning the first table hit. "www.blog.nature.com" is
// tried as-is, then "blog.nature.com", then "nature.com", then "com".
func lookupDomain[T any](rawURL string, get func(domain string) (T, bool)) (T, bool) {
	var zero T

	host := hostOf(rawURL)
	if host == "" {
		return zero, false
	}

	labels := strings.Split(host, ".")
	for i := 0; i < len(labels); i++ {
		candidate := strings.Join(labels[i:], ".")
		if v, ok := get(candidate); ok {
			return v, true
		}
	}
	return zero, false
}

func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	u, err := url.Parse(raw)
	if err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	// Schemeless URLs ("nature.com/articles/x") parse entirely into the
	// path; retry with a scheme before giving up.
	if raw != "" && !strings.Contains(raw, "://") {
		if u, err = url.Parse("https://" + raw); err == nil && u.Host != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	return ""
}

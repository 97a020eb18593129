package fingerprint

import "strings"

// Signals are the technology markers found in a Fingerprint.
type Signals struct {
	WordPress bool `json:"wordpress"`
	Drupal    bool `json:"drupal"`
	Joomla    bool `json:"joomla"`
	API       bool `json:"api"`
	IIS       bool `json:"iis"`
	PHP       bool `json:"php"`
}

type rule struct {
	name  string
	match func(Fingerprint) bool
	flag  func(*Signals) *bool
}

func bodyHas(f Fingerprint, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(f.Body, n) {
			return true
		}
	}
	return false
}

// rules is evaluated in order; every matching rule contributes its signal.
var rules = []rule{
	{
		name: "wordpress",
		match: func(f Fingerprint) bool {
			return bodyHas(f, "wp-content", "wp-includes") || strings.Contains(f.Generator, "wordpress")
		},
		flag: func(s *Signals) *bool { return &s.WordPress },
	},
	{
		name: "drupal",
		match: func(f Fingerprint) bool {
			return bodyHas(f, "drupal.settings", "sites/all/modules") || strings.Contains(f.Generator, "drupal")
		},
		flag: func(s *Signals) *bool { return &s.Drupal },
	},
	{
		name: "joomla",
		match: func(f Fingerprint) bool {
			return bodyHas(f, "joomla") || strings.Contains(f.Generator, "joomla")
		},
		flag: func(s *Signals) *bool { return &s.Joomla },
	},
	{
		name: "api",
		match: func(f Fingerprint) bool {
			return strings.Contains(f.header("content-type"), "application/json") || bodyHas(f, "swagger", "openapi")
		},
		flag: func(s *Signals) *bool { return &s.API },
	},
	{
		name: "iis",
		match: func(f Fingerprint) bool {
			return strings.Contains(f.header("server"), "microsoft-iis") || strings.Contains(f.header("x-powered-by"), "asp.net")
		},
		flag: func(s *Signals) *bool { return &s.IIS },
	},
	{
		name: "php",
		match: func(f Fingerprint) bool {
			return strings.Contains(f.header("x-powered-by"), "php") || bodyHas(f, "php")
		},
		flag: func(s *Signals) *bool { return &s.PHP },
	},
}

// Detect evaluates every signal rule against f.
func Detect(f Fingerprint) Signals {
	var s Signals
	for _, r := range rules {
		if r.match(f) {
			*r.flag(&s) = true
		}
	}
	return s
}

// CMS reports whether any CMS marker matched.
func (s Signals) CMS() bool {
	return s.WordPress || s.Drupal || s.Joomla
}

// Names lists the matched signals in rule order.
func (s Signals) Names() []string {
	names := []string{}
	for _, r := range rules {
		if *r.flag(&s) {
			names = append(names, r.name)
		}
	}
	return names
}

// ExtensionHints returns the extensions appended to every candidate.
// IIS wins over PHP.
func ExtensionHints(s Signals) []string {
	switch {
	case s.IIS:
		return []string{".aspx", ".asp"}
	case s.PHP:
		return []string{".php"}
	default:
		return []string{}
	}
}

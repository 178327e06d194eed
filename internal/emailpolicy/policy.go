// Package emailpolicy decides which email addresses are acceptable at
// signup. The domain policy is an interface so the heuristic provider lists
// can be tested and swapped independently of the credential store.
package emailpolicy

import (
	"regexp"
	"strings"

	"github.com/incomiq/incomiq/internal/common"
)

// Policy reports whether an email domain is acceptable for signup.
type Policy interface {
	Acceptable(domain string) bool
}

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validate checks the syntax of email and then applies the policy to its
// domain. The email must already be canonicalized (lower-cased, trimmed).
// It returns common.ErrInvalidEmail on rejection.
func Validate(email string, p Policy) error {
	if !addressPattern.MatchString(email) {
		return common.ErrInvalidEmail
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if !p.Acceptable(domain) {
		return common.ErrInvalidEmail
	}
	return nil
}

// known email providers, plus educational suffixes matched as ".<entry>"
var defaultAllowedDomains = []string{
	// major providers
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.in", "yahoo.co.in",
	"outlook.com", "hotmail.com", "live.com", "msn.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com", "zohomail.in",
	"mail.com",
	"gmx.com", "gmx.net",
	"yandex.com", "yandex.ru",
	// Indian providers
	"rediffmail.com", "rediff.com",
	"in.com",
	// educational / work, matched by suffix
	"edu", "ac.in", "edu.in",
}

var (
	suspiciousSubstrings = []string{"temp", "fake", "test", "example", "random", "asdf"}
	suspiciousShapes     = []*regexp.Regexp{
		regexp.MustCompile(`^[a-z]{10,}\.com$`),         // long run of random letters
		regexp.MustCompile(`^[a-z]+[0-9]+[a-z]+\.com$`), // letters-digits-letters
	}
)

// DefaultPolicy is the heuristic allow/deny policy carried over from the
// production sign-up flow. It is deliberately not exhaustive: the allow-list
// names known consumer providers, and the deny heuristics catch
// suspicious-looking throwaway domains. The deny heuristics win.
type DefaultPolicy struct{}

// Default returns the built-in provider policy.
func Default() Policy { return DefaultPolicy{} }

// Acceptable implements Policy.
func (DefaultPolicy) Acceptable(domain string) bool {
	ok := false
	for _, allowed := range defaultAllowedDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			ok = true
			break
		}
	}

	for _, s := range suspiciousSubstrings {
		if strings.Contains(domain, s) {
			return false
		}
	}
	for _, re := range suspiciousShapes {
		if re.MatchString(domain) {
			return false
		}
	}

	return ok
}

// AllowAll accepts every syntactically valid domain. Useful in tests and
// closed deployments.
type AllowAll struct{}

// Acceptable implements Policy.
func (AllowAll) Acceptable(string) bool { return true }

package render

import (
	"regexp"

	"MailMinder/internal/models"
)

// Placeholders look like {name} or {company_size}. Anything else,
// including braces around non-identifiers, passes through untouched.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Fill substitutes {field} tokens in pattern, looking keys up in the
// contact fields first and the sender profile fields second. Matching is
// exact and case-sensitive. Unresolved tokens are left verbatim: templates
// are best-effort personalization, not strict interpolation. The pattern
// is scanned once, so substituted values are never re-expanded.
func Fill(pattern string, contactFields, profileFields map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(pattern, func(token string) string {
		key := token[1 : len(token)-1]
		if v, ok := contactFields[key]; ok {
			return v
		}
		if v, ok := profileFields[key]; ok {
			return v
		}
		return token
	})
}

// Email renders a template's subject and body against one contact and the
// sender's profile. With withSignature set, the profile signature (itself
// filled from profile fields only) is appended to the body.
func Email(tmpl *models.Template, contact *models.Contact, profile *models.Profile, withSignature bool) (subject, body string) {
	contactFields := contact.Fields()
	profileFields := profile.Fields()

	subject = Fill(tmpl.Subject, contactFields, profileFields)
	body = Fill(tmpl.Body, contactFields, profileFields)

	if withSignature && profile.Signature != "" {
		body += "\n\n--\n" + Fill(profile.Signature, nil, profileFields)
	}
	return subject, body
}

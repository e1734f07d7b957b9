// Package contacts parses one line of pasted text into a contact.
//
// A line holds a name and one or more phone numbers, e.g.
//
//	Alice 138 0013 8000
//	Bob, +86 139-0013-9000; 010-12345678
//	13700137000
//
// Fields may be separated by commas, semicolons, tabs or pipes (ASCII or
// full-width). Full-width digits count as digits. Within a field, a run of
// digits with spaces, dashes, dots or parentheses is a phone number if it has
// between 5 and 15 digits. A longer run is split at its spaces into several
// numbers when possible, so "138 0013 8000 139 0013 9000" holds two. Whatever
// is not a phone number becomes the name.
package contacts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minPhoneDigits = 5
	maxPhoneDigits = 15
)

var (
	fieldSeparators = regexp.MustCompile(`[,;|\t，；、｜]+`)
	phoneRun        = regexp.MustCompile(`\+?\(?\d[\d\s\-().]*\d\)?`)
	normalizedPhone = regexp.MustCompile(`^\+?[0-9]{5,15}$`)
)

// Parser turns lines into contacts. It is safe for concurrent use.
type Parser struct {
	validate *validator.Validate
}

func NewParser() *Parser {
	v := validator.New()
	// RegisterValidation only fails for empty tags or reserved names.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return normalizedPhone.MatchString(fl.Field().String())
	})
	return &Parser{validate: v}
}

// ParseLine parses a single non-blank line. Lines without any phone number
// return an error wrapping ErrInvalidLine.
func (p *Parser) ParseLine(line string) (Contact, error) {
	var nameParts []string
	var phones []string
	seen := make(map[string]bool)

	for _, field := range fieldSeparators.Split(foldWidth(line), -1) {
		rest, found := extractPhones(field)
		for _, phone := range found {
			if !seen[phone] {
				seen[phone] = true
				phones = append(phones, phone)
			}
		}
		if name := cleanName(rest); name != "" {
			nameParts = append(nameParts, name)
		}
	}

	contact := Contact{
		Name:   strings.Join(nameParts, " "),
		Phones: phones,
	}
	if err := p.validate.Struct(contact); err != nil {
		return Contact{}, fmt.Errorf("%w: %v", ErrInvalidLine, err)
	}
	return contact, nil
}

// extractPhones pulls phone numbers out of a field and returns the remaining
// text. Runs glued to ASCII letters or digits ("Agent007") are not numbers.
func extractPhones(field string) (string, []string) {
	var rest strings.Builder
	var phones []string
	last := 0
	for _, loc := range phoneRun.FindAllStringIndex(field, -1) {
		start, end := loc[0], loc[1]
		if !atTokenBoundary(field, start, end) {
			continue
		}
		found := phonesInRun(field[start:end])
		if len(found) == 0 {
			continue
		}
		rest.WriteString(field[last:start])
		rest.WriteByte(' ')
		last = end
		phones = append(phones, found...)
	}
	rest.WriteString(field[last:])
	return rest.String(), phones
}

func atTokenBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isASCIIAlnum(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isASCIIAlnum(r) {
			return false
		}
	}
	return true
}

// foldWidth rewrites full-width digits, plus signs, hyphens and ideographic
// spaces as their ASCII forms. Other characters are left alone.
func foldWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '＋':
			return '+'
		case r == '－':
			return '-'
		case r == '\u3000':
			return ' '
		}
		return r
	}, s)
}

func isASCIIAlnum(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// phonesInRun returns the phone numbers in a digit run. A run that is too
// long to be one number is split between its space separated chunks into as
// few numbers as possible, preferring the most even split. If no split works,
// each chunk is tried on its own.
func phonesInRun(run string) []string {
	if phone, ok := normalizePhone(run); ok {
		return []string{phone}
	}
	chunks := strings.Fields(run)
	if phones := splitRun(chunks); len(phones) > 0 {
		return phones
	}

	var phones []string
	for _, chunk := range chunks {
		if phone, ok := normalizePhone(chunk); ok {
			phones = append(phones, phone)
		}
	}
	if len(phones) == 0 {
		return nil
	}
	return phones
}

// splitRun partitions chunks into consecutive groups that each normalize to a
// phone number. Among partitions with the fewest groups it picks the one with
// the smallest sum of squared group lengths. Returns nil if none exists.
func splitRun(chunks []string) []string {
	type plan struct {
		groups int
		spread int
		next   int
		phone  string
	}

	n := len(chunks)
	best := make([]*plan, n+1)
	best[n] = &plan{}
	for i := n - 1; i >= 0; i-- {
		for j := i + 1; j <= n; j++ {
			if best[j] == nil {
				continue
			}
			phone, ok := normalizePhone(strings.Join(chunks[i:j], " "))
			if !ok {
				continue
			}
			digits := len(strings.TrimPrefix(phone, "+"))
			candidate := &plan{
				groups: best[j].groups + 1,
				spread: best[j].spread + digits*digits,
				next:   j,
				phone:  phone,
			}
			if cur := best[i]; cur == nil || candidate.groups < cur.groups ||
				(candidate.groups == cur.groups && candidate.spread < cur.spread) {
				best[i] = candidate
			}
		}
	}

	if best[0] == nil {
		return nil
	}
	var phones []string
	for i := 0; i < n; i = best[i].next {
		phones = append(phones, best[i].phone)
	}
	return phones
}

func normalizePhone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return "", false
	}
	return b.String(), true
}

func cleanName(s string) string {
	name := strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(strings.Trim(name, ":：-—"))
}

package service

import "strings"

// NormalizeISBN strips hyphens and spaces and validates the ISBN-10 or
// ISBN-13 checksum. It returns the bare digits.
func NormalizeISBN(raw string) (string, error) {
	isbn := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(raw))
	switch len(isbn) {
	case 10:
		if validISBN10(isbn) {
			return isbn, nil
		}
	case 13:
		if validISBN13(isbn) {
			return isbn, nil
		}
	}
	return "", ErrInvalidISBN.withf("invalid ISBN %q", raw)
}

func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}

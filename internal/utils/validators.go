package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	cnicPattern     = regexp.MustCompile(`^\d{5}-\d{7}-\d$`)
	studentIDRegexp = regexp.MustCompile(`^[A-Za-z0-9]{4,}$`)
	teamNameRegexp  = regexp.MustCompile(`^[A-Za-z0-9 _.\-]{3,50}$`)
	githubRegexp    = regexp.MustCompile(`^https?://github\.com/[\w.\-]+/?$`)
)

// ReceiptExtensions are the file types accepted as payment proof.
var ReceiptExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

// ValidCNIC checks the national ID format #####-#######-#.
func ValidCNIC(cnic string) bool {
	return cnicPattern.MatchString(cnic)
}

// ValidStudentID accepts alphanumeric ids of at least four characters.
func ValidStudentID(id string) bool {
	return studentIDRegexp.MatchString(id)
}

// ValidTeamName allows 3 to 50 letters, digits, spaces and - _ .
func ValidTeamName(name string) bool {
	return teamNameRegexp.MatchString(name)
}

// ValidGithubURL accepts an empty value or a profile URL.
func ValidGithubURL(url string) bool {
	return url == "" || githubRegexp.MatchString(url)
}

// ValidPassword enforces bcrypt's 72 byte input limit and a minimum length.
func ValidPassword(pw string) bool {
	return len(pw) >= 8 && len(pw) <= 72
}

// ValidReceiptExt reports whether filename has an accepted receipt extension.
func ValidReceiptExt(filename string) bool {
	return ReceiptExtensions[strings.ToLower(filepath.Ext(filename))]
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TeamCodeLength is the length of generated team join codes.
const TeamCodeLength = 8

// GenerateTeamCode returns a random upper-case alphanumeric join code.
func GenerateTeamCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, TeamCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate team code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeTeamCode upper-cases and trims a user supplied code.
func NormalizeTeamCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package account

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadCredentials reads one credential per line from path.
func LoadCredentials(path string) ([]Credential, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open credentials file")
	}
	defer file.Close()
	return ReadCredentials(file)
}

// ReadCredentials keeps file order. Blank lines and lines starting with # are skipped.
func ReadCredentials(r io.Reader) ([]Credential, error) {
	var credentials []Credential
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		credentials = append(credentials, Credential(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read credentials")
	}
	return credentials, nil
}

package user

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// CodeGenerator produces one-time codes.
type CodeGenerator interface {
	Generate() (int, error)
}

// RandomCode draws six-digit codes from crypto/rand.
type RandomCode struct{}

func (RandomCode) Generate() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return 0, fmt.Errorf("generate code: %w", err)
	}
	return codeMin + int(n.Int64()), nil
}

// SMSCode accepts a JSON number or a string of digits, so "000000" keeps its meaning.
type SMSCode int

func (c *SMSCode) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("sms code %q is not numeric", s)
	}
	*c = SMSCode(n)
	return nil
}

var _ json.Unmarshaler = (*SMSCode)(nil)

package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number is an integer that travels as a JSON string ("3") but is also
// accepted as a plain JSON number.
type Number int

func (n Number) String() string {
	return strconv.Itoa(int(n))
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", data, err)
	}
	*n = Number(v)
	return nil
}

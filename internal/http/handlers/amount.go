package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
)

// amountValue keeps the literal text of a JSON number or string so the
// amount is parsed as a decimal and never round-trips through float64.
type amountValue string

func (a *amountValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("amount must be a number")
	}
	*a = amountValue(n.String())
	return nil
}

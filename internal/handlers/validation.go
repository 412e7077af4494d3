package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"walletledger/internal/apperr"
	"walletledger/internal/money"
)

const maxBodyBytes = 1 << 20

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Validation("body", "request body could not be read")
	}
	return body, nil
}

// decodeJSON keeps numbers as json.Number so amounts are never routed
// through float64.
func decodeJSON(body []byte, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		return apperr.Validation("body", "invalid JSON payload")
	}
	return nil
}

func parseAmount(raw json.Number, maxMinor int64) (int64, error) {
	amount, err := money.ParseMinor(raw.String(), maxMinor)
	if err != nil {
		return 0, apperr.Validation("amount", err.Error())
	}
	return amount, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name, name+" must be an integer")
	}
	return value, nil
}

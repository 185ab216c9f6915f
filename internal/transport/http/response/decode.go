package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/localmart/marketplace-service/internal/domain"
)

// DecodeJSON decodes a JSON request body into dst. Unknown fields and
// trailing values ({}{}) are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}

	if err := dec.Decode(&struct{}{}); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ErrInvalidJSON(err)
	}
	return domain.ErrInvalidJSON(errors.New("multiple JSON values"))
}

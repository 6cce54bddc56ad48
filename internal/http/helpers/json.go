package helpers

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/dropDatabas3/creatorverse/internal/http/errors"
)

// MaxBodyBytes es el límite por defecto para ReadJSONObject.
const MaxBodyBytes int64 = 1 << 20

// ReadJSONObject lee el body como un objeto JSON. Cualquier otra cosa (vacío, array,
// null, sintaxis rota) es ErrInvalidJSON.
func ReadJSONObject(w http.ResponseWriter, r *http.Request, max int64) (Object, error) {
	if max <= 0 {
		max = MaxBodyBytes
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, max))
	if err != nil {
		var mbe *http.MaxBytesError
		if stderrors.As(err, &mbe) {
			return nil, errors.ErrBodyTooLarge
		}
		return nil, errors.ErrInvalidJSON.WithCause(err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errors.ErrInvalidJSON
	}
	var obj Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.ErrInvalidJSON.WithCause(err)
	}
	return obj, nil
}

// Object es un body JSON sin tipar. Los campos con tipo inesperado se tratan como ausentes.
type Object map[string]any

// String retorna o[key] si es string, "" en cualquier otro caso.
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// WriteJSON escribe v como JSON con status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

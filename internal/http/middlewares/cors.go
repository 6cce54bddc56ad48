package middlewares

import (
	"net/http"
	"strings"
)

// Headers que manda el cliente de Supabase/Expo en cada invocación.
const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// WithCORS responde CORS para los orígenes permitidos. Con "*" en la lista se
// responde el comodín literal (la app no manda cookies). El preflight OPTIONS
// contesta 200 "ok" sin llegar al handler.
func WithCORS(allowed []string) Middleware {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	wildcard := false
	alist := make([]string, 0, len(allowed))
	for _, v := range allowed {
		v = trim(v)
		if v == "*" {
			wildcard = true
		}
		alist = append(alist, v)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			switch {
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			default:
				origin := trim(r.Header.Get("Origin"))
				h.Add("Vary", "Origin")
				for _, a := range alist {
					if origin != "" && strings.EqualFold(origin, a) {
						h.Set("Access-Control-Allow-Origin", origin)
						break
					}
				}
			}
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Remaining, X-RateLimit-Limit, X-RateLimit-Reset, Retry-After")

			if r.Method == http.MethodOptions {
				h.Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

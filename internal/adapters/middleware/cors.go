package middleware

import "net/http"

// CORSMiddleware limits browser callers to the configured origins and
// answers preflight requests. The caretaker dashboard is the only browser
// client; the mobile apps bypass CORS entirely. A single "*" entry allows
// any origin.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originAllowed(allowedOrigins, origin) {
				headers := w.Header()
				if origin != "" {
					headers.Set("Access-Control-Allow-Origin", origin)
				} else {
					headers.Set("Access-Control-Allow-Origin", "*")
				}
				headers.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				headers.Set("Access-Control-Allow-Credentials", "true")
				headers.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

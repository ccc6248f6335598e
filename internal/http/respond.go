package http

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Wire messages for the pipeline's error table. Authentication failures are
// internally distinguished for logging and metrics but stay terse on the
// wire.
const (
	msgTenantHeaderMissing = "tenant header missing"
	msgTenantUnknown       = "tenant not found"
	msgSchemaBindFailed    = "schema bind failed"
	msgAuthMissing         = "authorization required"
	msgTokenExpired        = "token expired"
	msgTokenInvalid        = "invalid token"
	msgTenantMismatch      = "tenant mismatch"
	msgUserVanished        = "user not found"
	msgInvalidCredentials  = "Invalid email or password"
	msgModuleDenied        = "module access denied"
	msgBadRequest          = "bad request"
	msgTooManyAttempts     = "too many login attempts"
	msgDeadlineExceeded    = "deadline exceeded"
	msgInternal            = "internal error"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// tenantHeader returns the tenant code from either accepted header.
func tenantHeader(r *http.Request) string {
	if code := strings.TrimSpace(r.Header.Get("Tenant-Name")); code != "" {
		return code
	}
	return strings.TrimSpace(r.Header.Get("X-Tenant-Code"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

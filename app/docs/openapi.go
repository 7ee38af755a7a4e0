// Package docs serves a machine-readable description of the HTTP surface.
package docs

import (
	"encoding/json"
	"net/http"
)

type spec struct {
	OpenAPI string         `json:"openapi"`
	Info    info           `json:"info"`
	Servers []server       `json:"servers"`
	Paths   map[string]any `json:"paths"`
}

type info struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

type server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

func operation(summary, tag string, responses map[string]string) map[string]any {
	resp := make(map[string]any, len(responses))
	for code, desc := range responses {
		resp[code] = map[string]any{"description": desc}
	}
	return map[string]any{
		"summary":   summary,
		"tags":      []string{tag},
		"responses": resp,
	}
}

var apiSpec = spec{
	OpenAPI: "3.0.3",
	Info: info{
		Title:       "Identity Service API",
		Description: "Account lifecycle, authentication and role management",
		Version:     "1.0.0",
	},
	Servers: []server{
		{URL: "http://localhost:8080", Description: "Local development server"},
	},
	Paths: map[string]any{
		"/api/v1/auth/signup": map[string]any{
			"post": operation("Create an unverified account", "Auth", map[string]string{
				"201": "Account created",
				"409": "Email already in use",
				"422": "Validation failed",
			}),
		},
		"/api/v1/auth/login": map[string]any{
			"post": operation("Authenticate and issue a session token", "Auth", map[string]string{
				"200": "Login successful",
				"401": "Unverified account or bad credentials",
				"404": "No account for this email",
			}),
		},
		"/api/v1/auth/verify/{token}": map[string]any{
			"get": operation("Verify an account via emailed token", "Auth", map[string]string{
				"200": "Account verified",
				"400": "Already verified",
				"401": "Invalid or expired token",
			}),
		},
		"/api/v1/auth/resend-verification": map[string]any{
			"post": operation("Resend the verification email", "Auth", map[string]string{
				"200": "Email sent",
				"403": "Account already verified",
				"404": "No account for this email",
			}),
		},
		"/api/v1/auth/forgot-password": map[string]any{
			"post": operation("Request a password reset link", "Auth", map[string]string{
				"200": "Email sent",
				"403": "Account not verified",
				"404": "No account for this email",
			}),
		},
		"/api/v1/auth/reset-password/{token}": map[string]any{
			"post": operation("Set a new password via reset token", "Auth", map[string]string{
				"200": "Password updated",
				"401": "Invalid, expired or already used token",
			}),
		},
		"/api/v1/auth/password": map[string]any{
			"patch": operation("Change password for the authenticated account", "Auth", map[string]string{
				"200": "Password updated",
				"403": "Current password does not match",
			}),
		},
		"/api/v1/auth/request-email-change": map[string]any{
			"post": operation("Request an email change, confirmed at the new address", "Auth", map[string]string{
				"200": "Confirmation sent",
				"409": "Email already in use",
			}),
		},
		"/api/v1/auth/change-email/{token}": map[string]any{
			"get": operation("Apply an email change via emailed token", "Auth", map[string]string{
				"200": "Email updated",
				"401": "Invalid, expired or already used token",
			}),
		},
		"/api/v1/auth/2fa/enable": map[string]any{
			"post": operation("Enable two-factor code issuance", "TwoFactor", map[string]string{
				"200": "Enabled",
			}),
		},
		"/api/v1/auth/2fa/send-code": map[string]any{
			"post": operation("Send a two-factor code to the account's email", "TwoFactor", map[string]string{
				"200": "Code sent",
				"403": "Two-factor auth not enabled",
			}),
		},
		"/api/v1/auth/2fa/verify-code": map[string]any{
			"post": operation("Verify a two-factor code", "TwoFactor", map[string]string{
				"200": "Code verified",
				"401": "Code invalid or expired",
			}),
		},
		"/api/v1/users": map[string]any{
			"get": operation("List accounts (admin)", "Users", map[string]string{
				"200": "Accounts listed",
				"403": "Admin role required",
			}),
		},
		"/api/v1/users/{id}": map[string]any{
			"get": operation("Fetch one account", "Users", map[string]string{
				"200": "Account found",
				"404": "No such account",
			}),
			"patch": operation("Update account names", "Users", map[string]string{
				"200": "Account updated",
				"404": "No such account",
			}),
			"delete": operation("Delete an account (admin)", "Users", map[string]string{
				"200": "Account deleted",
				"403": "Admin role required",
			}),
		},
		"/api/v1/roles": map[string]any{
			"get": operation("List roles", "Roles", map[string]string{
				"200": "Roles listed",
			}),
		},
		"/api/v1/health": map[string]any{
			"get": operation("Health of the service and its dependencies", "Health", map[string]string{
				"200": "Healthy",
				"503": "Unhealthy",
			}),
		},
	},
}

// Handler serves the OpenAPI document.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(apiSpec)
	})
}

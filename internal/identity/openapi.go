package identity

import "github.com/JaimeStill/glimpse/pkg/openapi"

// Schemas returns the OpenAPI component schemas for sign-in payloads.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"SignInCommand": {
			Type:     "object",
			Required: []string{"id_token"},
			Properties: map[string]*openapi.Schema{
				"id_token": {Type: "string", Description: "Identity provider ID token"},
			},
		},
		"SignInResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"token":      {Type: "string", Description: "Session token for the Authorization header"},
				"expires_at": {Type: "string", Format: "date-time"},
				"user":       openapi.SchemaRef("User"),
			},
		},
	}
}

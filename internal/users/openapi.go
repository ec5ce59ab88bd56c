package users

import "github.com/JaimeStill/glimpse/pkg/openapi"

// Schemas returns the OpenAPI component schemas for user payloads.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"User": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"user_id":      {Type: "string"},
				"display_name": {Type: "string"},
				"email":        {Type: "string", Format: "email"},
				"role":         {Type: "string", Enum: []any{string(RoleUser), string(RoleAdmin)}},
				"created_at":   {Type: "string", Format: "date-time"},
			},
		},
		"SetRoleCommand": {
			Type:     "object",
			Required: []string{"role"},
			Properties: map[string]*openapi.Schema{
				"role": {Type: "string", Enum: []any{string(RoleUser), string(RoleAdmin)}},
			},
		},
	}
}

package comments

import "github.com/JaimeStill/glimpse/pkg/openapi"

type commentsSpec struct {
	List        *openapi.Operation
	Stream      *openapi.Operation
	Find        *openapi.Operation
	Create      *openapi.Operation
	Update      *openapi.Operation
	Delete      *openapi.Operation
	PutSnapshot *openapi.Operation
	GetSnapshot *openapi.Operation
}

var idParam = openapi.PathParam("id", "Comment ID")

var spec = commentsSpec{
	List: &openapi.Operation{
		Summary:     "List a thread",
		Description: "Newest first. Each comment carries the caller's can_edit and can_delete flags.",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("classification_id", "string", "Classification label", true),
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Search comment text and usernames", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Comment page", "CommentPage"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Stream: &openapi.Operation{
		Summary:     "Watch a thread",
		Description: "Upgrades to a websocket carrying StreamEvent messages. The handshake carries the bearer session token.",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("classification_id", "string", "Classification label", true),
		},
		Responses: map[int]*openapi.Response{
			101: openapi.ResponseJSON("Switching protocols", "StreamEvent"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a comment",
		Parameters: []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Comment", "Comment"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Create: &openapi.Operation{
		Summary:     "Add a comment",
		RequestBody: openapi.RequestBodyJSON("CreateCommand", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Created comment", "Comment"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Update: &openapi.Operation{
		Summary:     "Edit a comment",
		Description: "Author only.",
		Parameters:  []*openapi.Parameter{idParam},
		RequestBody: openapi.RequestBodyJSON("UpdateCommand", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated comment", "Comment"),
			400: openapi.ResponseRef("BadRequest"),
			403: openapi.ResponseRef("Forbidden"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Delete: &openapi.Operation{
		Summary:     "Delete a comment",
		Description: "Author or admin. Removes any attached snapshot.",
		Parameters:  []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			204: {Description: "Deleted"},
			403: openapi.ResponseRef("Forbidden"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	PutSnapshot: &openapi.Operation{
		Summary:     "Attach a snapshot",
		Description: "Author only. Replaces any previous snapshot.",
		Parameters:  []*openapi.Parameter{idParam},
		RequestBody: openapi.RequestBodyBinary("image/jpeg"),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated comment", "Comment"),
			400: openapi.ResponseRef("BadRequest"),
			403: openapi.ResponseRef("Forbidden"),
			404: openapi.ResponseRef("NotFound"),
			413: openapi.ResponseRef("PayloadTooLarge"),
		},
	},
	GetSnapshot: &openapi.Operation{
		Summary:    "Download a snapshot",
		Parameters: []*openapi.Parameter{idParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseBinary("Snapshot image", "image/jpeg"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

// Schemas returns the OpenAPI component schemas for comment payloads.
func Schemas() map[string]*openapi.Schema {
	maxLen := MaxLength
	comment := &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":                {Type: "string", Format: "uuid"},
			"classification_id": {Type: "string", Example: "cat"},
			"user_id":           {Type: "string"},
			"username":          {Type: "string"},
			"comment":           {Type: "string"},
			"timestamp":         {Type: "string", Format: "date-time"},
			"updated_at":        {Type: "string", Format: "date-time"},
			"has_snapshot":      {Type: "boolean"},
			"can_edit":          {Type: "boolean"},
			"can_delete":        {Type: "boolean"},
		},
	}

	return map[string]*openapi.Schema{
		"Comment": comment,
		"CommentPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Comment")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"CreateCommand": {
			Type:     "object",
			Required: []string{"classification_id", "comment"},
			Properties: map[string]*openapi.Schema{
				"classification_id": {Type: "string"},
				"comment":           {Type: "string", MaxLength: &maxLen},
			},
		},
		"UpdateCommand": {
			Type:     "object",
			Required: []string{"comment"},
			Properties: map[string]*openapi.Schema{
				"comment": {Type: "string", MaxLength: &maxLen},
			},
		},
		"StreamEvent": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"type":    {Type: "string", Enum: []any{string(EventCreated), string(EventUpdated), string(EventDeleted)}},
				"comment": openapi.SchemaRef("Comment"),
			},
		},
	}
}

package comments

import (
	"database/sql"

	"github.com/JaimeStill/glimpse/pkg/query"
	"github.com/JaimeStill/glimpse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "comments", "c").
	Project("id", "ID").
	Project("classification_id", "ClassificationID").
	Project("user_id", "UserID").
	Project("username", "Username").
	Project("comment", "Text").
	Project("snapshot_key", "SnapshotKey").
	Project("created_at", "Timestamp").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Timestamp", Descending: true}

func scanComment(s repository.Scanner) (Comment, error) {
	var c Comment
	var key sql.NullString
	err := s.Scan(
		&c.ID,
		&c.ClassificationID,
		&c.UserID,
		&c.Username,
		&c.Text,
		&key,
		&c.Timestamp,
		&c.UpdatedAt,
	)
	c.snapshotKey = key.String
	c.HasSnapshot = key.Valid && key.String != ""
	return c, err
}

package users

import (
	"github.com/JaimeStill/glimpse/pkg/query"
	"github.com/JaimeStill/glimpse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "users", "u").
	Project("user_id", "ID").
	Project("display_name", "DisplayName").
	Project("email", "Email").
	Project("role", "Role").
	Project("created_at", "CreatedAt")

func scanUser(s repository.Scanner) (User, error) {
	var u User
	err := s.Scan(
		&u.ID,
		&u.DisplayName,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
	)
	return u, err
}

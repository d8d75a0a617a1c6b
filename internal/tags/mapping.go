package tags

import (
	"github.com/JaimeStill/custodian/pkg/query"
	"github.com/JaimeStill/custodian/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "tags", "t").
	Project("id", "ID").
	Project("name", "Name").
	Project("color", "Color").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = []query.SortField{
	{Field: "Name"},
}

func scanTag(s repository.Scanner) (Tag, error) {
	var t Tag
	err := s.Scan(
		&t.ID,
		&t.Name,
		&t.Color,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

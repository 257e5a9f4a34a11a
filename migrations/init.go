package migrations

import (
	"io/fs"

	reviewers "github.com/goliatone/go-reviewers"
)

// EngineSource names the review engine's own migrations.
const EngineSource = "go-reviewers"

func init() {
	engineFS, err := fs.Sub(reviewers.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(EngineSource, engineFS)
}

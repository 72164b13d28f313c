package appfs

import "embed"

// FS holds the SQL migrations, the email and page templates and static assets.
// Template partials start with "_", hence the all: prefix.
//
//go:embed migrations/*.sql all:templates assets
var FS embed.FS

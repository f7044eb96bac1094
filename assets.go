// Package touch bundles the embedded assets of the touch contact module:
// migrations, HTML and mail templates, static files and translations.
package touch

import "embed"

// Version is reported by the CLI.
const Version = "0.3.0"

//go:embed assets/migrations/sqlite/*.sql assets/migrations/postgres/*.sql
var MigrationsFS embed.FS

//go:embed assets/templates/*.html assets/templates/*/*.html assets/templates/mail/*.txt
var TemplatesFS embed.FS

//go:embed assets/static
var StaticFS embed.FS

//go:embed assets/translations/*.yaml
var TranslationsFS embed.FS

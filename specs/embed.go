package specs

import "embed"

// FS contains the starter OpenAPI documents used by `apidocs spec init`.
//
//go:embed *.json
var FS embed.FS

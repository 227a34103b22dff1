// Package schemas embeds the OpenAPI document the server validates inbound
// requests against.
package schemas

import _ "embed"

// OpenAPISpec is the raw gitstow OpenAPI document.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

package ports

import "github.com/layer-3/quill/core"

// Codec converts claims to a tamper-evident string and back
type Codec interface {
	Encode(claims core.Claims) (string, error)
	Decode(token string) (core.Claims, error)
}

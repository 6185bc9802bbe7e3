package common

const (
	// MaxRequestBody limits JSON request bodies for every endpoint.
	MaxRequestBody = 1 << 20
)

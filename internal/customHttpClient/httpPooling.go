package customHttpClient

import (
	"net/http"

	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// Pooled returns the shared connection-reusing client handed to the
// embedding and completion SDKs so repeated provider calls skip the
// TLS handshake.
func Pooled() *http.Client {
	return &http.Client{Transport: customTransport}
}

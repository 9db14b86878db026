// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// PriceHTTPClient bounds how long a price-feed round trip may block a
// request handler.
var PriceHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// IndexerHTTPClient is shared by the volume indexer client. Scans are
// rate-limited background work, so a longer timeout is fine.
var IndexerHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

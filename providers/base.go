package providers

// Base provides common fields and methods shared by REST-based fetcher
// implementations. Embed this struct to avoid repeating name, apiKey, and
// baseURL handling across fetchers.
type Base struct {
	name    string
	apiKey  string
	baseURL string
}

// Name returns the fetcher name.
func (b *Base) Name() string { return b.name }

// BaseURL returns the fetcher's root API URL (no trailing slash).
func (b *Base) BaseURL() string { return b.baseURL }

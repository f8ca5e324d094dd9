package sources

import "errors"

// ErrSourceUnavailable indicates the provider was unreachable or returned a
// malformed payload. Callers treat the affected brand as having no mentions.
var ErrSourceUnavailable = errors.New("mention source unavailable")

// ErrSourceUnauthorized indicates the provider rejected our credentials.
var ErrSourceUnauthorized = errors.New("mention source rejected credentials")

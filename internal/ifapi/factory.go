package ifapi

import (
	"fmt"
	"net/http"
	"time"
)

// Header names carrying backend credentials on every tool-invoking
// request. The legacy names are still honored for older clients.
const (
	HeaderLicenseKey = "X-IF-License-Key"
	HeaderUserName   = "X-IF-User-Name"
	HeaderAPIURL     = "X-IF-API-URL"

	legacyHeaderLicenseKey = "X-License-Key"
	legacyHeaderUserName   = "X-User-Name"
)

// MissingHeaderError reports a required credential header absent from a
// request. Handlers map it to a 400 response.
type MissingHeaderError struct {
	Header string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("missing required header: %s", e.Header)
}

// Defaults supplies the fallbacks applied when a request omits optional
// backend settings.
type Defaults struct {
	APIURL     string
	Timeout    time.Duration
	TimeOffset time.Duration
}

// FromRequest builds a backend client from a request's credential
// headers. The license key and user name are required; the API URL
// falls back to the configured default.
func FromRequest(r *http.Request, defaults Defaults) (*Client, error) {
	licenseKey := r.Header.Get(HeaderLicenseKey)
	if licenseKey == "" {
		licenseKey = r.Header.Get(legacyHeaderLicenseKey)
	}
	userName := r.Header.Get(HeaderUserName)
	if userName == "" {
		userName = r.Header.Get(legacyHeaderUserName)
	}

	if licenseKey == "" {
		return nil, &MissingHeaderError{Header: HeaderLicenseKey}
	}
	if userName == "" {
		return nil, &MissingHeaderError{Header: HeaderUserName}
	}

	apiURL := r.Header.Get(HeaderAPIURL)
	if apiURL == "" {
		apiURL = defaults.APIURL
	}

	opts := []Option{WithTimeOffset(defaults.TimeOffset)}
	if defaults.Timeout > 0 {
		opts = append(opts, WithTimeout(defaults.Timeout))
	}
	return NewClient(licenseKey, userName, apiURL, opts...), nil
}

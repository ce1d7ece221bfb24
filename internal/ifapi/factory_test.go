package ifapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFromRequest(t *testing.T) {
	t.Parallel()

	defaults := Defaults{
		APIURL:     "https://app.insightfinder.com",
		Timeout:    10 * time.Second,
		TimeOffset: 4 * time.Hour,
	}

	tests := []struct {
		name          string
		headers       map[string]string
		wantErrHeader string
		wantLicense   string
		wantUser      string
		wantAPIURL    string
	}{
		{
			name: "standard headers",
			headers: map[string]string{
				"X-IF-License-Key": "lk-123",
				"X-IF-User-Name":   "alice",
			},
			wantLicense: "lk-123",
			wantUser:    "alice",
			wantAPIURL:  "https://app.insightfinder.com",
		},
		{
			name: "legacy headers",
			headers: map[string]string{
				"X-License-Key": "lk-legacy",
				"X-User-Name":   "bob",
			},
			wantLicense: "lk-legacy",
			wantUser:    "bob",
			wantAPIURL:  "https://app.insightfinder.com",
		},
		{
			name: "standard headers win over legacy",
			headers: map[string]string{
				"X-IF-License-Key": "lk-new",
				"X-License-Key":    "lk-old",
				"X-IF-User-Name":   "carol",
				"X-User-Name":      "dave",
			},
			wantLicense: "lk-new",
			wantUser:    "carol",
			wantAPIURL:  "https://app.insightfinder.com",
		},
		{
			name: "explicit api url overrides default",
			headers: map[string]string{
				"X-IF-License-Key": "lk-123",
				"X-IF-User-Name":   "alice",
				"X-IF-API-URL":     "https://stg.insightfinder.com/",
			},
			wantLicense: "lk-123",
			wantUser:    "alice",
			wantAPIURL:  "https://stg.insightfinder.com",
		},
		{
			name: "missing license key",
			headers: map[string]string{
				"X-IF-User-Name": "alice",
			},
			wantErrHeader: "X-IF-License-Key",
		},
		{
			name: "missing user name",
			headers: map[string]string{
				"X-IF-License-Key": "lk-123",
			},
			wantErrHeader: "X-IF-User-Name",
		},
		{
			name:          "no headers at all",
			headers:       map[string]string{},
			wantErrHeader: "X-IF-License-Key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/mcp", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			client, err := FromRequest(r, defaults)
			if tt.wantErrHeader != "" {
				var mhe *MissingHeaderError
				if !errors.As(err, &mhe) {
					t.Fatalf("expected MissingHeaderError, got %v", err)
				}
				if mhe.Header != tt.wantErrHeader {
					t.Fatalf("missing header = %q, want %q", mhe.Header, tt.wantErrHeader)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromRequest: %v", err)
			}
			if client.LicenseKey != tt.wantLicense {
				t.Errorf("LicenseKey = %q, want %q", client.LicenseKey, tt.wantLicense)
			}
			if client.UserName != tt.wantUser {
				t.Errorf("UserName = %q, want %q", client.UserName, tt.wantUser)
			}
			if client.APIURL != tt.wantAPIURL {
				t.Errorf("APIURL = %q, want %q", client.APIURL, tt.wantAPIURL)
			}
			if client.HTTPClient.Timeout != defaults.Timeout {
				t.Errorf("timeout = %v, want %v", client.HTTPClient.Timeout, defaults.Timeout)
			}
		})
	}
}

func TestCorrectTimestamp(t *testing.T) {
	t.Parallel()

	c := NewClient("lk", "user", "https://app.insightfinder.com", WithTimeOffset(4*time.Hour))

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if got := c.CorrectTimestamp(base); !got.Equal(base.Add(4 * time.Hour)) {
		t.Errorf("CorrectTimestamp = %v, want %v", got, base.Add(4*time.Hour))
	}

	ms := base.UnixMilli()
	wantMS := ms + (4 * time.Hour).Milliseconds()
	if got := c.CorrectTimestampMillis(ms); got != wantMS {
		t.Errorf("CorrectTimestampMillis = %d, want %d", got, wantMS)
	}
}

func TestContextScoping(t *testing.T) {
	t.Parallel()

	parent := context.Background()
	if FromContext(parent) != nil {
		t.Fatal("empty context should carry no client")
	}

	c := NewClient("lk", "user", "https://app.insightfinder.com")
	child := WithClient(parent, c)

	if got := FromContext(child); got != c {
		t.Fatalf("FromContext(child) = %v, want bound client", got)
	}
	// The parent must never observe the binding.
	if FromContext(parent) != nil {
		t.Fatal("parent context leaked the client binding")
	}

	if _, err := RequireClient(child); err != nil {
		t.Fatalf("RequireClient(child) = %v", err)
	}
	if _, err := RequireClient(parent); !errors.Is(err, ErrNoClient) {
		t.Fatalf("RequireClient(parent) = %v, want ErrNoClient", err)
	}
}

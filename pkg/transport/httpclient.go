package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/matchpredict/internal/logger"
)

// CABundleEnv names an optional PEM file of extra root certificates, for
// corporate proxies that re-sign TLS traffic
const CABundleEnv = "MATCHPREDICT_CA_BUNDLE"

// MaxBodySize caps how much of a response is read
const MaxBodySize = 64 << 20

var (
	httpClient     *http.Client
	httpClientOnce sync.Once
)

func extraRootCAs() *x509.CertPool {
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		logger.Warn("Failed to get system cert pool", err)
		rootCAs = x509.NewCertPool()
	}
	path := os.Getenv(CABundleEnv)
	if path == "" {
		return rootCAs
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read CA bundle", path, err)
		return rootCAs
	}
	if !rootCAs.AppendCertsFromPEM(pem) {
		logger.Warn("Failed to append CA bundle", path)
	} else {
		logger.Info("Added CA bundle to root CAs", path)
	}
	return rootCAs
}

// GetCustomHTTPClient returns the shared client used by remote loaders
func GetCustomHTTPClient() *http.Client {
	httpClientOnce.Do(func() {
		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{RootCAs: extraRootCAs()},
				Proxy:           http.ProxyFromEnvironment,
			},
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		}
	})
	return httpClient
}

// Fetch GETs a url with the shared client and returns the decoded body
func Fetch(ctx context.Context, url string) ([]byte, error) {
	return FetchWith(ctx, GetCustomHTTPClient(), url)
}

// FetchWith GETs a url and undoes gzip, deflate or brotli content encoding
func FetchWith(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,text/csv,application/xhtml+xml,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request to %s returned status %d", url, resp.StatusCode)
	}

	reader, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return data, nil
}

func decodeBody(encoding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch encoding {
	case "gzip":
		r, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		return flate.NewReader(body), nil
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	case "", "identity":
		return io.NopCloser(body), nil
	default:
		logger.Warn("Unknown content encoding:", encoding)
		return io.NopCloser(body), nil
	}
}

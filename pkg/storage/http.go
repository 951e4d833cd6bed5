package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/beam-cloud/xtmsplit/pkg/common"
)

// errHeadRejected marks a server that refuses HEAD for a resource it may
// still serve with GET.
var errHeadRejected = errors.New("HEAD not allowed")

// HTTPPartStore reads part chains published on a web server. Part names are
// absolute URLs. It cannot create parts.
type HTTPPartStore struct {
	client *http.Client
}

func NewHTTPPartStore(client *http.Client) *HTTPPartStore {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPPartStore{client: client}
}

func (s *HTTPPartStore) Mode() common.StorageMode {
	return common.StorageModeHTTP
}

func (s *HTTPPartStore) Create(ctx context.Context, url string) (io.WriteCloser, error) {
	return nil, fmt.Errorf("%w: cannot create %s", common.ErrReadOnlyStore, url)
}

func (s *HTTPPartStore) Remove(ctx context.Context, url string) error {
	return fmt.Errorf("%w: cannot remove %s", common.ErrReadOnlyStore, url)
}

func (s *HTTPPartStore) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (s *HTTPPartStore) Exists(ctx context.Context, url string) (bool, error) {
	resp, err := s.stat(ctx, url)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

func (s *HTTPPartStore) Size(ctx context.Context, url string) (int64, error) {
	resp, err := s.stat(ctx, url)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return responseSize(resp), nil
}

// stat asks for the resource's metadata with HEAD, falling back to a one byte
// ranged GET when the server rejects HEAD.
func (s *HTTPPartStore) stat(ctx context.Context, url string) (*http.Response, error) {
	resp, err := s.do(ctx, http.MethodHead, url, nil)
	if !errors.Is(err, errHeadRejected) {
		return resp, err
	}

	header := http.Header{}
	header.Set("Range", "bytes=0-0")
	return s.do(ctx, http.MethodGet, url, header)
}

// do issues the request and maps 404 to ErrNotFound and other non-2xx
// statuses to ErrIOFailure. On success the caller owns resp.Body.
func (s *HTTPPartStore) do(ctx context.Context, method, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, common.IOFailure(method, url, err)
	}

	ranged := header.Get("Range") != ""
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, url)
	case method == http.MethodHead && headRejected(resp.StatusCode):
		resp.Body.Close()
		return nil, common.IOFailure(method, url, fmt.Errorf("%w: %s", errHeadRejected, resp.Status))
	case ranged && resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// An empty part has no byte 0.
		return resp, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, common.IOFailure(method, url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	return resp, nil
}

func headRejected(code int) bool {
	return code == http.StatusMethodNotAllowed ||
		code == http.StatusForbidden ||
		code == http.StatusNotImplemented
}

// responseSize reads the full resource size from a HEAD or ranged GET
// response: the total in Content-Range when present, else Content-Length.
func responseSize(resp *http.Response) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			if total, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				return total
			}
		}
	}
	if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		return 0
	}
	return resp.ContentLength
}

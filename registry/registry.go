// Package registry downloads and unpacks versioned package archives over
// HTTP. Unpacked archives live in an in-memory filesystem owned by the
// registry; the virtual file system reads them through an archive access
// model. Network fetch happens at most once per package spec.
package registry

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"github.com/quillmark/world/access"
	"github.com/quillmark/world/errs"
	"github.com/quillmark/world/interner"
)

// maxFileSize bounds a single unpacked file to keep a hostile archive from
// exhausting memory.
const maxFileSize = 64 << 20

// Client fetches and unpacks package archives from a registry endpoint.
// Safe for concurrent use.
type Client struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	unpacked map[interner.PackageSpec]*fetchResult
	bfs      billy.Filesystem
}

type fetchResult struct {
	once sync.Once
	root string
	err  error
}

// Option configures client creation.
type Option func(*config)

type config struct {
	client *http.Client
	logger *slog.Logger
}

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) { cfg.client = c }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// New creates a registry client for the given base URL.
func New(base string, opts ...Option) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errs.Wrapf(err, errs.CodePackageFetch, "bad registry url %q", base)
	}
	cfg := config{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		base:     u,
		client:   cfg.client,
		logger:   cfg.logger,
		unpacked: make(map[interner.PackageSpec]*fetchResult),
		bfs:      memfs.New(),
	}, nil
}

// Model returns an access model over the unpacked archives.
func (c *Client) Model() access.Model {
	return access.NewArchive(c.bfs)
}

// ResolvePackageRoot returns the in-memory directory holding the unpacked
// package, downloading the archive on first use. Implements
// interner.RootResolver. Concurrent calls for the same spec fetch once;
// a failed fetch is cached for the life of the client.
func (c *Client) ResolvePackageRoot(spec interner.PackageSpec) (string, error) {
	c.mu.Lock()
	res, ok := c.unpacked[spec]
	if !ok {
		res = &fetchResult{}
		c.unpacked[spec] = res
	}
	c.mu.Unlock()

	res.once.Do(func() {
		res.root, res.err = c.fetch(spec)
	})
	return res.root, res.err
}

func (c *Client) fetch(spec interner.PackageSpec) (string, error) {
	archiveURL := c.base.JoinPath(spec.Namespace, fmt.Sprintf("%s-%s.tar.gz", spec.Name, spec.Version))
	root := path.Join("/", spec.Namespace, spec.Name, spec.Version)

	start := time.Now()
	c.logger.Info("fetching package", "spec", spec.String(), "url", archiveURL.String())

	resp, err := c.client.Get(archiveURL.String())
	if err != nil {
		return "", errs.Wrapf(err, errs.CodePackageFetch, "download %s", spec)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", errs.Newf(errs.CodeNotFound, "package %s", spec)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errs.Newf(errs.CodePackageFetch, "download %s: status %s", spec, resp.Status)
	}

	if err := c.unpack(root, resp.Body); err != nil {
		return "", err
	}

	c.logger.Info("unpacked package", "spec", spec.String(), "elapsed", time.Since(start))
	return root, nil
}

// unpack gunzips and untars an archive stream below root. Entries escaping
// the root and non-regular files are skipped; an entry over the size limit
// fails the whole unpack rather than being written truncated.
func (c *Client) unpack(root string, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errs.Wrap(err, errs.CodePackageFetch, "decompress archive")
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errs.Wrap(err, errs.CodePackageFetch, "read archive")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Size > maxFileSize {
			return errs.Newf(errs.CodePackageFetch, "archive entry %s is %d bytes, limit is %d", hdr.Name, hdr.Size, maxFileSize)
		}
		name := path.Clean("/" + hdr.Name)
		if strings.Contains(name, "..") {
			c.logger.Warn("skipping archive entry escaping root", "name", hdr.Name)
			continue
		}
		dst := path.Join(root, name)
		f, err := c.bfs.Create(dst)
		if err != nil {
			return errs.Wrapf(err, errs.CodePackageFetch, "create %s", dst)
		}
		_, err = io.Copy(f, tr)
		cerr := f.Close()
		if err != nil {
			return errs.Wrapf(err, errs.CodePackageFetch, "write %s", dst)
		}
		if cerr != nil {
			return errs.Wrapf(cerr, errs.CodePackageFetch, "close %s", dst)
		}
	}
}

// Compile-time interface check.
var _ interner.RootResolver = (*Client)(nil)

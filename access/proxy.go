package access

import (
	"time"

	"github.com/quillmark/world/errs"
)

// ReadFunc performs a proxied file read, typically a remote procedure call
// into the editor process when the server has no direct disk access.
type ReadFunc func(path string) ([]byte, error)

// StatFunc answers proxied existence and mtime queries. Optional; a proxy
// without one reports every readable path as a file with zero mtime.
type StatFunc func(path string) (isFile bool, mtime time.Time, err error)

// Proxy delegates reads to editor-supplied callbacks.
type Proxy struct {
	read ReadFunc
	stat StatFunc
}

// NewProxy creates a proxied access model. read must be non-nil; stat may
// be nil.
func NewProxy(read ReadFunc, stat StatFunc) *Proxy {
	if read == nil {
		panic("access: proxy read callback is nil")
	}
	return &Proxy{read: read, stat: stat}
}

func (p *Proxy) Content(path string) ([]byte, error) {
	data, err := p.read(path)
	if err != nil {
		return nil, errs.FromFS(err, path)
	}
	return data, nil
}

func (p *Proxy) IsFile(path string) (bool, error) {
	if p.stat != nil {
		isFile, _, err := p.stat(path)
		if err != nil {
			return false, errs.FromFS(err, path)
		}
		return isFile, nil
	}
	_, err := p.read(path)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeNotFound {
			return false, nil
		}
		return false, errs.FromFS(err, path)
	}
	return true, nil
}

func (p *Proxy) Mtime(path string) (time.Time, error) {
	if p.stat == nil {
		return time.Time{}, nil
	}
	_, mtime, err := p.stat(path)
	if err != nil {
		return time.Time{}, errs.FromFS(err, path)
	}
	return mtime, nil
}

func (p *Proxy) Kind() Kind {
	return KindProxy
}

var _ Model = (*Proxy)(nil)

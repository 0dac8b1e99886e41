package keymaterial

import (
	"crypto/x509"
	"os"
	"path/filepath"

	"github.com/ooni/btls/internal/errorsx"
	"github.com/pkg/errors"
)

// CertificateAuthority is a source of trust anchors. Exactly one
// of the three sources is set.
type CertificateAuthority struct {
	file string
	dir  string
	mem  []byte
}

// NewCA returns a new CertificateAuthority. Pass the empty string or nil
// for the sources you do not want to use. The error is a KindConfig error
// unless exactly one source is set. We copy mem.
func NewCA(file, dir string, mem []byte) (*CertificateAuthority, error) {
	var count int
	if file != "" {
		count++
	}
	if dir != "" {
		count++
	}
	if len(mem) > 0 {
		count++
	}
	if count != 1 {
		return nil, errorsx.NewConfigError(
			errorsx.LoadCAOperation, "keymaterial: need exactly one CA source, got %d", count)
	}
	ca := &CertificateAuthority{
		file: file,
		dir:  dir,
		mem:  nil,
	}
	if len(mem) > 0 {
		ca.mem = append([]byte{}, mem...)
	}
	return ca, nil
}

// String returns a description of the source suitable for logging.
func (ca *CertificateAuthority) String() string {
	switch {
	case ca.file != "":
		return "file:" + ca.file
	case ca.dir != "":
		return "dir:" + ca.dir
	default:
		return "mem"
	}
}

// CertPool loads the trust anchors into a new [x509.CertPool]. The error
// is a KindIO error if we cannot read the source and a KindConfig error
// if the source does not contain any PEM certificate.
func (ca *CertificateAuthority) CertPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	var added bool
	switch {
	case ca.file != "":
		data, err := os.ReadFile(ca.file)
		if err != nil {
			return nil, newLoadCAError(errors.Wrapf(err, "keymaterial: reading %s", ca.file))
		}
		added = pool.AppendCertsFromPEM(data)

	case ca.dir != "":
		entries, err := os.ReadDir(ca.dir)
		if err != nil {
			return nil, newLoadCAError(errors.Wrapf(err, "keymaterial: reading %s", ca.dir))
		}
		for _, entry := range entries {
			fullpath := filepath.Join(ca.dir, entry.Name())
			info, err := os.Stat(fullpath) // follow symlinks like c_rehash links
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			data, err := os.ReadFile(fullpath)
			if err != nil {
				continue
			}
			added = pool.AppendCertsFromPEM(data) || added
		}

	default:
		added = pool.AppendCertsFromPEM(ca.mem)
	}
	if !added {
		return nil, errorsx.NewConfigError(
			errorsx.LoadCAOperation, "keymaterial: no certificates in %s", ca)
	}
	return pool, nil
}

func newLoadCAError(err error) error {
	return errorsx.NewErrWrapper(errorsx.KindIO, errorsx.ClassifyGenericError, errorsx.LoadCAOperation, err)
}

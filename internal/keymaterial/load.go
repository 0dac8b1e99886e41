// Package keymaterial loads certificates, private keys, and trust anchors.
//
// The loader produces owned PEM bytes from several on-disk formats, so that
// the rest of the system only needs to deal with PEM.
package keymaterial

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pkcs12"
)

// ErrMissingPassword indicates that the content is encrypted and the
// caller did not provide a password.
var ErrMissingPassword = errors.New("keymaterial: encrypted content and no password")

var (
	ageBinaryHeader = []byte("age-encryption.org/v1\n")
	ageArmorHeader  = []byte(armor.Header)
	pemMarker       = []byte("-----BEGIN ")
)

// LoadFile reads the file at path and returns its content as PEM.
//
// The following formats are supported:
//
// 1. plain PEM, which is returned as is;
//
// 2. PEM containing legacy encrypted blocks (Proc-Type: 4,ENCRYPTED),
// which are decrypted using password;
//
// 3. PKCS#12 bundles, converted to PEM using password;
//
// 4. files encrypted by age with a passphrase, whose plaintext can be
// any of the above formats.
//
// Content we cannot recognize is returned unmodified, and building
// a key pair from it will fail later. The error is a KindIO error when
// we cannot read the file and a KindDecrypt error when the password is
// missing or wrong.
func LoadFile(path string, password []byte) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorsx.NewErrWrapper(
			errorsx.KindIO,
			errorsx.ClassifyGenericError,
			errorsx.LoadFileOperation,
			errors.Wrapf(err, "keymaterial: reading %s", path),
		)
	}
	out, err := Decode(data, password)
	clear(data)
	return out, err
}

// Decode is like LoadFile but operates on memory. The returned slice
// never aliases data.
func Decode(data, password []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, ageBinaryHeader), bytes.HasPrefix(bytes.TrimSpace(data), ageArmorHeader):
		return decodeAge(data, password)
	case bytes.Contains(data, pemMarker):
		return decodePEM(data, password)
	default:
		return decodePKCS12(data, password)
	}
}

func decodeAge(data, password []byte) ([]byte, error) {
	if len(password) <= 0 {
		return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, ErrMissingPassword)
	}
	identity, err := age.NewScryptIdentity(string(password))
	if err != nil {
		return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, err)
	}
	var src io.Reader = bytes.NewReader(data)
	if !bytes.HasPrefix(data, ageBinaryHeader) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimSpace(data)))
	}
	reader, err := age.Decrypt(src, identity)
	if err != nil {
		return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, errors.Wrap(err, "keymaterial: age"))
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, errors.Wrap(err, "keymaterial: age"))
	}
	defer clear(plaintext)
	return Decode(plaintext, password)
}

func decodePEM(data, password []byte) ([]byte, error) {
	var (
		encrypted bool
		out       bytes.Buffer
		rest      = data
	)
	for {
		block, next := pem.Decode(rest)
		if block == nil {
			break
		}
		rest = next
		if !x509.IsEncryptedPEMBlock(block) {
			_ = pem.Encode(&out, block)
			continue
		}
		encrypted = true
		if len(password) <= 0 {
			return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, ErrMissingPassword)
		}
		plain, err := x509.DecryptPEMBlock(block, password)
		if err != nil {
			return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, errors.Wrap(err, "keymaterial: pem"))
		}
		_ = pem.Encode(&out, &pem.Block{Type: block.Type, Bytes: plain})
		clear(plain)
	}
	if !encrypted {
		return append([]byte{}, data...), nil
	}
	return out.Bytes(), nil
}

func decodePKCS12(data, password []byte) ([]byte, error) {
	blocks, err := pkcs12.ToPEM(data, string(password))
	switch {
	case errors.Is(err, pkcs12.ErrIncorrectPassword) && len(password) <= 0:
		return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, ErrMissingPassword)
	case errors.Is(err, pkcs12.ErrIncorrectPassword), errors.Is(err, pkcs12.ErrDecryption):
		return nil, errorsx.NewDecryptError(errorsx.LoadFileOperation, errors.Wrap(err, "keymaterial: pkcs12"))
	case err != nil:
		return append([]byte{}, data...), nil // not PKCS#12
	}
	var out bytes.Buffer
	// certificates first, then keys, like the PEM files people write by hand
	for _, wantKey := range []bool{false, true} {
		for _, block := range blocks {
			if isPrivateKeyBlock(block) != wantKey {
				continue
			}
			_ = pem.Encode(&out, &pem.Block{Type: block.Type, Bytes: block.Bytes})
		}
	}
	return out.Bytes(), nil
}

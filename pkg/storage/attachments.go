package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrCorruptObject = errors.New("stored object failed authentication")
	ErrKeyRequired   = errors.New("stored object is encrypted but no key is configured")
)

const sealedExt = ".enc"

// Metadata describes an attachment being stored.
type Metadata struct {
	FormID   uint
	FileName string
	MimeType string
}

// AttachmentStore writes uploaded files to a backend, sealing them with
// XChaCha20-Poly1305 when a key is configured. The object key is bound as
// additional data so a sealed blob cannot be replayed under another key.
type AttachmentStore struct {
	backend Backend
	aead    cipher.AEAD
}

// NewAttachmentStore returns a store that encrypts when key is non-empty.
func NewAttachmentStore(backend Backend, key []byte) (*AttachmentStore, error) {
	s := &AttachmentStore{backend: backend}
	if len(key) == 0 {
		return s, nil
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("initialising attachment cipher: %w", err)
	}
	s.aead = aead
	return s, nil
}

func (s *AttachmentStore) Encrypted() bool {
	return s.aead != nil
}

// Store writes data and returns the reference to persist with the attachment.
func (s *AttachmentStore) Store(ctx context.Context, data []byte, meta Metadata) (string, error) {
	ext := sealedExt
	if !s.Encrypted() {
		ext = strings.ToLower(filepath.Ext(meta.FileName))
		if ext == sealedExt {
			ext = ".bin"
		}
	}
	ref := fmt.Sprintf("attachments/%d/%s%s", meta.FormID, uuid.NewString(), ext)

	payload := data
	contentType := meta.MimeType
	if s.Encrypted() {
		nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(data)+s.aead.Overhead())
		if _, err := rand.Read(nonce); err != nil {
			return "", fmt.Errorf("generating nonce: %w", err)
		}
		payload = s.aead.Seal(nonce, nonce, data, []byte(ref))
		contentType = "application/octet-stream"
	}

	if err := s.backend.Put(ctx, ref, payload, contentType); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *AttachmentStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	raw, err := s.backend.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	// The reference records how the object was written, so plaintext objects
	// stay readable after a key is introduced.
	if !strings.HasSuffix(ref, sealedExt) {
		return raw, nil
	}
	if !s.Encrypted() {
		return nil, ErrKeyRequired
	}
	if len(raw) < s.aead.NonceSize() {
		return nil, ErrCorruptObject
	}
	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, sealed, []byte(ref))
	if err != nil {
		return nil, ErrCorruptObject
	}
	return plain, nil
}

func (s *AttachmentStore) Remove(ctx context.Context, ref string) error {
	return s.backend.Delete(ctx, ref)
}

package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/talkincode/toughshop/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// ImageRefPrefix is the public path under which stored images are served
const ImageRefPrefix = "/api/v1/images/"

var imageBucket = []byte("product_images")

// Image a stored product image
type Image struct {
	ContentType string
	Data        []byte
}

// ImageStore keeps uploaded product images
type ImageStore interface {
	// Put stores a data URI image and returns the reference to save on the product
	Put(ctx context.Context, dataURI string) (string, error)
	// Get loads an image by key
	Get(ctx context.Context, key string) (*Image, error)
	// Delete removes the image behind ref; refs not owned by the store are ignored
	Delete(ctx context.Context, ref string) error
}

// BoltImageStore stores images in a bbolt file
type BoltImageStore struct {
	db *bolt.DB
}

// OpenBoltImageStore opens (or creates) the image database at path
func OpenBoltImageStore(path string) (*BoltImageStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open image store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(imageBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create image bucket")
	}
	return &BoltImageStore{db: db}, nil
}

func (s *BoltImageStore) Close() error {
	return s.db.Close()
}

func (s *BoltImageStore) Put(_ context.Context, dataURI string) (string, error) {
	contentType, data, err := parseDataURI(dataURI)
	if err != nil {
		return "", err
	}
	key := uuid.NewString()
	value := make([]byte, 0, len(contentType)+1+len(data))
	value = append(value, contentType...)
	value = append(value, 0)
	value = append(value, data...)

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(imageBucket).Put([]byte(key), value)
	})
	if err != nil {
		return "", domain.WrapStore("store image", err)
	}
	return ImageRefPrefix + key, nil
}

func (s *BoltImageStore) Get(_ context.Context, key string) (*Image, error) {
	var img *Image
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(imageBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		// v is only valid inside the transaction
		sep := bytes.IndexByte(v, 0)
		if sep < 0 {
			return errors.Errorf("corrupt image record %s", key)
		}
		img = &Image{
			ContentType: string(v[:sep]),
			Data:        append([]byte(nil), v[sep+1:]...),
		}
		return nil
	})
	if err != nil {
		return nil, domain.WrapStore("load image", err)
	}
	if img == nil {
		return nil, domain.NotFoundf("image %s", key)
	}
	return img, nil
}

func (s *BoltImageStore) Delete(_ context.Context, ref string) error {
	key, ok := ImageKey(ref)
	if !ok {
		return nil
	}
	return domain.WrapStore("delete image", s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(imageBucket).Delete([]byte(key))
	}))
}

// ImageKey extracts the store key from a reference produced by Put
func ImageKey(ref string) (string, bool) {
	if !strings.HasPrefix(ref, ImageRefPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(ref, ImageRefPrefix)
	return key, key != ""
}

// IsDataURI reports whether s is an inline data URI
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// parseDataURI decodes "data:image/<type>[;params];base64,<payload>"
func parseDataURI(s string) (string, []byte, error) {
	if !IsDataURI(s) {
		return "", nil, domain.NewValidationError("image", "not a data URI")
	}
	header, payload, found := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !found {
		return "", nil, domain.NewValidationError("image", "malformed data URI")
	}
	params := strings.Split(header, ";")
	contentType := strings.ToLower(strings.TrimSpace(params[0]))
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, domain.NewValidationError("image", "content type must be image/*")
	}
	if params[len(params)-1] != "base64" {
		return "", nil, domain.NewValidationError("image", "data URI must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, domain.NewValidationError("image", "invalid base64 payload")
	}
	if len(data) == 0 {
		return "", nil, domain.NewValidationError("image", "empty image")
	}
	return contentType, data, nil
}

// Package outbox is a file-based sync transmitter. Each batch is written as
// one JSON envelope holding the points encrypted with the vault key and
// signed with the user's identity key. An external uploader ships the files.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/polaris/internal/clockx"
	"github.com/dmitrijs2005/polaris/internal/filex"
	"github.com/dmitrijs2005/polaris/internal/keys"
	"github.com/dmitrijs2005/polaris/internal/logging"
	"github.com/dmitrijs2005/polaris/internal/models"
	"github.com/google/uuid"
)

const fileExt = ".json"

var ErrBadSignature = errors.New("outbox: envelope signature mismatch")

// Keyring supplies the vault key and identity signatures.
type Keyring interface {
	EnsureKey(ctx context.Context) ([]byte, error)
	SignIdentity(ctx context.Context, data string) (string, error)
}

// Envelope is the on-disk batch format.
type Envelope struct {
	ID        string              `json:"id"`
	DataType  models.SyncDataType `json:"dataType"`
	Count     int                 `json:"count"`
	CreatedAt time.Time           `json:"createdAt"`
	Payload   string              `json:"payload"`
	Signature string              `json:"signature"`
}

type FileTransmitter struct {
	dir   string
	keys  Keyring
	clock clockx.Clock
	log   logging.Logger
}

// NewFileTransmitter creates dir when missing.
func NewFileTransmitter(dir string, kr Keyring, clock clockx.Clock, log logging.Logger) (*FileTransmitter, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("outbox: %w", err)
	}
	return &FileTransmitter{dir: abs, keys: kr, clock: clock, log: log.With("component", "outbox")}, nil
}

func (f *FileTransmitter) Dir() string { return f.dir }

func (f *FileTransmitter) TransmitLocations(ctx context.Context, points []models.LocationPoint) error {
	_, err := f.write(ctx, models.SyncDataLocation, len(points), points)
	return err
}

func (f *FileTransmitter) TransmitBrowsing(ctx context.Context, points []models.BrowsingPoint) error {
	_, err := f.write(ctx, models.SyncDataBrowsing, len(points), points)
	return err
}

func (f *FileTransmitter) write(ctx context.Context, dt models.SyncDataType, count int, v any) (string, error) {
	key, err := f.keys.EnsureKey(ctx)
	if err != nil {
		return "", fmt.Errorf("outbox: %w", err)
	}

	payload, err := keys.EncryptJSON(v, key)
	if err != nil {
		return "", fmt.Errorf("outbox: encrypt %s batch: %w", dt, err)
	}

	sig, err := f.keys.SignIdentity(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("outbox: sign %s batch: %w", dt, err)
	}

	env := Envelope{
		ID:        uuid.NewString(),
		DataType:  dt,
		Count:     count,
		CreatedAt: f.clock.Now().UTC(),
		Payload:   payload,
		Signature: sig,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("outbox: marshal envelope: %w", err)
	}

	name := fmt.Sprintf("%s-%d-%s%s", dt, env.CreatedAt.UnixMilli(), env.ID, fileExt)
	path := filepath.Join(f.dir, name)
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("outbox: %w", err)
	}

	f.log.Info(ctx, "batch written", "data_type", string(dt), "count", count, "file", name)
	return path, nil
}

// List returns the envelope files in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("outbox: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return batchMillis(out[i]) < batchMillis(out[j])
	})
	return out, nil
}

// batchMillis reads the creation time encoded in a batch file name.
func batchMillis(path string) int64 {
	parts := strings.SplitN(filepath.Base(path), "-", 3)
	if len(parts) < 2 {
		return 0
	}
	ms, _ := strconv.ParseInt(parts[1], 10, 64)
	return ms
}

func ReadEnvelope(path string) (Envelope, error) {
	var env Envelope

	data, err := os.ReadFile(path)
	if err != nil {
		return env, fmt.Errorf("outbox: %w", err)
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("outbox: decode %s: %w", filepath.Base(path), err)
	}
	return env, nil
}

// Open checks the signature against publicKey (hex) and decrypts the payload
// into v.
func (e Envelope) Open(key []byte, publicKey string, v any) error {
	ok, err := keys.Verify(e.Payload, e.Signature, publicKey)
	if err != nil {
		return fmt.Errorf("outbox: %w", err)
	}
	if !ok {
		return ErrBadSignature
	}
	return keys.DecryptJSON(e.Payload, key, v)
}

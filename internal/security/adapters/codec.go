package adapters

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"warden/internal/security/models"
)

const (
	EncodingJSON     = "json"
	EncodingZstdJSON = "zstd+json"
)

// codec serialises log records. With compression on, the JSON body is
// zstd-compressed as a single frame.
type codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newCodec(compress bool) (*codec, error) {
	c := &codec{}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	c.dec = dec
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			dec.Close()
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		c.enc = enc
	}
	return c, nil
}

func (c *codec) encoding() string {
	if c.enc != nil {
		return EncodingZstdJSON
	}
	return EncodingJSON
}

func (c *codec) encode(r models.LogRecord) ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", r.ID, err)
	}
	if c.enc == nil {
		return body, nil
	}
	return c.enc.EncodeAll(body, make([]byte, 0, len(body)/2)), nil
}

func (c *codec) decode(encoding string, data []byte) (models.LogRecord, error) {
	var r models.LogRecord
	switch encoding {
	case EncodingJSON:
	case EncodingZstdJSON:
		var err error
		if data, err = c.dec.DecodeAll(data, nil); err != nil {
			return r, fmt.Errorf("decompress record: %w", err)
		}
	default:
		return r, fmt.Errorf("unknown record encoding %q", encoding)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}

func (c *codec) close() {
	if c.enc != nil {
		c.enc.Close() //nolint:errcheck // EncodeAll keeps no pending state
	}
	c.dec.Close()
}

// partitionKey keeps one user's records in order on a partitioned stream.
func partitionKey(r models.LogRecord) string {
	switch {
	case r.Event != nil && r.Event.UserID != "":
		return r.Event.UserID
	case r.Audit != nil && r.Audit.UserID != "":
		return r.Audit.UserID
	}
	return r.ID
}

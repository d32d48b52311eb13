package body

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Encoding is a request Content-Encoding the service knows how to undo.
type Encoding string

const (
	EncodingNone    Encoding = ""
	EncodingGzip    Encoding = "gzip"
	EncodingDeflate Encoding = "deflate"
	EncodingBrotli  Encoding = "br"
	EncodingZstd    Encoding = "zstd"
)

// ParseEncoding maps a Content-Encoding header value to an Encoding.
// Unknown and identity encodings map to EncodingNone.
func ParseEncoding(contentEncoding string) Encoding {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		return EncodingGzip
	case "deflate", "x-deflate":
		return EncodingDeflate
	case "br", "brotli":
		return EncodingBrotli
	case "zstd", "zstandard":
		return EncodingZstd
	default:
		return EncodingNone
	}
}

// Decode undoes contentEncoding on raw. It returns raw unchanged when the
// encoding is identity or unknown. On error the caller still owns raw.
func Decode(raw []byte, contentEncoding string) ([]byte, Encoding, error) {
	enc := ParseEncoding(contentEncoding)
	if enc == EncodingNone || len(raw) == 0 {
		return raw, EncodingNone, nil
	}

	var (
		r   io.Reader
		err error
	)
	switch enc {
	case EncodingGzip:
		var gr *gzip.Reader
		gr, err = gzip.NewReader(bytes.NewReader(raw))
		if err == nil {
			defer gr.Close()
			r = gr
		}
	case EncodingDeflate:
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		r = fr
	case EncodingBrotli:
		r = brotli.NewReader(bytes.NewReader(raw))
	case EncodingZstd:
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(bytes.NewReader(raw))
		if err == nil {
			defer zr.Close()
			r = zr
		}
	}
	if err != nil {
		return raw, enc, fmt.Errorf("open %s reader: %w", enc, err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return raw, enc, fmt.Errorf("decompress %s body: %w", enc, err)
	}
	return out, enc, nil
}

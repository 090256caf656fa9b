package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type (
	// Kind classifies a media payload
	Kind string

	// Payload is a resolved media value. URL is set instead of Data when
	// the value is a remote reference the provider can fetch itself
	Payload struct {
		URL  string
		MIME string
		Ext  string
		Kind Kind
		Data []byte
	}
)

const (
	KindUnknown Kind = ""
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
)

const (
	dataURLPrefix = "data:"
	blobPrefix    = "blob:"

	// MinEncodedLen is the shortest bare base64 string considered a media
	// candidate when sniffing
	MinEncodedLen = 100

	sniffChars = 88
)

var (
	ErrInvalidEncoding   = errors.New("invalid media encoding")
	ErrInvalidDataURL    = errors.New("invalid data URL")
	ErrEmptyMedia        = errors.New("media payload is empty")
	ErrNoBucket          = errors.New("no media bucket configured")
	ErrMediaNotFound     = errors.New("media not found")
	ErrRemoteUnsupported = errors.New("remote media not supported here")
)

// Sniff guesses the kind of a string value: a data URL with an image or
// audio MIME type, or a long base64 string whose decoded header carries a
// known image or audio signature
func Sniff(value string) Kind {
	if rest, ok := strings.CutPrefix(value, dataURLPrefix); ok {
		return kindOf(rest)
	}
	if len(value) <= MinEncodedLen {
		return KindUnknown
	}
	head, err := base64.StdEncoding.DecodeString(value[:sniffChars])
	if err != nil {
		return KindUnknown
	}
	return Detect(head)
}

// Detect classifies raw bytes by their magic number
func Detect(data []byte) Kind {
	return kindOf(mimetype.Detect(data).String())
}

// DataURL renders the payload as a base64 data URL, or returns its remote
// URL unchanged
func (p *Payload) DataURL() string {
	if p.URL != "" {
		return p.URL
	}
	return dataURLPrefix + p.MIME + ";base64," +
		base64.StdEncoding.EncodeToString(p.Data)
}

// Filename names the payload for multipart uploads, keeping the detected
// extension. fallback is used when no extension is known
func (p *Payload) Filename(base, fallback string) string {
	if p.Ext == "" {
		return base + fallback
	}
	return base + p.Ext
}

func decodeDataURL(value string) (*Payload, error) {
	rest := strings.TrimPrefix(value, dataURLPrefix)
	header, enc, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrInvalidDataURL
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, ErrInvalidDataURL
	}
	data, err := decodeBase64(enc)
	if err != nil {
		return nil, err
	}
	if mime == "" {
		return fromBytes(data), nil
	}
	res := &Payload{Data: data, MIME: mime, Kind: kindOf(mime)}
	if mt := mimetype.Lookup(mime); mt != nil {
		res.Ext = mt.Extension()
	}
	return res, nil
}

func decodeBase64(enc string) ([]byte, error) {
	enc = strings.TrimSpace(enc)
	if enc == "" {
		return nil, ErrEmptyMedia
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return data, nil
}

func fromBytes(data []byte) *Payload {
	mt := mimetype.Detect(data)
	m := mt.String()
	return &Payload{
		Data: data,
		MIME: baseMIME(m),
		Ext:  mt.Extension(),
		Kind: kindOf(m),
	}
}

func kindOf(mime string) Kind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	case strings.HasPrefix(mime, "audio/"),
		strings.HasPrefix(mime, "application/ogg"):
		return KindAudio
	default:
		return KindUnknown
	}
}

func baseMIME(m string) string {
	base, _, _ := strings.Cut(m, ";")
	return base
}

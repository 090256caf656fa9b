package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Chab-algo/praxia/internal/media"
	"github.com/Chab-algo/praxia/pkg/api"
)

var ErrMissingMedia = fmt.Errorf(
	"%w: media input missing", api.ErrConfiguration,
)

var (
	inputKinds = map[media.Kind]api.InputKind{
		media.KindImage: api.InputImage,
		media.KindAudio: api.InputAudio,
	}

	fallbackFields = map[media.Kind][]string{
		media.KindImage: {"image", "image_data"},
		media.KindAudio: {"audio", "audio_data"},
	}
)

// findMedia locates the context value carrying a payload of the given
// kind. Declared input kinds win; content sniffing over the top-level
// fields is only used when the workflow declares none. The conventional
// field names are consulted last when fallback is set
func (ex *execution) findMedia(kind media.Kind, fallback bool) (string, bool) {
	if len(ex.workflow.Inputs) > 0 {
		for _, name := range ex.workflow.DeclaredInputs(inputKinds[kind]) {
			if s, ok := ex.stringVar(string(name)); ok {
				return s, true
			}
		}
	} else {
		for _, name := range slices.Sorted(maps.Keys(ex.vars)) {
			s, ok := ex.stringVar(name)
			if ok && media.Sniff(s) == kind {
				return s, true
			}
		}
	}

	if !fallback {
		return "", false
	}
	for _, name := range fallbackFields[kind] {
		if s, ok := ex.stringVar(name); ok {
			return s, true
		}
	}
	return "", false
}

func (ex *execution) stringVar(name string) (string, bool) {
	s, ok := ex.vars[name].(string)
	return s, ok && s != ""
}

func mediaError(err error) error {
	switch {
	case errors.Is(err, media.ErrInvalidEncoding),
		errors.Is(err, media.ErrInvalidDataURL),
		errors.Is(err, media.ErrEmptyMedia),
		errors.Is(err, media.ErrNoBucket),
		errors.Is(err, media.ErrRemoteUnsupported):
		return fmt.Errorf("%w: %w", api.ErrConfiguration, err)
	default:
		return fmt.Errorf("%w: %w", api.ErrStepExecution, err)
	}
}

// fingerprint identifies a payload in cache keys without embedding it
func fingerprint(kind media.Kind, p *media.Payload) string {
	var sum [sha256.Size]byte
	if p.URL != "" {
		sum = sha256.Sum256([]byte(p.URL))
	} else {
		sum = sha256.Sum256(p.Data)
	}
	return string(kind) + ":" + hex.EncodeToString(sum[:])
}

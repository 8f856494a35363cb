// Package method implements the similarity methods of the scan engine.
// Each method pairs a signature extractor with a pairwise match predicate.
package method

import (
	"errors"
	"fmt"

	"github.com/tmarcus/lookalike/internal/config"
)

// Method names accepted by New.
const (
	Exact   = "exact"
	PHash   = "phash"
	ORB     = "orb"
	SIFT    = "sift"
	SSIM    = "ssim"
	Siamese = "siamese"
)

// ErrUnknownMethod is returned by New for an unrecognised method name.
var ErrUnknownMethod = errors.New("unknown similarity method")

// Names lists every supported method name.
func Names() []string {
	return []string{Exact, PHash, ORB, SIFT, SSIM, Siamese}
}

// Signature is the computed, method-specific representation of one image.
// The set of implementations is closed: one per method.
type Signature interface {
	signature()
}

// Method extracts signatures and decides whether two of them match.
//
// Extract never panics through to the caller: unreadable or feature-poor
// images yield an error, which the scan engine treats as a per-file failure.
// Matches is only ever called with two signatures produced by the same
// Method; it must be symmetric in its match decision.
type Method interface {
	Name() string
	Extract(path string) (Signature, error)
	Matches(a, b Signature) bool
}

// Options carries the dependencies a method may need beyond its thresholds.
type Options struct {
	// Embedder produces embedding vectors for the siamese method. When nil,
	// New fails for that method only.
	Embedder Embedder
}

// New resolves a method name to its implementation, binding the thresholds
// from cfg. Resolution happens once, at scan start.
func New(name string, th config.Thresholds, opts Options) (Method, error) {
	switch name {
	case Exact:
		return exactMethod{}, nil
	case PHash:
		return phashMethod{maxDistance: th.PHashDistance}, nil
	case ORB:
		return orbMethod{
			loweRatio:  th.LoweRatio,
			minMatches: th.ORBMinMatches,
			minRatio:   th.ORBRatio,
		}, nil
	case SIFT:
		return siftMethod{
			loweRatio:  th.LoweRatio,
			minMatches: th.SIFTMinMatches,
			minRatio:   th.SIFTRatio,
		}, nil
	case SSIM:
		return ssimMethod{minScore: th.SSIMScore}, nil
	case Siamese:
		if opts.Embedder == nil {
			return nil, errors.New("siamese method requires an embedding model (set model_path)")
		}
		return siameseMethod{embedder: opts.Embedder, minCosine: th.Cosine}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

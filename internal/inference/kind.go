package inference

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/flowscribe/internal/cache"
	"github.com/dshills/flowscribe/internal/providers"
)

// Kind selects the provider operation and cache partition for a request.
type Kind string

const (
	KindChat  Kind = "chat"
	KindImage Kind = "image"
)

// KindParam is the cache-key parameter that carries the request kind.
const KindParam = "request_type"

var (
	// ErrUnsupportedKind is returned for a kind with no registered handler.
	ErrUnsupportedKind = errors.New("unsupported request kind")
	// ErrReservedParam is returned when logical params use KindParam.
	ErrReservedParam = errors.New("reserved request parameter")
)

// handler binds a kind to its partition, provider operation and normalizer.
type handler struct {
	partition cache.Partition
	call      func(ctx context.Context, p providers.Provider, params map[string]any) (providers.Result, error)
	normalize func(providers.Result) (Response, error)
}

var registry = map[Kind]handler{
	KindChat: {
		partition: cache.PartitionFor(string(KindChat)),
		call: func(ctx context.Context, p providers.Provider, params map[string]any) (providers.Result, error) {
			return p.Completion(ctx, params)
		},
		normalize: normalize,
	},
	KindImage: {
		partition: cache.PartitionFor(string(KindImage)),
		call: func(ctx context.Context, p providers.Provider, params map[string]any) (providers.Result, error) {
			return p.ImageGeneration(ctx, params)
		},
		normalize: normalize,
	},
}

// Kinds returns the registered request kinds in sorted order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// PartitionFor returns the cache partition for kind.
func PartitionFor(kind Kind) (cache.Partition, error) {
	h, ok := registry[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return h.partition, nil
}

package rawrfetch

import (
	"github.com/Keksclan/rawrfetch/config"
	"github.com/Keksclan/rawrfetch/persist"
	"github.com/Keksclan/rawrfetch/transport"
)

// Cache table names, also used as persistence keys and metric labels.
const (
	TableCreators = "creators"
	TablePages    = "posts"
	TablePosts    = "post"
	TableSearches = "searches"
)

// defaultTransport builds the HTTP transport described by cfg. The returned
// memo is nil when memoization is disabled.
func defaultTransport(cfg config.TransportConfig) (*transport.HTTP, *transport.Memo, error) {
	opts := []transport.Option{}
	if cfg.UserAgent != "" {
		opts = append(opts, transport.WithHeaders(map[string]string{"User-Agent": cfg.UserAgent}))
	}

	var memo *transport.Memo
	if cfg.MemoTTL > 0 {
		m, err := transport.NewMemo(cfg.MemoEntries, cfg.MemoTTL)
		if err != nil {
			return nil, nil, err
		}
		memo = m
		opts = append(opts, transport.WithMemo(memo))
	}
	return transport.NewHTTP(opts...), memo, nil
}

// defaultStore builds the blob store selected by cfg. The store is nil for
// the none backend.
func defaultStore(cfg config.PersistConfig) persist.BlobStore {
	switch cfg.Backend {
	case config.BackendRedis:
		return persist.NewRedis(cfg.Redis)
	case config.BackendMemory:
		return persist.NewMemory()
	default:
		return nil
	}
}

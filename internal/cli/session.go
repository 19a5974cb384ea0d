package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/mealsync/internal/client"
	"github.com/roach88/mealsync/internal/config"
	"github.com/roach88/mealsync/internal/engine"
	"github.com/roach88/mealsync/internal/localstate"
	"github.com/roach88/mealsync/internal/model"
)

// session opens the store for a command: hydrated from the local snapshot,
// then switched to remote mode when a token is configured.
func (o *RootOptions) session(ctx context.Context) (*engine.Store, error) {
	if o.OpenStore != nil {
		return o.OpenStore(ctx, o)
	}
	return openSession(ctx, o)
}

func openSession(ctx context.Context, o *RootOptions) (*engine.Store, error) {
	cfg := o.Config
	backend, err := localBackend(ctx, cfg.Local)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open local snapshot", err)
	}

	remote := func(identity string) (engine.RemoteAPI, error) {
		if cfg.Remote.URL == "" {
			return nil, fmt.Errorf("no remote URL configured")
		}
		c, err := client.New(cfg.Remote.URL, cfg.Remote.Token)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	st := engine.New(localstate.New(backend, cfg.Local.Namespace),
		engine.WithRemote(remote),
		engine.WithLogger(o.logger()),
	)
	if err := st.Hydrate(ctx); err != nil {
		return nil, err
	}

	if cfg.Remote.Token != "" {
		identity, err := client.IdentityFromToken(cfg.Remote.Token)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid token", err)
		}
		if err := st.SetIdentity(ctx, identity); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// localBackend builds the snapshot backend selected by cfg.Driver.
func localBackend(ctx context.Context, cfg config.LocalConfig) (localstate.Backend, error) {
	switch cfg.Driver {
	case "memory":
		return localstate.NewMemory(), nil
	case "s3":
		return localstate.NewS3(ctx, localstate.S3Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	case "file", "":
		return localstate.NewFile(cfg.Dir)
	}
	return nil, fmt.Errorf("unknown local driver %q", cfg.Driver)
}

// resolveVendor finds a vendor by id or, failing that, by name
// (case-insensitive, after normalisation).
func resolveVendor(st *engine.Store, ref string) (model.Vendor, error) {
	if v, ok := st.Vendor(ref); ok {
		return v, nil
	}
	name := model.NormalizeName(ref)
	for _, v := range st.Vendors() {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return model.Vendor{}, NewExitError(ExitCommandError, fmt.Sprintf("unknown vendor %q", ref))
}

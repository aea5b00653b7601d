package cli

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/deicod/webity/internal/config"
	"github.com/deicod/webity/router"
	"github.com/deicod/webity/runtime"
)

type serveOptions struct {
	config string
	addr   string
	views  string
}

func newServeCommand(opts *options) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a views tree over HTTP",
		Long: `Serve every page of the views tree. Each directory holding an index.html
becomes a route; directories named {name} become path parameters. Routes
and their locals come from the config file when one is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if so.config != "" {
				loaded, err := config.Load(so.config)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = so.addr
			}
			if cmd.Flags().Changed("views") {
				cfg.Views = so.views
			}
			if !cmd.Flags().Changed("log-level") {
				opts.logLevel = cfg.Log.Level
			}
			if !cmd.Flags().Changed("log-format") {
				opts.logFormat = cfg.Log.Format
			}

			r, err := newServer(cfg, opts)
			if err != nil {
				return err
			}
			return r.ListenAndServe(cmd.Context(), cfg.Addr)
		},
	}

	cmd.Flags().StringVarP(&so.config, "config", "c", "", "Path to webity.yaml")
	cmd.Flags().StringVar(&so.addr, "addr", ":3000", "Listen address")
	cmd.Flags().StringVar(&so.views, "views", "views", "Directory holding the page tree")
	return cmd
}

// newServer builds the router a configuration describes
func newServer(cfg *config.Config, opts *options) (*router.Router, error) {
	logger := opts.logger(false)
	env := runtime.NewEnvironment(
		runtime.WithLoader(runtime.NewFileSystemLoader()),
		runtime.WithLogger(logger),
		runtime.WithCache(0, 256),
	)

	r := router.New(env,
		router.WithFS(os.DirFS(".")),
		router.WithViews(cfg.Views),
		router.WithIgnore(cfg.Ignore...),
		router.WithLogger(logger),
	)

	if len(cfg.Routes) == 0 {
		return r, r.Route("", http.MethodGet, nil)
	}
	for _, route := range cfg.Routes {
		var err error
		if route.Map != nil {
			routeMap := make(map[string]router.RouteData, len(route.Map))
			for rel, locals := range route.Map {
				routeMap[rel] = router.RouteData{Locals: locals}
			}
			err = r.RouteWithMap(route.Path, route.Method, routeMap)
		} else {
			err = r.Route(route.Path, route.Method, route.Locals)
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

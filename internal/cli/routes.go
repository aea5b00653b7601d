package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/deicod/webity/router"
)

type routesOptions struct {
	root   string
	views  string
	ignore []string
}

func newRoutesCommand(opts *options) *cobra.Command {
	ro := &routesOptions{}

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes a views tree serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := router.New(nil,
				router.WithFS(os.DirFS(ro.root)),
				router.WithViews(ro.views),
				router.WithIgnore(ro.ignore...),
				router.WithLogger(opts.logger(false)),
			)

			routes, err := r.ListRoutes(ro.views)
			if err != nil {
				return err
			}
			served := make(map[string]bool, len(routes))
			out := cmd.OutOrStdout()
			for _, route := range routes {
				served[route] = true
				fmt.Fprintf(out, "%-30s %s\n", r.Pattern(http.MethodGet, route), route)
			}

			pages, err := r.Pages(ro.views)
			if err != nil {
				return err
			}
			for _, page := range pages {
				if !served[page] {
					fmt.Fprintf(out, "unreachable: %s\n", page)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ro.root, "root", ".", "Directory the views path is relative to")
	cmd.Flags().StringVar(&ro.views, "views", "views", "Directory holding the page tree")
	cmd.Flags().StringSliceVar(&ro.ignore, "ignore", nil, "Globs of directories to skip")
	return cmd
}

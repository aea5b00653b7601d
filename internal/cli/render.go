package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deicod/webity/runtime"
)

type renderOptions struct {
	root   string
	locals string
	out    string
	debug  bool
	list   bool
}

func newRenderCommand(opts *options) *cobra.Command {
	ro := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <dir> [file]",
		Short: "Render a template and print the HTML",
		Long: `Render dir/file (dir/index.html when file is omitted) and print the
resulting HTML. A file starting with $ is looked up in the first segment
of dir.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			locals, err := loadLocals(ro.locals)
			if err != nil {
				return err
			}

			file := ""
			if len(args) == 2 {
				file = args[1]
			}

			env := runtime.NewEnvironment(
				runtime.WithLoader(runtime.NewFileSystemLoader(ro.root)),
				runtime.WithLogger(opts.logger(ro.debug)),
			)
			result, err := env.Render(args[0], file, locals, ro.debug)
			if err != nil {
				return err
			}

			out := result.HTML
			if ro.list {
				for _, script := range result.ScriptList {
					out += "\n" + script
				}
			}

			if ro.out != "" {
				if err := os.WriteFile(ro.out, []byte(out), 0o644); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&ro.root, "root", ".", "Directory template paths are relative to")
	cmd.Flags().StringVar(&ro.locals, "locals", "", "YAML or JSON file with template locals")
	cmd.Flags().StringVarP(&ro.out, "out", "o", "", "Write the HTML to a file instead of stdout")
	cmd.Flags().BoolVar(&ro.debug, "debug", false, "Log render progress at debug level")
	cmd.Flags().BoolVar(&ro.list, "scripts", false, "Append the merged script list to the output")
	return cmd
}

// loadLocals decodes a YAML or JSON mapping; an empty path yields no locals
func loadLocals(path string) (map[string]interface{}, error) {
	locals := map[string]interface{}{}
	if path == "" {
		return locals, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locals: %w", err)
	}
	if err := yaml.Unmarshal(data, &locals); err != nil {
		return nil, fmt.Errorf("failed to parse locals %s: %w", path, err)
	}
	if locals == nil {
		locals = map[string]interface{}{}
	}
	return locals, nil
}
